package orchestrator

import (
	"github.com/exddc/domain-discovery-go/internal/apierr"
	"github.com/exddc/domain-discovery-go/internal/models"
)

// Sink receives the Orchestrator's incremental events (spec.md §9's
// "Orchestrator mode duality" — one core loop, one sink per mode).
type Sink interface {
	// Start fires once before the loop begins.
	Start()

	// Suggestions fires once per accepted new/update accumulator change.
	// Exactly one of newRecords/updates is non-empty per call.
	Suggestions(newRecords, updates []models.SuggestionResult, availableCount, total int)

	// Complete fires once on normal loop exit (target reached or retry
	// budget spent); never called if Error fires first.
	Complete(result Result)

	// Error fires at most once, on a fatal LLM or Dispatcher failure, and
	// terminates the loop; Complete is not called afterward.
	Error(err *apierr.Error)
}

// BufferSink ignores intermediate events and records only the terminal
// Complete result or Error, which the buffered (non-streaming) HTTP path
// reads back after Run returns.
type BufferSink struct {
	Result Result
	Err    *apierr.Error
}

// NewBufferSink returns a ready-to-use BufferSink.
func NewBufferSink() *BufferSink { return &BufferSink{} }

func (s *BufferSink) Start() {}

func (s *BufferSink) Suggestions(_, _ []models.SuggestionResult, _, _ int) {}

func (s *BufferSink) Complete(result Result) { s.Result = result }

func (s *BufferSink) Error(err *apierr.Error) { s.Err = err }

// EventType names a streaming event (spec.md §6's SSE event names).
type EventType string

const (
	EventStart       EventType = "start"
	EventSuggestions EventType = "suggestions"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is one frame of the streaming path; the HTTP layer encodes it as
// an SSE event of the matching name.
type Event struct {
	Type        EventType
	Suggestions *models.SuggestionsEvent
	Complete    *models.CompleteEvent
	Err         *apierr.Error
}

// StreamSink emits one Event per suspension point onto a buffered
// channel, closing it on Complete or Error (the loop's two terminal
// states). The channel's consumer is the HTTP handler translating Events
// into SSE frames.
type StreamSink struct {
	Events chan Event
	closed bool
}

// NewStreamSink returns a StreamSink with the given channel buffer depth.
func NewStreamSink(buffer int) *StreamSink {
	return &StreamSink{Events: make(chan Event, buffer)}
}

func (s *StreamSink) Start() {
	if s.closed {
		return
	}
	s.Events <- Event{Type: EventStart}
}

func (s *StreamSink) Suggestions(newRecords, updates []models.SuggestionResult, availableCount, total int) {
	if s.closed {
		return
	}
	s.Events <- Event{Type: EventSuggestions, Suggestions: &models.SuggestionsEvent{
		New:            newRecords,
		Updates:        updates,
		AvailableCount: availableCount,
		Total:          total,
	}}
}

func (s *StreamSink) Complete(result Result) {
	if s.closed {
		return
	}
	s.Events <- Event{Type: EventComplete, Complete: &models.CompleteEvent{
		Results:        result.Records,
		AvailableCount: result.AvailableCount,
		Total:          result.Total,
		ReachedTarget:  result.ReachedTarget,
	}}
	s.closed = true
	close(s.Events)
}

func (s *StreamSink) Error(err *apierr.Error) {
	if s.closed {
		return
	}
	s.Events <- Event{Type: EventError, Err: err}
	s.closed = true
	close(s.Events)
}
