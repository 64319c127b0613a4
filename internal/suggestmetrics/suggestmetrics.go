// Package suggestmetrics implements the Metrics Tracker (spec.md §4.8):
// a per-request accumulator of timings, counters, and domain outcomes,
// flushed once into a models.MetricsRecord at Orchestrator completion.
// Ported field-for-field from
// original_source/apps/api/src/api/utils.py's MetricsTracker.
package suggestmetrics

import (
	"sync"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
)

// Tracker accumulates metrics for exactly one suggestion request. It is not
// a process-wide singleton — contrast internal/metrics, whose collectors
// live for the process lifetime.
type Tracker struct {
	mu sync.Mutex

	requestStart time.Time
	timers       map[string]time.Time
	durationsMs  map[string][]float64

	timeToFirstMs *float64
	queueDepth    int64

	retryCount     int
	llmCallCount   int
	workerJobCount int

	totalGenerated int
	uniqueDomains  map[string]struct{}
	byStatus       map[models.Status]int

	llmTokensTotal    int
	llmTokensPrompt   int
	llmTokensComplete int

	errors []string
}

// New starts a Tracker, recording the request start time.
func New() *Tracker {
	return &Tracker{
		requestStart: time.Now(),
		timers:       make(map[string]time.Time),
		durationsMs: map[string][]float64{
			"llm":    {},
			"worker": {},
		},
		uniqueDomains: make(map[string]struct{}),
		byStatus: map[models.Status]int{
			models.StatusAvailable:  0,
			models.StatusRegistered: 0,
			models.StatusUnknown:    0,
		},
	}
}

// StartTimer begins a named timer.
func (t *Tracker) StartTimer(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers[name] = time.Now()
}

// StopTimer ends a named timer and records its duration in ms against
// name's bucket, if name is a tracked bucket ("llm"/"worker"). Returns the
// duration, or 0 if the timer was never started.
func (t *Tracker) StopTimer(name string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.timers[name]
	if !ok {
		return 0
	}
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if _, tracked := t.durationsMs[name]; tracked {
		t.durationsMs[name] = append(t.durationsMs[name], durationMs)
	}
	delete(t.timers, name)
	return durationMs
}

// SetQueueDepth records the Work Queue Client's depth as observed at
// request entry. Later calls overwrite earlier ones; the Orchestrator
// calls this once, before dispatching the first round.
func (t *Tracker) SetQueueDepth(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queueDepth = n
}

// IncrementRetry records one Orchestrator retry iteration.
func (t *Tracker) IncrementRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retryCount++
}

// IncrementLLMCall records one LLM Client call.
func (t *Tracker) IncrementLLMCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.llmCallCount++
}

// IncrementWorkerJob records one dispatched worker job.
func (t *Tracker) IncrementWorkerJob() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.workerJobCount++
}

// AddDomainsGenerated folds newly generated candidate fqdns into the
// total-generated counter and the unique-domain set.
func (t *Tracker) AddDomainsGenerated(domains []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalGenerated += len(domains)
	for _, d := range domains {
		t.uniqueDomains[d] = struct{}{}
	}
}

// AddDomainStatus tallies one final domain status.
func (t *Tracker) AddDomainStatus(status models.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byStatus[status]++
}

// AddLLMTokens accumulates token usage reported by one LLM Client call.
func (t *Tracker) AddLLMTokens(total, prompt, completion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.llmTokensTotal += total
	t.llmTokensPrompt += prompt
	t.llmTokensComplete += completion
}

// AddError records a user-visible error message encountered mid-request.
func (t *Tracker) AddError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = append(t.errors, msg)
}

// MarkFirstSuggestion records time-to-first-suggestion exactly once; later
// calls are no-ops, mirroring the Python tracker's idempotent guard.
func (t *Tracker) MarkFirstSuggestion() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timeToFirstMs != nil {
		return
	}
	elapsed := float64(time.Since(t.requestStart).Microseconds()) / 1000.0
	t.timeToFirstMs = &elapsed
}

// TotalDurationMs returns elapsed time since the tracker was created.
func (t *Tracker) TotalDurationMs() float64 {
	return float64(time.Since(t.requestStart).Microseconds()) / 1000.0
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}

// Snapshot computes the final models.MetricsRecord for this request.
// success_rate/reached_target follow spec.md §4.8's definition:
// min(1, available_count/requested_count), and available_count >=
// requested_count.
func (t *Tracker) Snapshot(suggestionID string, requestedCount int) models.MetricsRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	availableCount := t.byStatus[models.StatusAvailable]
	registeredCount := t.byStatus[models.StatusRegistered]
	unknownCount := t.byStatus[models.StatusUnknown]
	domainsReturned := availableCount + registeredCount + unknownCount

	var successRate float64
	if requestedCount > 0 {
		successRate = float64(availableCount) / float64(requestedCount)
		if successRate > 1 {
			successRate = 1
		}
	}

	byStatus := make(map[models.Status]int, len(t.byStatus))
	for k, v := range t.byStatus {
		byStatus[k] = v
	}

	rec := models.MetricsRecord{
		SuggestionID:      suggestionID,
		TotalDurationMs:   t.TotalDurationMs(),
		LLMDurationMs:     sum(t.durationsMs["llm"]),
		WorkerDurationMs:  sum(t.durationsMs["worker"]),
		TimeToFirstMs:     t.timeToFirstMs,
		LLMDurations:      append([]float64(nil), t.durationsMs["llm"]...),
		WorkerDurations:   append([]float64(nil), t.durationsMs["worker"]...),
		RetryCount:        t.retryCount,
		LLMCallCount:      t.llmCallCount,
		WorkerJobCount:    t.workerJobCount,
		ErrorCount:        len(t.errors),
		Errors:            append([]string(nil), t.errors...),
		TotalGenerated:    t.totalGenerated,
		UniqueGenerated:   len(t.uniqueDomains),
		DomainsByStatus:   byStatus,
		LLMTokensTotal:    t.llmTokensTotal,
		LLMTokensPrompt:   t.llmTokensPrompt,
		LLMTokensComplete: t.llmTokensComplete,
		QueueDepthAtStart: t.queueDepth,
		AvailableCount:    availableCount,
		RegisteredCount:   registeredCount,
		UnknownCount:      unknownCount,
		DomainsReturned:   domainsReturned,
		SuccessRate:       successRate,
		ReachedTarget:     availableCount >= requestedCount,
		CreatedAt:         time.Now().UTC(),
	}

	return rec
}
