// Package orchestrator implements the Suggestion Orchestrator (spec.md
// §4.7): the retry loop that drives the LLM Client and Check Dispatcher to
// accumulate candidate domains until target_count available results are
// found or the retry budget is spent, emitting incremental events to a
// Sink shared by both the buffered and streaming HTTP paths.
//
// Grounded on spec.md §4.7's pseudocode directly — no single teacher file
// matches a retry-loop-with-sink shape, so the loop body is built fresh;
// the "poll until terminal state, emit incrementally" discipline follows
// the teacher's cli/cli.go runDNSTest poll-and-print shape, generalized
// into a sink abstraction so batch and streaming modes share one core.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/exddc/domain-discovery-go/internal/apierr"
	"github.com/exddc/domain-discovery-go/internal/dispatcher"
	"github.com/exddc/domain-discovery-go/internal/llm"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/store"
	"github.com/exddc/domain-discovery-go/internal/suggestmetrics"
)

const defaultMaxRetries = 5

// Generator is the subset of internal/llm.Client's contract the
// Orchestrator depends on, narrowed for testability.
type Generator interface {
	Generate(ctx context.Context, description string, targetCount int, promptType models.PromptType, prefs *llm.Preferences, similar *llm.SimilarContext) ([]string, llm.Usage, error)
}

// Dispatcher is the subset of internal/dispatcher.Dispatcher's contract
// the Orchestrator depends on, narrowed for testability.
type Dispatcher interface {
	Dispatch(ctx context.Context, candidates []string) (dispatcher.Result, error)
	QueueDepth(ctx context.Context) (int64, error)
}

// Request is one suggestion request's inputs (spec.md §4.7).
type Request struct {
	Description string
	TargetCount int
	PromptType  models.PromptType
	UserID      string
	AnonID      string
	SourceFQDN  string // required when PromptType == models.PromptTypeSimilar
	Prefs       *llm.Preferences
}

// Result is the Orchestrator's final accumulator (spec.md §4.7's "list of
// length >= target_count when successful").
type Result struct {
	SuggestionID   string
	Records        []models.SuggestionResult
	AvailableCount int
	Total          int
	ReachedTarget  bool
	Metrics        models.MetricsRecord
}

// accumEntry is one accumulator row; status/updatedAt mutate in place on
// upgrade, never on downgrade (spec.md §4.7's tie-break rules).
type accumEntry struct {
	fqdn         string
	publicSuffix string
	status       models.Status
	createdAt    time.Time
	updatedAt    time.Time
}

func (e *accumEntry) toResult() models.SuggestionResult {
	return models.SuggestionResult{
		FQDN:         e.fqdn,
		PublicSuffix: e.publicSuffix,
		Status:       e.status,
		CreatedAt:    e.createdAt,
		UpdatedAt:    e.updatedAt,
	}
}

// Orchestrator drives the retry loop described in spec.md §4.7.
type Orchestrator struct {
	LLM        Generator
	Dispatcher Dispatcher
	Store      store.Store

	// Model is recorded on the persisted SuggestionRecord.
	Model string

	// MaxRetries defaults to 5 (MAX_SUGGESTIONS_RETRIES) when <= 0.
	MaxRetries int

	Logger *slog.Logger
}

// New builds an Orchestrator.
func New(gen Generator, disp Dispatcher, st store.Store, model string, maxRetries int) *Orchestrator {
	return &Orchestrator{LLM: gen, Dispatcher: disp, Store: st, Model: model, MaxRetries: maxRetries}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) maxRetries() int {
	if o.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return o.MaxRetries
}

// Run executes the retry loop against req, emitting events to sink, and
// returns the best-effort final Result. Run never returns an error: per
// spec.md §7, the Orchestrator always returns the best-effort accumulator,
// surfacing fatal failures only through sink.Error.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) Result {
	tracker := suggestmetrics.New()
	suggestionID := uuid.NewString()
	sink.Start()

	if depth, err := o.Dispatcher.QueueDepth(ctx); err == nil {
		tracker.SetQueueDepth(depth)
	}

	var similar *llm.SimilarContext
	if req.PromptType == models.PromptTypeSimilar {
		similar = &llm.SimilarContext{SourceDomain: req.SourceFQDN}
	}

	var accumulated []*accumEntry
	byFQDN := make(map[string]*accumEntry)
	availableCount := 0
	retries := 0
	maxRetries := o.maxRetries()

	for retries < maxRetries && availableCount < req.TargetCount {
		if ctx.Err() != nil {
			break
		}

		tracker.StartTimer("llm")
		candidates, usage, err := o.LLM.Generate(ctx, req.Description, req.TargetCount, req.PromptType, req.Prefs, similar)
		tracker.StopTimer("llm")
		tracker.IncrementLLMCall()

		if err != nil {
			apiErr := asAPIError(err)
			tracker.AddError(apiErr.Error())
			result := o.finish(req, suggestionID, accumulated, availableCount, tracker)
			sink.Error(apiErr)
			return result
		}

		tracker.AddLLMTokens(usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens)
		tracker.AddDomainsGenerated(candidates)

		toCheck := make([]string, 0, len(candidates))
		toCheckSet := make(map[string]struct{}, len(candidates))
		for _, c := range candidates {
			if existing, ok := byFQDN[c]; ok && existing.status == models.StatusAvailable {
				continue
			}
			if _, dup := toCheckSet[c]; dup {
				continue
			}
			toCheckSet[c] = struct{}{}
			toCheck = append(toCheck, c)
		}

		if len(toCheck) == 0 {
			retries++
			tracker.IncrementRetry()
			continue
		}

		tracker.StartTimer("worker")
		dispResult, err := o.Dispatcher.Dispatch(ctx, toCheck)
		tracker.StopTimer("worker")
		for range toCheck {
			tracker.IncrementWorkerJob()
		}

		if err != nil {
			apiErr := apierr.Wrap(apierr.CodeServiceUnavailable, "domain availability check failed", true, err)
			tracker.AddError(apiErr.Error())
			result := o.finish(req, suggestionID, accumulated, availableCount, tracker)
			sink.Error(apiErr)
			return result
		}

		for _, candidate := range candidates {
			if _, checked := toCheckSet[candidate]; !checked {
				continue
			}

			s := models.MapWorkerStatus(dispResult.Statuses[candidate])
			existing, hasExisting := byFQDN[candidate]

			if hasExisting {
				if existing.status != models.StatusAvailable && s == models.StatusAvailable {
					existing.status = s
					existing.updatedAt = time.Now().UTC()
					availableCount++
					if availableCount == 1 {
						tracker.MarkFirstSuggestion()
					}
					sink.Suggestions(nil, []models.SuggestionResult{existing.toResult()}, availableCount, len(accumulated))
				}
				continue
			}

			if s == models.StatusAvailable && availableCount >= req.TargetCount {
				continue
			}

			now := time.Now().UTC()
			entry := &accumEntry{
				fqdn:         candidate,
				publicSuffix: models.NewCandidateDomain(candidate).PublicSuffix,
				status:       s,
				createdAt:    now,
				updatedAt:    now,
			}
			accumulated = append(accumulated, entry)
			byFQDN[candidate] = entry

			if s == models.StatusAvailable {
				availableCount++
				if availableCount == 1 {
					tracker.MarkFirstSuggestion()
				}
			}
			sink.Suggestions([]models.SuggestionResult{entry.toResult()}, nil, availableCount, len(accumulated))
		}

		retries++
		tracker.IncrementRetry()
	}

	result := o.finish(req, suggestionID, accumulated, availableCount, tracker)
	sink.Complete(result)
	return result
}

// finish tallies final domain statuses, persists fire-and-forget, and
// builds the terminal Result. Persistence always runs against a detached
// context so a cancelled request context doesn't abort the flush.
func (o *Orchestrator) finish(req Request, suggestionID string, accumulated []*accumEntry, availableCount int, tracker *suggestmetrics.Tracker) Result {
	for _, e := range accumulated {
		tracker.AddDomainStatus(e.status)
	}

	metricsRec := tracker.Snapshot(suggestionID, req.TargetCount)

	records := make([]models.SuggestionResult, len(accumulated))
	for i, e := range accumulated {
		records[i] = e.toResult()
	}

	result := Result{
		SuggestionID:   suggestionID,
		Records:        records,
		AvailableCount: availableCount,
		Total:          len(accumulated),
		ReachedTarget:  availableCount >= req.TargetCount,
		Metrics:        metricsRec,
	}

	if o.Store != nil {
		go o.persist(req, suggestionID, accumulated, metricsRec)
	}

	return result
}

func (o *Orchestrator) persist(req Request, suggestionID string, accumulated []*accumEntry, metricsRec models.MetricsRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	promptType := req.PromptType
	if promptType == "" {
		promptType = models.PromptTypeLegacy
	}

	suggestion := models.SuggestionRecord{
		ID:          suggestionID,
		Description: req.Description,
		TargetCount: req.TargetCount,
		Model:       o.Model,
		PromptID:    string(promptType),
		UserID:      req.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.Store.SaveSuggestion(ctx, suggestion); err != nil {
		o.logger().Warn("orchestrator: failed to persist suggestion record", "err", err)
	}

	for _, e := range accumulated {
		if _, err := o.Store.UpsertDomain(ctx, e.fqdn, e.status, suggestionID); err != nil {
			o.logger().Warn("orchestrator: failed to upsert domain record", "fqdn", e.fqdn, "err", err)
		}
	}

	if err := o.Store.SaveMetrics(ctx, metricsRec); err != nil {
		o.logger().Warn("orchestrator: failed to persist metrics record", "err", err)
	}
}

// asAPIError unwraps an *apierr.Error if err already carries one, else
// wraps it as an internal error.
func asAPIError(err error) *apierr.Error {
	if apiErr, ok := err.(*apierr.Error); ok {
		return apiErr
	}
	return apierr.Wrap(apierr.CodeInternalError, "unexpected orchestrator failure", false, err)
}
