// Package store defines the narrow persistence contract the core depends
// on (spec.md §3 data model + SPEC_FULL.md §5's domain-rating supplement).
// Generalized from the teacher's tasks.Client/tasks.memoryClient dual-
// backend split: a Redis-backed implementation and an in-memory
// implementation share this interface.
package store

import (
	"context"

	"github.com/exddc/domain-discovery-go/internal/models"
)

// Store is the persistence contract: domain/suggestion/metrics/worker-
// metrics/queue-snapshot records, plus domain ratings.
type Store interface {
	// UpsertDomain get-or-creates a DomainRecord and applies status/
	// last_checked under last-writer-wins semantics (spec.md §3). The
	// suggestionID back-reference is first-writer-wins: it is only set if
	// the record doesn't already carry one, mirroring
	// original_source/apps/api/src/api/utils.py's upsert_domain_in_db.
	UpsertDomain(ctx context.Context, fqdn string, status models.Status, suggestionID string) (models.DomainRecord, error)

	// GetDomain reads the current record for fqdn, or ok=false if absent.
	GetDomain(ctx context.Context, fqdn string) (rec models.DomainRecord, ok bool, err error)

	// ListStaleDomains returns up to limit domain records whose
	// last_checked is null or older than olderThanDays, ordered
	// oldest-first — the Idle Recheck loop's batch selection (spec.md
	// §4.6 step 1).
	ListStaleDomains(ctx context.Context, olderThanDays int, limit int) ([]models.DomainRecord, error)

	// SaveSuggestion persists a SuggestionRecord, created exactly once per
	// request.
	SaveSuggestion(ctx context.Context, rec models.SuggestionRecord) error

	// SaveMetrics persists a MetricsRecord, written once at orchestrator
	// completion.
	SaveMetrics(ctx context.Context, rec models.MetricsRecord) error

	// FoldWorkerMetrics additively updates the cumulative per-worker_id
	// record (spec.md §3's "Worker metrics").
	FoldWorkerMetrics(ctx context.Context, workerID string, jobs int64, processingMs, queueWaitMs float64) error

	// GetWorkerMetrics lists all known worker metrics rows, used by the
	// /health endpoint's worker-liveness check (SPEC_FULL.md §7).
	GetWorkerMetrics(ctx context.Context) ([]models.WorkerMetrics, error)

	// AppendQueueSnapshot writes an append-only queue-depth telemetry row
	// (spec.md §3's "Queue snapshot"). Entries older than 96 hours are
	// opportunistically pruned.
	AppendQueueSnapshot(ctx context.Context, snap models.QueueSnapshot) error

	// RateDomain creates or flips a rating for (fqdn, raterKey), applying
	// additive upvote/downvote counters to the domain record — the §7
	// supplement grounded in utils.py's create_domain_rating. Returns an
	// error if the domain record does not exist.
	RateDomain(ctx context.Context, fqdn, raterKey string, vote int) (models.DomainRecord, error)

	// RatingsByRater returns all ratings a rater has cast, used by
	// internal/llm.PreferencesFromRatings to derive liked/disliked lists.
	RatingsByRater(ctx context.Context, raterKey string) ([]models.DomainRating, error)

	// MigrateAnonRatings reassigns an anonymous rater's ratings to a user
	// rater key, dropping the anon rating when the user already rated the
	// same domain (dedup-on-migrate), per utils.py's
	// migrate_anon_ratings_to_user.
	MigrateAnonRatings(ctx context.Context, anonKey, userKey string) error
}

// ErrDomainNotFound is returned by RateDomain when no domain record exists
// for the given fqdn.
var ErrDomainNotFound = &notFoundError{}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "domain not found" }
