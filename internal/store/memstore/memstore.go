// Package memstore implements store.Store in-process for tests and for
// the single-node "server" command when no Redis is configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/store"
)

// Store is a mutex-guarded, map-backed store.Store.
type Store struct {
	mu sync.Mutex

	domains     map[string]models.DomainRecord
	suggestions map[string]models.SuggestionRecord
	metrics     map[string]models.MetricsRecord
	workerStats map[string]models.WorkerMetrics
	snapshots   []models.QueueSnapshot
	ratings     map[string]map[string]models.DomainRating // fqdn -> raterKey -> rating
}

// New returns a fresh in-memory Store.
func New() *Store {
	return &Store{
		domains:     make(map[string]models.DomainRecord),
		suggestions: make(map[string]models.SuggestionRecord),
		metrics:     make(map[string]models.MetricsRecord),
		workerStats: make(map[string]models.WorkerMetrics),
		ratings:     make(map[string]map[string]models.DomainRating),
	}
}

func (s *Store) UpsertDomain(_ context.Context, fqdn string, status models.Status, suggestionID string) (models.DomainRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cand := models.NewCandidateDomain(fqdn)
	rec, exists := s.domains[cand.FQDN]
	if !exists {
		rec = models.DomainRecord{
			FQDN:            cand.FQDN,
			RegistrablePart: cand.RegistrablePart,
			PublicSuffix:    cand.PublicSuffix,
			CreatedAt:       now,
		}
	}

	rec.Status = status
	rec.LastChecked = &now
	rec.UpdatedAt = now
	if rec.SuggestionID == "" && suggestionID != "" {
		rec.SuggestionID = suggestionID
	}

	s.domains[cand.FQDN] = rec
	return rec, nil
}

func (s *Store) GetDomain(_ context.Context, fqdn string) (models.DomainRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.domains[fqdn]
	return rec, ok, nil
}

func (s *Store) ListStaleDomains(_ context.Context, olderThanDays int, limit int) ([]models.DomainRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	var stale []models.DomainRecord
	for _, rec := range s.domains {
		if rec.LastChecked == nil || rec.LastChecked.Before(cutoff) {
			stale = append(stale, rec)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		a, b := stale[i].LastChecked, stale[j].LastChecked
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *Store) SaveSuggestion(_ context.Context, rec models.SuggestionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions[rec.ID] = rec
	return nil
}

func (s *Store) SaveMetrics(_ context.Context, rec models.MetricsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[rec.SuggestionID] = rec
	return nil
}

func (s *Store) FoldWorkerMetrics(_ context.Context, workerID string, jobs int64, processingMs, queueWaitMs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wm := s.workerStats[workerID]
	wm.WorkerID = workerID
	wm.TotalJobs += jobs
	wm.TotalProcessingMs += processingMs
	wm.TotalQueueWaitMs += queueWaitMs
	wm.LastSeen = time.Now().UTC()
	s.workerStats[workerID] = wm
	return nil
}

func (s *Store) GetWorkerMetrics(_ context.Context) ([]models.WorkerMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.WorkerMetrics, 0, len(s.workerStats))
	for _, wm := range s.workerStats {
		out = append(out, wm)
	}
	return out, nil
}

func (s *Store) AppendQueueSnapshot(_ context.Context, snap models.QueueSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-96 * time.Hour)
	pruned := s.snapshots[:0]
	for _, sn := range s.snapshots {
		if sn.Timestamp.After(cutoff) {
			pruned = append(pruned, sn)
		}
	}
	s.snapshots = append(pruned, snap)
	return nil
}

func (s *Store) RateDomain(_ context.Context, fqdn, raterKey string, vote int) (models.DomainRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.domains[fqdn]
	if !ok {
		return models.DomainRecord{}, store.ErrDomainNotFound
	}

	raterRatings, ok := s.ratings[fqdn]
	if !ok {
		raterRatings = make(map[string]models.DomainRating)
		s.ratings[fqdn] = raterRatings
	}

	if existing, ok := raterRatings[raterKey]; ok {
		if existing.Vote == vote {
			return rec, nil
		}
		// Flip: undo the old vote's counter, apply the new one.
		applyVoteDelta(&rec, existing.Vote, -1)
		existing.Vote = vote
		raterRatings[raterKey] = existing
	} else {
		raterRatings[raterKey] = models.DomainRating{
			FQDN: fqdn, RaterKey: raterKey, Vote: vote, CreatedAt: time.Now().UTC(),
		}
	}

	applyVoteDelta(&rec, vote, 1)
	rec.UpdatedAt = time.Now().UTC()
	s.domains[fqdn] = rec
	return rec, nil
}

// applyVoteDelta adjusts rec's upvote/downvote counters by delta in the
// direction of vote, clamped at zero — mirrors utils.py's
// max(0, ... - 1) then += 1 flip arithmetic.
func applyVoteDelta(rec *models.DomainRecord, vote int, delta int) {
	if vote > 0 {
		rec.Upvotes = clampNonNegative(rec.Upvotes + delta)
	} else {
		rec.Downvotes = clampNonNegative(rec.Downvotes + delta)
	}
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func (s *Store) RatingsByRater(_ context.Context, raterKey string) ([]models.DomainRating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.DomainRating
	for _, byRater := range s.ratings {
		if r, ok := byRater[raterKey]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) MigrateAnonRatings(_ context.Context, anonKey, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fqdn, byRater := range s.ratings {
		anon, ok := byRater[anonKey]
		if !ok {
			continue
		}
		if _, userHasRating := byRater[userKey]; userHasRating {
			delete(byRater, anonKey)
			_ = fqdn
			continue
		}
		anon.RaterKey = userKey
		byRater[userKey] = anon
		delete(byRater, anonKey)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
