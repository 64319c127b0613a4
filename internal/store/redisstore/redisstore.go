// Package redisstore implements store.Store over Redis: one JSON string key
// per domain/suggestion/metrics/worker-metrics record, one hash of votes
// per rated domain, plus a sorted-set index for stale-domain selection,
// mirroring the teacher's tasks/asynq.go idiom of
// storing JSON payloads in Redis keys with go-redis/v9.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/store"
)

const (
	domainKeyPrefix      = "domaindiscovery:domain:"
	domainStaleIndexKey  = "domaindiscovery:domains:by_last_checked"
	suggestionKeyPrefix  = "domaindiscovery:suggestion:"
	metricsKeyPrefix     = "domaindiscovery:metrics:"
	workerKeyPrefix      = "domaindiscovery:worker:"
	workerIndexKey       = "domaindiscovery:workers"
	snapshotListKey      = "domaindiscovery:queue_snapshots"
	ratingKeyPrefix      = "domaindiscovery:rating:" // + fqdn -> hash of raterKey -> vote json
	snapshotRetention    = 96 * time.Hour
	maxSnapshotListItems = 10000
)

// Store is a Redis-backed store.Store.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing go-redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func domainKey(fqdn string) string { return domainKeyPrefix + fqdn }

func (s *Store) UpsertDomain(ctx context.Context, fqdn string, status models.Status, suggestionID string) (models.DomainRecord, error) {
	cand := models.NewCandidateDomain(fqdn)
	key := domainKey(cand.FQDN)
	now := time.Now().UTC()

	rec, ok, err := s.GetDomain(ctx, cand.FQDN)
	if err != nil {
		return models.DomainRecord{}, err
	}
	if !ok {
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

	payload, err := json.Marshal(rec)
	if err != nil {
		return models.DomainRecord{}, fmt.Errorf("marshal domain record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.ZAdd(ctx, domainStaleIndexKey, redis.Z{Score: float64(now.Unix()), Member: cand.FQDN})
	if _, err := pipe.Exec(ctx); err != nil {
		return models.DomainRecord{}, fmt.Errorf("upsert domain: %w", err)
	}

	return rec, nil
}

func (s *Store) GetDomain(ctx context.Context, fqdn string) (models.DomainRecord, bool, error) {
	raw, err := s.rdb.Get(ctx, domainKey(fqdn)).Bytes()
	if err == redis.Nil {
		return models.DomainRecord{}, false, nil
	}
	if err != nil {
		return models.DomainRecord{}, false, fmt.Errorf("get domain: %w", err)
	}

	var rec models.DomainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.DomainRecord{}, false, fmt.Errorf("unmarshal domain record: %w", err)
	}
	return rec, true, nil
}

// ListStaleDomains reads the oldest-scored members of the last_checked
// sorted-set index, then fetches each record. UpsertDomain scores every
// domain by its last_checked time, so the least recently checked sort
// first.
func (s *Store) ListStaleDomains(ctx context.Context, olderThanDays int, limit int) ([]models.DomainRecord, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays).Unix()

	fqdns, err := s.rdb.ZRangeByScore(ctx, domainStaleIndexKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", cutoff),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list stale domains: %w", err)
	}

	out := make([]models.DomainRecord, 0, len(fqdns))
	for _, fqdn := range fqdns {
		rec, ok, err := s.GetDomain(ctx, fqdn)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) SaveSuggestion(ctx context.Context, rec models.SuggestionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal suggestion record: %w", err)
	}
	return s.rdb.Set(ctx, suggestionKeyPrefix+rec.ID, payload, 0).Err()
}

func (s *Store) SaveMetrics(ctx context.Context, rec models.MetricsRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal metrics record: %w", err)
	}
	return s.rdb.Set(ctx, metricsKeyPrefix+rec.SuggestionID, payload, 0).Err()
}

func (s *Store) FoldWorkerMetrics(ctx context.Context, workerID string, jobs int64, processingMs, queueWaitMs float64) error {
	key := workerKeyPrefix + workerID

	var wm models.WorkerMetrics
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if uerr := json.Unmarshal(raw, &wm); uerr != nil {
			return fmt.Errorf("unmarshal worker metrics: %w", uerr)
		}
	} else if err != redis.Nil {
		return fmt.Errorf("get worker metrics: %w", err)
	}

	wm.WorkerID = workerID
	wm.TotalJobs += jobs
	wm.TotalProcessingMs += processingMs
	wm.TotalQueueWaitMs += queueWaitMs
	wm.LastSeen = time.Now().UTC()

	payload, err := json.Marshal(wm)
	if err != nil {
		return fmt.Errorf("marshal worker metrics: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, 0)
	pipe.SAdd(ctx, workerIndexKey, workerID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) GetWorkerMetrics(ctx context.Context) ([]models.WorkerMetrics, error) {
	workerIDs, err := s.rdb.SMembers(ctx, workerIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}

	out := make([]models.WorkerMetrics, 0, len(workerIDs))
	for _, id := range workerIDs {
		raw, err := s.rdb.Get(ctx, workerKeyPrefix+id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get worker metrics %q: %w", id, err)
		}
		var wm models.WorkerMetrics
		if err := json.Unmarshal(raw, &wm); err != nil {
			return nil, fmt.Errorf("unmarshal worker metrics %q: %w", id, err)
		}
		out = append(out, wm)
	}
	return out, nil
}

// AppendQueueSnapshot pushes an entry onto a capped list, then prunes
// entries older than snapshotRetention.
func (s *Store) AppendQueueSnapshot(ctx context.Context, snap models.QueueSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal queue snapshot: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, snapshotListKey, payload)
	pipe.LTrim(ctx, snapshotListKey, -maxSnapshotListItems, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append queue snapshot: %w", err)
	}

	return s.pruneOldSnapshots(ctx)
}

func (s *Store) pruneOldSnapshots(ctx context.Context) error {
	raw, err := s.rdb.LRange(ctx, snapshotListKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("range queue snapshots: %w", err)
	}

	cutoff := time.Now().UTC().Add(-snapshotRetention)
	dropUntil := 0
	for _, item := range raw {
		var snap models.QueueSnapshot
		if json.Unmarshal([]byte(item), &snap) == nil && snap.Timestamp.Before(cutoff) {
			dropUntil++
			continue
		}
		break
	}
	if dropUntil == 0 {
		return nil
	}
	return s.rdb.LTrim(ctx, snapshotListKey, int64(dropUntil), -1).Err()
}

func (s *Store) RateDomain(ctx context.Context, fqdn, raterKey string, vote int) (models.DomainRecord, error) {
	rec, ok, err := s.GetDomain(ctx, fqdn)
	if err != nil {
		return models.DomainRecord{}, err
	}
	if !ok {
		return models.DomainRecord{}, store.ErrDomainNotFound
	}

	ratingsKey := ratingKeyPrefix + fqdn
	raw, err := s.rdb.HGet(ctx, ratingsKey, raterKey).Bytes()
	if err != nil && err != redis.Nil {
		return models.DomainRecord{}, fmt.Errorf("get rating: %w", err)
	}

	if err == nil {
		var existing models.DomainRating
		if uerr := json.Unmarshal(raw, &existing); uerr == nil {
			if existing.Vote == vote {
				return rec, nil
			}
			applyVoteDelta(&rec, existing.Vote, -1)
		}
	}

	applyVoteDelta(&rec, vote, 1)
	rec.UpdatedAt = time.Now().UTC()

	rating := models.DomainRating{FQDN: fqdn, RaterKey: raterKey, Vote: vote, CreatedAt: time.Now().UTC()}
	ratingPayload, err := json.Marshal(rating)
	if err != nil {
		return models.DomainRecord{}, fmt.Errorf("marshal rating: %w", err)
	}
	recPayload, err := json.Marshal(rec)
	if err != nil {
		return models.DomainRecord{}, fmt.Errorf("marshal domain record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, ratingsKey, raterKey, ratingPayload)
	pipe.Set(ctx, domainKey(fqdn), recPayload, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return models.DomainRecord{}, fmt.Errorf("rate domain: %w", err)
	}

	return rec, nil
}

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

// RatingsByRater scans every rating hash for raterKey. This is an O(domains)
// scan; spec.md does not require a reverse rater->domains index, and the
// expected per-rater rating count (used only for LLM preference derivation)
// is small.
func (s *Store) RatingsByRater(ctx context.Context, raterKey string) ([]models.DomainRating, error) {
	var out []models.DomainRating
	var cursor uint64

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, ratingKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan ratings: %w", err)
		}

		for _, key := range keys {
			raw, err := s.rdb.HGet(ctx, key, raterKey).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("hget rating: %w", err)
			}
			var rating models.DomainRating
			if err := json.Unmarshal(raw, &rating); err != nil {
				return nil, fmt.Errorf("unmarshal rating: %w", err)
			}
			out = append(out, rating)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return out, nil
}

// MigrateAnonRatings moves every rating keyed under anonKey to userKey,
// dropping the anon rating where the user already rated the same domain.
func (s *Store) MigrateAnonRatings(ctx context.Context, anonKey, userKey string) error {
	var cursor uint64

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, ratingKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan ratings: %w", err)
		}

		for _, key := range keys {
			anonRaw, err := s.rdb.HGet(ctx, key, anonKey).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return fmt.Errorf("hget anon rating: %w", err)
			}

			exists, err := s.rdb.HExists(ctx, key, userKey).Result()
			if err != nil {
				return fmt.Errorf("hexists user rating: %w", err)
			}
			if exists {
				if err := s.rdb.HDel(ctx, key, anonKey).Err(); err != nil {
					return fmt.Errorf("hdel anon rating: %w", err)
				}
				continue
			}

			var rating models.DomainRating
			if err := json.Unmarshal(anonRaw, &rating); err != nil {
				return fmt.Errorf("unmarshal anon rating: %w", err)
			}
			rating.RaterKey = userKey
			payload, err := json.Marshal(rating)
			if err != nil {
				return fmt.Errorf("marshal migrated rating: %w", err)
			}

			pipe := s.rdb.TxPipeline()
			pipe.HSet(ctx, key, userKey, payload)
			pipe.HDel(ctx, key, anonKey)
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("migrate rating: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}

var _ store.Store = (*Store)(nil)
