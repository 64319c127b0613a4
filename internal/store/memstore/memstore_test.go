package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/store"
)

func TestUpsertDomainCreatesThenUpdates(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec, err := s.UpsertDomain(ctx, "Example.COM.", models.StatusUnknown, "sugg-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.FQDN != "example.com" {
		t.Errorf("expected normalized fqdn, got %q", rec.FQDN)
	}
	if rec.SuggestionID != "sugg-1" {
		t.Errorf("expected suggestion_id sugg-1, got %q", rec.SuggestionID)
	}
	if rec.LastChecked == nil {
		t.Fatal("expected last_checked to be set")
	}

	updated, err := s.UpsertDomain(ctx, "example.com", models.StatusAvailable, "sugg-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != models.StatusAvailable {
		t.Errorf("expected status to be last-writer-wins updated, got %q", updated.Status)
	}
	if updated.SuggestionID != "sugg-1" {
		t.Errorf("expected suggestion_id to remain first-writer-wins sugg-1, got %q", updated.SuggestionID)
	}
}

func TestGetDomainMissing(t *testing.T) {
	s := New()
	_, ok, err := s.GetDomain(context.Background(), "nope.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing domain")
	}
}

func TestListStaleDomainsOrdersOldestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertDomain(ctx, "a.com", models.StatusUnknown, ""); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := s.UpsertDomain(ctx, "b.com", models.StatusUnknown, ""); err != nil {
		t.Fatal(err)
	}

	// Force a.com stale and b.com fresh.
	s.mu.Lock()
	aRec := s.domains["a.com"]
	old := time.Now().UTC().AddDate(0, 0, -10)
	aRec.LastChecked = &old
	s.domains["a.com"] = aRec
	s.mu.Unlock()

	stale, err := s.ListStaleDomains(ctx, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 1 || stale[0].FQDN != "a.com" {
		t.Errorf("expected only a.com to be stale, got %+v", stale)
	}
}

func TestRateDomainRequiresExistingRecord(t *testing.T) {
	s := New()
	_, err := s.RateDomain(context.Background(), "missing.example", "anon:1", 1)
	if err != store.ErrDomainNotFound {
		t.Errorf("expected ErrDomainNotFound, got %v", err)
	}
}

func TestRateDomainUpvoteThenFlip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertDomain(ctx, "rate.example", models.StatusAvailable, ""); err != nil {
		t.Fatal(err)
	}

	rec, err := s.RateDomain(ctx, "rate.example", "anon:1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Upvotes != 1 || rec.Downvotes != 0 {
		t.Errorf("expected 1 upvote, got up=%d down=%d", rec.Upvotes, rec.Downvotes)
	}

	rec, err = s.RateDomain(ctx, "rate.example", "anon:1", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Upvotes != 0 || rec.Downvotes != 1 {
		t.Errorf("expected flip to 1 downvote, got up=%d down=%d", rec.Upvotes, rec.Downvotes)
	}

	// Same vote again is a no-op.
	rec, err = s.RateDomain(ctx, "rate.example", "anon:1", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Downvotes != 1 {
		t.Errorf("expected idempotent re-vote, got downvotes=%d", rec.Downvotes)
	}
}

func TestMigrateAnonRatingsDedupOnConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertDomain(ctx, "migrate.example", models.StatusAvailable, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RateDomain(ctx, "migrate.example", "anon:1", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RateDomain(ctx, "migrate.example", "user:1", -1); err != nil {
		t.Fatal(err)
	}

	if err := s.MigrateAnonRatings(ctx, "anon:1", "user:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ratings, err := s.RatingsByRater(ctx, "user:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ratings) != 1 {
		t.Fatalf("expected exactly one surviving rating for user:1, got %d", len(ratings))
	}
	if ratings[0].Vote != -1 {
		t.Errorf("expected the user's own pre-existing vote to survive the dedup, got %d", ratings[0].Vote)
	}

	anonRatings, err := s.RatingsByRater(ctx, "anon:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(anonRatings) != 0 {
		t.Errorf("expected anon rating to be dropped after dedup, got %+v", anonRatings)
	}
}

func TestMigrateAnonRatingsReassignsWhenNoConflict(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.UpsertDomain(ctx, "reassign.example", models.StatusAvailable, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RateDomain(ctx, "reassign.example", "anon:2", 1); err != nil {
		t.Fatal(err)
	}

	if err := s.MigrateAnonRatings(ctx, "anon:2", "user:2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ratings, err := s.RatingsByRater(ctx, "user:2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ratings) != 1 || ratings[0].Vote != 1 {
		t.Errorf("expected reassigned rating to carry over, got %+v", ratings)
	}
}

func TestFoldWorkerMetricsAccumulates(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.FoldWorkerMetrics(ctx, "worker-1", 3, 150.0, 20.0); err != nil {
		t.Fatal(err)
	}
	if err := s.FoldWorkerMetrics(ctx, "worker-1", 2, 100.0, 10.0); err != nil {
		t.Fatal(err)
	}

	all, err := s.GetWorkerMetrics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one worker record, got %d", len(all))
	}
	if all[0].TotalJobs != 5 {
		t.Errorf("expected accumulated 5 jobs, got %d", all[0].TotalJobs)
	}
	if all[0].TotalProcessingMs != 250.0 {
		t.Errorf("expected accumulated 250ms processing, got %f", all[0].TotalProcessingMs)
	}
}

func TestAppendQueueSnapshotPrunesOld(t *testing.T) {
	s := New()
	ctx := context.Background()

	old := models.QueueSnapshot{Timestamp: time.Now().UTC().Add(-100 * time.Hour), QueueDepth: 5}
	fresh := models.QueueSnapshot{Timestamp: time.Now().UTC(), QueueDepth: 1}

	if err := s.AppendQueueSnapshot(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendQueueSnapshot(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) != 1 {
		t.Fatalf("expected stale snapshot pruned, got %d entries", len(s.snapshots))
	}
	if s.snapshots[0].QueueDepth != 1 {
		t.Errorf("expected the fresh snapshot to survive, got %+v", s.snapshots[0])
	}
}
