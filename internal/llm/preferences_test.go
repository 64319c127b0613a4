package llm

import (
	"context"
	"testing"

	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/store/memstore"
)

func TestPreferencesFromRatingsSplitsLikedAndDisliked(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	for _, fqdn := range []string{"liked.com", "disliked.com"} {
		if _, err := st.UpsertDomain(ctx, fqdn, models.StatusAvailable, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := st.RateDomain(ctx, "liked.com", "user:1", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := st.RateDomain(ctx, "disliked.com", "user:1", -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prefs, err := PreferencesFromRatings(ctx, st, "user:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prefs.LikedDomains) != 1 || prefs.LikedDomains[0] != "liked.com" {
		t.Errorf("expected liked.com in liked domains, got %+v", prefs.LikedDomains)
	}
	if len(prefs.DislikedDomains) != 1 || prefs.DislikedDomains[0] != "disliked.com" {
		t.Errorf("expected disliked.com in disliked domains, got %+v", prefs.DislikedDomains)
	}
}

func TestPreferencesFromRatingsEmptyForUnknownRater(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	prefs, err := PreferencesFromRatings(ctx, st, "user:nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prefs.LikedDomains) != 0 || len(prefs.DislikedDomains) != 0 {
		t.Errorf("expected empty preferences, got %+v", prefs)
	}
}
