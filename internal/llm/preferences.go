package llm

import (
	"context"

	"github.com/exddc/domain-discovery-go/internal/store"
)

// PreferencesFromRatings derives a Preferences value from a rater's rating
// history, splitting DomainRating.Vote into liked (+1) and disliked (-1)
// lists for the personalized prompt template. FavoritedDomains has no
// source in the rating model and is left empty.
func PreferencesFromRatings(ctx context.Context, st store.Store, raterKey string) (*Preferences, error) {
	ratings, err := st.RatingsByRater(ctx, raterKey)
	if err != nil {
		return nil, err
	}

	prefs := &Preferences{}
	for _, r := range ratings {
		switch {
		case r.Vote > 0:
			prefs.LikedDomains = append(prefs.LikedDomains, r.FQDN)
		case r.Vote < 0:
			prefs.DislikedDomains = append(prefs.DislikedDomains, r.FQDN)
		}
	}
	return prefs, nil
}
