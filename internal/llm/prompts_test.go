package llm

import (
	"strings"
	"testing"
)

func TestBuildPromptLegacyInterpolatesDescriptionAndCount(t *testing.T) {
	prompt, err := buildPrompt(PromptTypeLegacy, "a coffee shop in Berlin", 15, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "a coffee shop in Berlin") {
		t.Error("expected prompt to contain the description")
	}
	if !strings.Contains(prompt, "15") {
		t.Error("expected prompt to contain the requested count")
	}
}

func TestBuildPromptDefaultsToLegacy(t *testing.T) {
	prompt, err := buildPrompt("", "widgets", 5, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	legacy, _ := buildPrompt(PromptTypeLegacy, "widgets", 5, nil, nil)
	if prompt != legacy {
		t.Error("expected empty prompt type to default to legacy template")
	}
}

func TestBuildPromptSimilarRequiresSourceDomain(t *testing.T) {
	if _, err := buildPrompt(PromptTypeSimilar, "anything", 5, nil, nil); err == nil {
		t.Error("expected error when similar_context is missing")
	}
	if _, err := buildPrompt(PromptTypeSimilar, "anything", 5, nil, &SimilarContext{}); err == nil {
		t.Error("expected error when source domain is empty")
	}
	prompt, err := buildPrompt(PromptTypeSimilar, "anything", 5, nil, &SimilarContext{SourceDomain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "example.com") {
		t.Error("expected prompt to contain the source domain")
	}
}

func TestBuildPromptUnknownTypeErrors(t *testing.T) {
	if _, err := buildPrompt(PromptType("bogus"), "x", 5, nil, nil); err == nil {
		t.Error("expected error for unknown prompt type")
	}
}

func TestFormatPreferencesSectionNoPreferences(t *testing.T) {
	got := formatPreferencesSection(nil)
	if !strings.Contains(got, "No preference data available") {
		t.Errorf("expected fallback text, got %q", got)
	}

	got = formatPreferencesSection(&Preferences{DislikedDomains: []string{"bad.com"}})
	if !strings.Contains(got, "No preference data available") {
		t.Errorf("expected disliked-only preferences to still report no data, got %q", got)
	}
}

func TestFormatPreferencesSectionIncludesLikedAndCaps(t *testing.T) {
	liked := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		liked = append(liked, strings.Repeat("a", i+1)+".com")
	}
	got := formatPreferencesSection(&Preferences{LikedDomains: liked})
	if !strings.Contains(got, "Liked domains") {
		t.Error("expected liked domains section")
	}
	if strings.Count(got, ".com") != 10 {
		t.Errorf("expected liked domains capped at 10, got %d entries: %q", strings.Count(got, ".com"), got)
	}
}

func TestFormatPreferencesSectionCapsDislikedAtFive(t *testing.T) {
	disliked := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com", "g.com"}
	got := formatPreferencesSection(&Preferences{LikedDomains: []string{"x.com"}, DislikedDomains: disliked})
	if strings.Count(got, "a.com") == 0 {
		t.Error("expected disliked section to be present")
	}
	if strings.Contains(got, "g.com") {
		t.Error("expected disliked domains to be capped at 5, g.com should be dropped")
	}
}

func TestJoinCapped(t *testing.T) {
	got := joinCapped([]string{"a", "b", "c"}, 2)
	if got != "a, b" {
		t.Errorf("expected capped join 'a, b', got %q", got)
	}
	got = joinCapped([]string{"a"}, 5)
	if got != "a" {
		t.Errorf("expected uncapped join 'a', got %q", got)
	}
}

func TestHasPreferencesRequiresLikedOrFavorited(t *testing.T) {
	var nilPrefs *Preferences
	if nilPrefs.HasPreferences() {
		t.Error("expected nil preferences to report false")
	}
	if (&Preferences{DislikedDomains: []string{"a.com"}}).HasPreferences() {
		t.Error("expected disliked-only preferences to report false")
	}
	if !(&Preferences{LikedDomains: []string{"a.com"}}).HasPreferences() {
		t.Error("expected liked preferences to report true")
	}
	if !(&Preferences{FavoritedDomains: []string{"a.com"}}).HasPreferences() {
		t.Error("expected favorited preferences to report true")
	}
}
