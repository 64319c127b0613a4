package suggestmetrics

import (
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/models"
)

func TestStopTimerWithoutStartReturnsZero(t *testing.T) {
	tr := New()
	if d := tr.StopTimer("llm"); d != 0 {
		t.Errorf("expected 0 for unstarted timer, got %f", d)
	}
}

func TestStopTimerAccumulatesDuration(t *testing.T) {
	tr := New()
	tr.StartTimer("llm")
	time.Sleep(2 * time.Millisecond)
	d := tr.StopTimer("llm")
	if d <= 0 {
		t.Errorf("expected positive duration, got %f", d)
	}
}

func TestMarkFirstSuggestionIdempotent(t *testing.T) {
	tr := New()
	tr.MarkFirstSuggestion()
	first := tr.timeToFirstMs
	time.Sleep(2 * time.Millisecond)
	tr.MarkFirstSuggestion()
	if tr.timeToFirstMs != first {
		t.Error("expected second MarkFirstSuggestion call to be a no-op")
	}
}

func TestAddDomainsGeneratedDedupsForUniqueCount(t *testing.T) {
	tr := New()
	tr.AddDomainsGenerated([]string{"a.com", "b.com", "a.com"})

	if tr.totalGenerated != 3 {
		t.Errorf("expected total_generated=3, got %d", tr.totalGenerated)
	}
	if len(tr.uniqueDomains) != 2 {
		t.Errorf("expected 2 unique domains, got %d", len(tr.uniqueDomains))
	}
}

func TestSetQueueDepthCarriesIntoSnapshot(t *testing.T) {
	tr := New()
	tr.SetQueueDepth(42)

	rec := tr.Snapshot("sug-1", 5)
	if rec.QueueDepthAtStart != 42 {
		t.Errorf("expected queue_depth_at_start=42, got %d", rec.QueueDepthAtStart)
	}

	tr.SetQueueDepth(7)
	rec = tr.Snapshot("sug-1", 5)
	if rec.QueueDepthAtStart != 7 {
		t.Errorf("expected later SetQueueDepth call to overwrite, got %d", rec.QueueDepthAtStart)
	}
}

func TestSnapshotSuccessRateAndReachedTarget(t *testing.T) {
	tr := New()
	tr.AddDomainStatus(models.StatusAvailable)
	tr.AddDomainStatus(models.StatusAvailable)
	tr.AddDomainStatus(models.StatusRegistered)

	rec := tr.Snapshot("sugg-1", 2)

	if rec.AvailableCount != 2 {
		t.Errorf("expected available_count=2, got %d", rec.AvailableCount)
	}
	if rec.SuccessRate != 1.0 {
		t.Errorf("expected success_rate=1.0, got %f", rec.SuccessRate)
	}
	if !rec.ReachedTarget {
		t.Error("expected reached_target=true when available_count >= requested_count")
	}
}

func TestSnapshotZeroRequestedCountAvoidsDivideByZero(t *testing.T) {
	tr := New()
	rec := tr.Snapshot("sugg-2", 0)
	if rec.SuccessRate != 0.0 {
		t.Errorf("expected success_rate=0.0 for zero requested_count, got %f", rec.SuccessRate)
	}
	if !rec.ReachedTarget {
		t.Error("expected reached_target=true when requested_count is 0 (0 >= 0)")
	}
}

func TestSnapshotSuccessRateCappedAtOne(t *testing.T) {
	tr := New()
	tr.AddDomainStatus(models.StatusAvailable)
	tr.AddDomainStatus(models.StatusAvailable)
	tr.AddDomainStatus(models.StatusAvailable)

	rec := tr.Snapshot("sugg-overflow", 2)
	if rec.AvailableCount != 3 {
		t.Fatalf("expected available_count=3, got %d", rec.AvailableCount)
	}
	if rec.SuccessRate != 1.0 {
		t.Errorf("expected success_rate capped at 1.0 when availables overflow target, got %f", rec.SuccessRate)
	}
}

func TestSnapshotDomainsReturnedMatchesStatusSum(t *testing.T) {
	tr := New()
	tr.AddDomainStatus(models.StatusAvailable)
	tr.AddDomainStatus(models.StatusRegistered)
	tr.AddDomainStatus(models.StatusRegistered)
	tr.AddDomainStatus(models.StatusUnknown)

	rec := tr.Snapshot("sugg-4", 1)
	if rec.DomainsReturned != rec.AvailableCount+rec.RegisteredCount+rec.UnknownCount {
		t.Errorf("expected domains_returned to equal the status sum, got %+v", rec)
	}
	if rec.DomainsReturned != 4 {
		t.Errorf("expected domains_returned=4, got %d", rec.DomainsReturned)
	}
}

func TestSnapshotIsStableAcrossCalls(t *testing.T) {
	tr := New()
	tr.AddError("boom")
	tr.AddLLMTokens(100, 60, 40)

	rec := tr.Snapshot("sugg-3", 5)
	if rec.ErrorCount != 1 || rec.Errors[0] != "boom" {
		t.Errorf("expected recorded error to survive snapshot, got %+v", rec.Errors)
	}
	if rec.LLMTokensTotal != 100 || rec.LLMTokensPrompt != 60 || rec.LLMTokensComplete != 40 {
		t.Errorf("expected token counters to roundtrip, got %+v", rec)
	}
}
