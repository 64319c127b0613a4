package resolver

import (
	"context"
	"testing"
	"time"
)

// TestCheckRegisteredContextCancelled verifies an already-cancelled context
// short-circuits to OutcomeNonConclusive rather than attempting network I/O.
func TestCheckRegisteredContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := CheckRegistered(ctx, "example.invalid", 50*time.Millisecond, []string{"udp://127.0.0.1:1"})
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if outcome != OutcomeNonConclusive {
		t.Errorf("outcome = %v, want OutcomeNonConclusive", outcome)
	}
}

// TestCheckRegisteredDefaultsUpstream verifies an empty upstream list falls
// back to DefaultUpstream without panicking, using an already-cancelled
// context so the test never depends on real network reachability.
func TestCheckRegisteredDefaultsUpstream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := CheckRegistered(ctx, "example.invalid", 5*time.Millisecond, nil)
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if outcome != OutcomeNonConclusive {
		t.Errorf("outcome = %v, want OutcomeNonConclusive", outcome)
	}
}
