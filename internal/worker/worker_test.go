package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/checklogic"
	"github.com/exddc/domain-discovery-go/internal/jobspec"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/queue/memqueue"
	"github.com/exddc/domain-discovery-go/internal/store/memstore"
)

func TestRegisterHandlersTransitionsToIdle(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	r := New(q, st, checker, DefaultConfig())

	if r.State() != StateStarting {
		t.Fatalf("expected starting state before RegisterHandlers, got %v", r.State())
	}
	r.RegisterHandlers()
	if r.State() != StateIdle {
		t.Errorf("expected idle state after RegisterHandlers, got %v", r.State())
	}
}

func TestHandleSingleCheckInvalidFQDNShortCircuits(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	r := New(q, st, checker, DefaultConfig())
	r.RegisterHandlers()

	args := jobspec.SingleCheckArgs{FQDN: "бад.example", EnqueuedAtEpochS: time.Now().Unix()}
	payload, _ := json.Marshal(args)

	raw, err := q.Enqueue(context.Background(), jobspec.FnSingleDomainCheck, payload, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, err := q.JobStatus(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result jobspec.SingleCheckResult
	if err := json.Unmarshal(status.Result, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != string(models.WorkerStatusInvalid) {
		t.Errorf("expected invalid status for non-ASCII fqdn, got %q", result.Status)
	}
	if result.WorkerID == "" {
		t.Error("expected worker_id to be populated")
	}
}

func TestQueueWaitMsClampedAtZero(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	r := New(q, st, checker, DefaultConfig())
	r.RegisterHandlers()

	// enqueued_at in the future must not yield a negative queue_wait_ms.
	args := jobspec.SingleCheckArgs{FQDN: "бад.example", EnqueuedAtEpochS: time.Now().Add(time.Hour).Unix()}
	payload, _ := json.Marshal(args)

	handle, err := q.Enqueue(context.Background(), jobspec.FnSingleDomainCheck, payload, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status, _ := q.JobStatus(context.Background(), handle)

	var result jobspec.SingleCheckResult
	if err := json.Unmarshal(status.Result, &result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QueueWaitMs < 0 {
		t.Errorf("expected queue_wait_ms clamped to zero, got %f", result.QueueWaitMs)
	}
}

func TestMaybeRunRecheckSweepSkipsWhenIdleThresholdNotElapsed(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	cfg := DefaultConfig()
	cfg.IdleThreshold = time.Hour
	r := New(q, st, checker, cfg)
	r.RegisterHandlers()
	r.lastJobAt.Store(time.Now())

	enqueuedJobRecheck := false
	q.RegisterHandler(jobspec.FnDomainRecheck, func(_ context.Context, _ []byte) ([]byte, error) {
		enqueuedJobRecheck = true
		return json.Marshal([]jobspec.RecheckResultEntry{})
	})

	r.maybeRunRecheckSweep(context.Background())
	if enqueuedJobRecheck {
		t.Error("expected no recheck sweep when idle threshold has not elapsed")
	}
}

func TestMaybeRunRecheckSweepEnqueuesStaleBatch(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	cfg := DefaultConfig()
	cfg.IdleThreshold = 0
	cfg.RecheckInterval = 0
	r := New(q, st, checker, cfg)
	r.RegisterHandlers()
	r.lastJobAt.Store(time.Now().Add(-time.Hour))

	if _, err := st.UpsertDomain(context.Background(), "stale.example", models.StatusUnknown, ""); err != nil {
		t.Fatal(err)
	}
	// A zero-day recheck interval makes every already-checked domain
	// immediately eligible.
	time.Sleep(time.Millisecond)

	var sweepFired bool
	q.RegisterHandler(jobspec.FnDomainRecheck, func(_ context.Context, raw []byte) ([]byte, error) {
		sweepFired = true
		var args jobspec.RecheckArgs
		_ = json.Unmarshal(raw, &args)
		return json.Marshal([]jobspec.RecheckResultEntry{})
	})

	r.maybeRunRecheckSweep(context.Background())
	if !sweepFired {
		t.Error("expected a recheck sweep to be enqueued for a stale, idle worker")
	}
}

func TestDrainWaitsForInFlightJobs(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	checker := checklogic.NewChecker(100*time.Millisecond, nil)
	r := New(q, st, checker, DefaultConfig())
	r.RegisterHandlers()

	args := jobspec.SingleCheckArgs{FQDN: "бад.example", EnqueuedAtEpochS: time.Now().Unix()}
	payload, _ := json.Marshal(args)
	if _, err := q.Enqueue(context.Background(), jobspec.FnSingleDomainCheck, payload, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Drain()
	if r.State() != StateStopped {
		t.Errorf("expected stopped state after Drain, got %v", r.State())
	}
}
