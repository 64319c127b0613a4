package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/jobspec"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/queue"
	"github.com/exddc/domain-discovery-go/internal/queue/memqueue"
	"github.com/exddc/domain-discovery-go/internal/store/memstore"
)

// registerStubHandler registers a handler that returns a fixed status per
// fqdn, simulating a Worker Runtime without any real DNS/WHOIS I/O.
func registerStubHandler(q *memqueue.Client, statusByFQDN map[string]models.WorkerStatus) {
	q.RegisterHandler(jobspec.FnSingleDomainCheck, func(_ context.Context, args []byte) ([]byte, error) {
		var in jobspec.SingleCheckArgs
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, err
		}
		status, ok := statusByFQDN[in.FQDN]
		if !ok {
			status = models.WorkerStatusNonConclusive
		}
		out := jobspec.SingleCheckResult{
			Domain:       in.FQDN,
			Status:       string(status),
			WorkerID:     "test-worker:1",
			ProcessingMs: 5,
			QueueWaitMs:  1,
		}
		return json.Marshal(out)
	})
}

func TestDispatchReturnsTotalStatusMap(t *testing.T) {
	q := memqueue.New()
	registerStubHandler(q, map[string]models.WorkerStatus{
		"free.example":       models.WorkerStatusFree,
		"registered.example": models.WorkerStatusRegistered,
	})
	st := memstore.New()
	d := New(q, st, 2*time.Second)

	candidates := []string{"free.example", "registered.example", "бад.example"}
	result, err := d.Dispatch(context.Background(), candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Statuses["free.example"] != models.WorkerStatusFree {
		t.Errorf("expected free.example free, got %v", result.Statuses["free.example"])
	}
	if result.Statuses["registered.example"] != models.WorkerStatusRegistered {
		t.Errorf("expected registered.example registered, got %v", result.Statuses["registered.example"])
	}
	if result.Statuses["бад.example"] != models.WorkerStatusInvalid {
		t.Errorf("expected бад.example invalid, got %v", result.Statuses["бад.example"])
	}

	if len(result.Invalid) != 1 || result.Invalid[0] != "бад.example" {
		t.Errorf("expected invalid list to contain бад.example, got %+v", result.Invalid)
	}

	for _, fqdn := range candidates {
		if _, ok := result.Statuses[fqdn]; !ok {
			t.Errorf("expected total status map to cover %q", fqdn)
		}
	}
}

func TestDispatchEmptyCandidates(t *testing.T) {
	q := memqueue.New()
	st := memstore.New()
	d := New(q, st, time.Second)

	result, err := d.Dispatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Statuses) != 0 {
		t.Errorf("expected empty status map for empty input, got %+v", result.Statuses)
	}
}

func TestDispatchUnregisteredHandlerFallsThroughToNonConclusive(t *testing.T) {
	q := memqueue.New() // no handler registered for FnSingleDomainCheck
	st := memstore.New()
	d := New(q, st, 500*time.Millisecond)

	result, err := d.Dispatch(context.Background(), []string{"orphan.example"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Statuses["orphan.example"] != models.WorkerStatusNonConclusive {
		t.Errorf("expected non_conclusive fallback when enqueue fails, got %v", result.Statuses["orphan.example"])
	}
}
