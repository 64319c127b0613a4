package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/exddc/domain-discovery-go/internal/config"
	"github.com/exddc/domain-discovery-go/internal/jobspec"
	"github.com/exddc/domain-discovery-go/internal/queue"
	"github.com/exddc/domain-discovery-go/internal/queue/memqueue"
	"github.com/exddc/domain-discovery-go/internal/store/memstore"
)

func TestNewDepsMemoryModeByDefault(t *testing.T) {
	deps, err := NewDeps(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := deps.Queue.(*memqueue.Client); !ok {
		t.Errorf("expected memqueue.Client, got %T", deps.Queue)
	}
	if _, ok := deps.Store.(*memstore.Store); !ok {
		t.Errorf("expected memstore.Store, got %T", deps.Store)
	}
	if deps.Checker == nil {
		t.Error("expected a non-nil Checker")
	}
}

func TestNewAPIAppBuildsRouter(t *testing.T) {
	deps, err := NewDeps(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	apiApp := NewAPIApp(&config.Config{}, deps)
	if apiApp.Router() == nil {
		t.Error("expected a non-nil Router")
	}
}

func TestNewWorkerAppRegistersHandlers(t *testing.T) {
	deps, err := NewDeps(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	workerApp := NewWorkerApp(&config.Config{}, deps)
	if workerApp.Runtime == nil {
		t.Fatal("expected a non-nil Runtime")
	}
	if workerApp.Runtime.State() != "idle" {
		t.Errorf("expected state idle after handler registration, got %q", workerApp.Runtime.State())
	}
}

// TestMemoryModeDispatchSucceedsWithWorkerRegistered guards the fix for
// memory mode's "no handler registered" failure: an APIApp's dispatcher
// must be able to enqueue against the same deps.Queue a WorkerApp
// registers handlers on.
func TestMemoryModeDispatchSucceedsWithWorkerRegistered(t *testing.T) {
	deps, err := NewDeps(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = NewWorkerApp(&config.Config{}, deps)

	payload, _ := json.Marshal(jobspec.SingleCheckArgs{FQDN: "example.com"})
	handle, err := deps.Queue.Enqueue(context.Background(), jobspec.FnSingleDomainCheck, payload, time.Second)
	if err != nil {
		t.Fatalf("expected enqueue against a registered handler to succeed, got: %v", err)
	}

	status, err := deps.Queue.JobStatus(context.Background(), handle)
	if err != nil {
		t.Fatalf("unexpected error reading job status: %v", err)
	}
	if status.State != queue.JobFinished {
		t.Errorf("expected job to finish, got state %q (err=%q)", status.State, status.Error)
	}
}
