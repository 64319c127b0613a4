// Package worker implements the Worker Runtime (spec.md §4.6): job
// consumption with bounded in-process parallelism, the idle-recheck
// supervisor, and an explicit process-state machine.
//
// Grounded on the teacher's internal/resolver.RunQueries semaphore pattern
// for bounded parallelism and internal/cli/worker.go's asynq.Server wiring
// for job consumption; the idle-recheck loop itself has no teacher
// equivalent and is built fresh in the teacher's goroutine+ticker idiom.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/exddc/domain-discovery-go/internal/checklogic"
	"github.com/exddc/domain-discovery-go/internal/jobspec"
	"github.com/exddc/domain-discovery-go/internal/metrics"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/queue"
	"github.com/exddc/domain-discovery-go/internal/store"
)

// State is one of the Worker Runtime's process-lifecycle states.
type State string

const (
	StateStarting State = "starting"
	StateIdle     State = "idle"
	StateBusy     State = "busy"
	StateDraining State = "draining"
	StateStopped  State = "stopped"
)

const recheckLockKey = "domaindiscovery:recheck_lock"
const recheckLockTTL = 5 * time.Minute
const recheckJobTimeout = 5 * time.Minute

// Config bundles the Worker Runtime's tunables (spec.md §6 WORKER_* vars).
type Config struct {
	MaxConcurrentChecks int
	IdleThreshold       time.Duration
	RecheckInterval     time.Duration
	RecheckBatchSize    int
	EnableIdleRecheck   bool
	RecheckPollInterval time.Duration
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentChecks: 10,
		IdleThreshold:       60 * time.Second,
		RecheckInterval:     7 * 24 * time.Hour,
		RecheckBatchSize:    50,
		EnableIdleRecheck:   true,
		RecheckPollInterval: 30 * time.Second,
	}
}

// Runtime runs the Worker Runtime's job handlers and idle-recheck
// supervisor against a shared queue.Client and store.Store.
type Runtime struct {
	Queue   queue.Client
	Store   store.Store
	Checker *checklogic.Checker
	Config  Config
	Logger  *slog.Logger

	// WorkerID defaults to hostname:pid (spec.md §4.6).
	WorkerID string

	state     atomic.Value // State
	lastJobAt atomic.Value // time.Time
	sem       chan struct{}
	inFlight  sync.WaitGroup
}

// New builds a Runtime and computes its worker_id as hostname:pid.
func New(q queue.Client, st store.Store, checker *checklogic.Checker, cfg Config) *Runtime {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	r := &Runtime{
		Queue:    q,
		Store:    st,
		Checker:  checker,
		Config:   cfg,
		WorkerID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		sem:      make(chan struct{}, maxInt(cfg.MaxConcurrentChecks, 1)),
	}
	r.setState(StateStarting)
	r.lastJobAt.Store(time.Now())
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r *Runtime) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// State returns the current process-lifecycle state.
func (r *Runtime) State() State {
	if v := r.state.Load(); v != nil {
		return v.(State)
	}
	return StateStarting
}

func (r *Runtime) setState(s State) {
	prev := r.State()
	if prev != s {
		r.logger().Info("worker: state transition", "from", prev, "to", s, "worker_id", r.WorkerID)
	}
	r.state.Store(s)
}

// RegisterHandlers wires the two job functions onto Queue: this must be
// called before the queue's consumption loop starts (Mux() for
// redisqueue, immediately for memqueue).
func (r *Runtime) RegisterHandlers() {
	r.Queue.RegisterHandler(jobspec.FnSingleDomainCheck, r.handleSingleCheck)
	r.Queue.RegisterHandler(jobspec.FnDomainRecheck, r.handleRecheck)
	r.setState(StateIdle)
}

// handleSingleCheck implements handle_single_domain_check (spec.md §6).
func (r *Runtime) handleSingleCheck(ctx context.Context, raw []byte) ([]byte, error) {
	r.sem <- struct{}{}
	r.inFlight.Add(1)
	r.setState(StateBusy)
	defer func() {
		<-r.sem
		r.inFlight.Done()
		r.lastJobAt.Store(time.Now())
		if len(r.sem) == 0 {
			r.setState(StateIdle)
		}
	}()

	var args jobspec.SingleCheckArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("unmarshal single check args: %w", err)
	}

	queueWaitMs := float64(time.Now().Unix()-args.EnqueuedAtEpochS) * 1000
	if queueWaitMs < 0 {
		queueWaitMs = 0
	}

	start := time.Now()
	status := r.Checker.Check(ctx, args.FQDN)
	processingMs := float64(time.Since(start).Microseconds()) / 1000.0

	metrics.WorkerJobsTotal.WithLabelValues(r.WorkerID, string(status)).Inc()

	result := jobspec.SingleCheckResult{
		Domain:       args.FQDN,
		Status:       string(status),
		WorkerID:     r.WorkerID,
		ProcessingMs: processingMs,
		QueueWaitMs:  queueWaitMs,
	}

	if r.Store != nil {
		apiStatus := models.MapWorkerStatus(status)
		if _, err := r.Store.UpsertDomain(ctx, args.FQDN, apiStatus, ""); err != nil {
			r.logger().Warn("worker: failed to persist domain record", "fqdn", args.FQDN, "err", err)
		}
	}

	return json.Marshal(result)
}

// handleRecheck implements handle_domain_recheck (spec.md §6): re-runs
// Check Logic against each fqdn in the batch and writes back status +
// last_checked for each.
func (r *Runtime) handleRecheck(ctx context.Context, raw []byte) ([]byte, error) {
	var args jobspec.RecheckArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("unmarshal recheck args: %w", err)
	}

	results := make([]jobspec.RecheckResultEntry, 0, len(args.FQDNs))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, fqdn := range args.FQDNs {
		fqdn := fqdn
		r.sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-r.sem
				wg.Done()
			}()

			status := r.Checker.Check(ctx, fqdn)
			if r.Store != nil {
				apiStatus := models.MapWorkerStatus(status)
				if _, err := r.Store.UpsertDomain(ctx, fqdn, apiStatus, ""); err != nil {
					r.logger().Warn("worker: recheck upsert failed", "fqdn", fqdn, "err", err)
				}
			}

			mu.Lock()
			results = append(results, jobspec.RecheckResultEntry{Domain: fqdn, Status: string(status)})
			mu.Unlock()
		}()
	}
	wg.Wait()

	return json.Marshal(results)
}

// RunIdleRecheckSupervisor runs the idle-recheck loop until ctx is
// cancelled (spec.md §4.6). It is a no-op goroutine when
// Config.EnableIdleRecheck is false.
func (r *Runtime) RunIdleRecheckSupervisor(ctx context.Context) {
	if !r.Config.EnableIdleRecheck {
		return
	}

	ticker := time.NewTicker(r.Config.RecheckPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.maybeRunRecheckSweep(ctx)
		}
	}
}

func (r *Runtime) maybeRunRecheckSweep(ctx context.Context) {
	depth, err := r.Queue.QueueDepth(ctx)
	if err != nil {
		r.logger().Warn("worker: queue depth check failed", "err", err)
		return
	}
	if depth > 0 {
		return
	}

	last, _ := r.lastJobAt.Load().(time.Time)
	if time.Since(last) < r.Config.IdleThreshold {
		return
	}

	acquired, err := r.Queue.SetIfAbsent(ctx, recheckLockKey, recheckLockTTL)
	if err != nil {
		r.logger().Warn("worker: recheck lock acquisition failed", "err", err)
		return
	}
	if !acquired {
		// Another worker holds the lock; back off to the next tick.
		return
	}
	defer func() {
		if err := r.Queue.Delete(ctx, recheckLockKey); err != nil {
			r.logger().Warn("worker: failed to release recheck lock", "err", err)
		}
	}()

	if r.Store == nil {
		return
	}

	olderThanDays := int(r.Config.RecheckInterval / (24 * time.Hour))
	stale, err := r.Store.ListStaleDomains(ctx, olderThanDays, r.Config.RecheckBatchSize)
	if err != nil {
		r.logger().Warn("worker: failed to list stale domains", "err", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	fqdns := make([]string, len(stale))
	for i, rec := range stale {
		fqdns[i] = rec.FQDN
	}

	args := jobspec.RecheckArgs{FQDNs: fqdns}
	payload, err := json.Marshal(args)
	if err != nil {
		r.logger().Warn("worker: failed to marshal recheck args", "err", err)
		return
	}

	if _, err := r.Queue.Enqueue(ctx, jobspec.FnDomainRecheck, payload, recheckJobTimeout); err != nil {
		r.logger().Warn("worker: failed to enqueue recheck job", "err", err)
	}
}

// Drain transitions the Runtime to draining then stopped, waiting for any
// in-flight single-check jobs to finish first.
func (r *Runtime) Drain() {
	r.setState(StateDraining)
	r.inFlight.Wait()
	r.setState(StateStopped)
}
