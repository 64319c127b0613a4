// Package dispatcher implements the Check Dispatcher (spec.md §4.5): the
// API-side fan-out/fan-in layer that turns a batch of candidate domains
// into individual queue jobs, collects results under a deadline, and
// returns a total status map.
//
// Grounded on the teacher's internal/resolver.RunQueries fan-out shape
// (the enqueue phase here submits jobs one after another, with no
// semaphore) and internal/tasks/asynq.go's GetTaskStatus poll idiom,
// adapted into a deadline-bound poll loop.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/exddc/domain-discovery-go/internal/jobspec"
	"github.com/exddc/domain-discovery-go/internal/metrics"
	"github.com/exddc/domain-discovery-go/internal/models"
	"github.com/exddc/domain-discovery-go/internal/queue"
	"github.com/exddc/domain-discovery-go/internal/store"
	"github.com/exddc/domain-discovery-go/internal/validator"
)

// enqueueRetryBackoffMs is the per-attempt backoff schedule for a failed
// enqueue, per spec.md §4.5 step 2.
var enqueueRetryBackoffMs = []time.Duration{
	100 * time.Millisecond,
	200 * time.Millisecond,
	300 * time.Millisecond,
}

const pollInterval = 200 * time.Millisecond

// WorkerStat is one worker's contribution to a single dispatch call,
// folded additively into persistence at step 6.
type WorkerStat struct {
	WorkerID     string
	Jobs         int64
	ProcessingMs float64
	QueueWaitMs  float64
}

// Result is the Check Dispatcher's output (spec.md §4.5's contract).
type Result struct {
	Statuses    map[string]models.WorkerStatus
	WorkerStats []WorkerStat
	Invalid     []string
}

// Dispatcher fans a candidate batch out to the Work Queue Client and fans
// the results back in under a deadline.
type Dispatcher struct {
	Queue      queue.Client
	Store      store.Store
	JobTimeout time.Duration

	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger
}

// New builds a Dispatcher.
func New(q queue.Client, st store.Store, jobTimeout time.Duration) *Dispatcher {
	return &Dispatcher{Queue: q, Store: st, JobTimeout: jobTimeout}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// QueueDepth reports the Work Queue Client's current pending-job count,
// sampled by the Orchestrator at request entry for the Metrics Tracker's
// queue_depth_at_start field.
func (d *Dispatcher) QueueDepth(ctx context.Context) (int64, error) {
	return d.Queue.QueueDepth(ctx)
}

// Dispatch runs spec.md §4.5's six-step algorithm over candidates.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []string) (Result, error) {
	valid, invalid := validator.Filter(candidates)

	statuses := make(map[string]models.WorkerStatus, len(candidates))
	for _, fqdn := range invalid {
		statuses[fqdn] = models.WorkerStatusInvalid
	}

	handles := make(map[string]queue.JobHandle, len(valid))
	enqueuedAt := time.Now()

	for _, fqdn := range valid {
		handle, err := d.enqueueWithRetry(ctx, fqdn, enqueuedAt)
		if err != nil {
			d.logger().Warn("dispatcher: enqueue exhausted retries", "fqdn", fqdn, "err", err)
			statuses[fqdn] = models.WorkerStatusNonConclusive
			continue
		}
		handles[fqdn] = handle
	}

	// No worker has reported in yet at enqueue time.
	d.snapshotQueueDepth(ctx, 0)

	stats := d.pollAndHarvest(ctx, handles, statuses)

	// Step 5: any originally-valid fqdn without a harvested result becomes
	// non_conclusive (bridged to "unknown" at the API boundary).
	for _, fqdn := range valid {
		if _, ok := statuses[fqdn]; !ok {
			statuses[fqdn] = models.WorkerStatusNonConclusive
		}
	}

	// activeWorkers counts the distinct workers that harvested a result
	// during this dispatch, not the job/handle count.
	d.snapshotQueueDepth(ctx, len(stats))

	// Step 6: fold-and-persist worker stats, fire-and-forget.
	if d.Store != nil && len(stats) > 0 {
		go func() {
			foldCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := Fold(foldCtx, d.Store, stats); err != nil {
				d.logger().Warn("dispatcher: failed to fold worker stats", "err", err)
			}
		}()
	}

	return Result{Statuses: statuses, WorkerStats: stats, Invalid: invalid}, nil
}

func (d *Dispatcher) enqueueWithRetry(ctx context.Context, fqdn string, enqueuedAt time.Time) (queue.JobHandle, error) {
	args := jobspec.SingleCheckArgs{FQDN: fqdn, EnqueuedAtEpochS: enqueuedAt.Unix()}
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal job args: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(enqueueRetryBackoffMs); attempt++ {
		handle, err := d.Queue.Enqueue(ctx, jobspec.FnSingleDomainCheck, payload, d.JobTimeout)
		if err == nil {
			return handle, nil
		}
		lastErr = err
		if attempt < len(enqueueRetryBackoffMs) {
			select {
			case <-time.After(enqueueRetryBackoffMs[attempt]):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", lastErr
}

func (d *Dispatcher) snapshotQueueDepth(ctx context.Context, activeWorkers int) {
	if d.Store == nil {
		return
	}
	depth, err := d.Queue.QueueDepth(ctx)
	if err != nil {
		d.logger().Warn("dispatcher: queue depth sample failed", "err", err)
		return
	}
	metrics.QueueDepthGauge.Set(float64(depth))

	// Fire-and-forget: the Dispatcher never blocks on persistence.
	go func() {
		snapCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		snap := models.QueueSnapshot{Timestamp: time.Now().UTC(), QueueDepth: depth, ActiveWorkers: activeWorkers}
		if err := d.Store.AppendQueueSnapshot(snapCtx, snap); err != nil {
			d.logger().Warn("dispatcher: failed to persist queue snapshot", "err", err)
		}
	}()
}

// pollAndHarvest polls pending job handles at pollInterval until either all
// are harvested or d.JobTimeout elapses, mutating statuses and
// accumulating per-worker stats as jobs finish.
func (d *Dispatcher) pollAndHarvest(ctx context.Context, handles map[string]queue.JobHandle, statuses map[string]models.WorkerStatus) []WorkerStat {
	deadline := time.Now().Add(d.JobTimeout)
	statsByWorker := make(map[string]*WorkerStat)

	pending := make(map[string]queue.JobHandle, len(handles))
	for k, v := range handles {
		pending[k] = v
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	harvest := func() {
		for fqdn, handle := range pending {
			st, err := d.Queue.JobStatus(ctx, handle)
			if err != nil {
				continue
			}
			switch st.State {
			case queue.JobFinished:
				d.applyResult(fqdn, st.Result, statuses, statsByWorker)
				delete(pending, fqdn)
			case queue.JobFailed:
				// Dropped: fqdn falls through to non_conclusive at step 5.
				delete(pending, fqdn)
			}
		}
	}

	harvest()
	for len(pending) > 0 && time.Now().Before(deadline) {
		select {
		case <-ticker.C:
			harvest()
		case <-ctx.Done():
			stats := make([]WorkerStat, 0, len(statsByWorker))
			for _, s := range statsByWorker {
				stats = append(stats, *s)
			}
			return stats
		}
	}

	stats := make([]WorkerStat, 0, len(statsByWorker))
	for _, s := range statsByWorker {
		stats = append(stats, *s)
	}
	return stats
}

func (d *Dispatcher) applyResult(fqdn string, raw []byte, statuses map[string]models.WorkerStatus, statsByWorker map[string]*WorkerStat) {
	var result jobspec.SingleCheckResult
	if err := json.Unmarshal(raw, &result); err != nil {
		d.logger().Warn("dispatcher: malformed job result", "fqdn", fqdn, "err", err)
		return
	}

	statuses[fqdn] = models.WorkerStatus(result.Status)

	stat, ok := statsByWorker[result.WorkerID]
	if !ok {
		stat = &WorkerStat{WorkerID: result.WorkerID}
		statsByWorker[result.WorkerID] = stat
	}
	stat.Jobs++
	stat.ProcessingMs += result.ProcessingMs
	stat.QueueWaitMs += result.QueueWaitMs
}

// Fold persists per-worker stats additively via internal/store, and is
// meant to be run fire-and-forget after Dispatch returns — step 6's
// "schedule an async accumulate-and-persist".
func Fold(ctx context.Context, st store.Store, stats []WorkerStat) error {
	var firstErr error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, s := range stats {
		wg.Add(1)
		go func(s WorkerStat) {
			defer wg.Done()
			if err := st.FoldWorkerMetrics(ctx, s.WorkerID, s.Jobs, s.ProcessingMs, s.QueueWaitMs); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	return firstErr
}
