// Package memqueue implements queue.Client deterministically in-process,
// for tests and for the single-node "server" command when no Redis is
// configured — mirroring the teacher's tasks.memoryClient split from
// tasks.Client, generalized to the four-primitive queue.Client contract.
//
// Unlike the teacher's memoryClient (which spawns a detached goroutine per
// job to decouple from the HTTP request context), this implementation runs
// the registered handler synchronously inside Enqueue so tests never need
// to poll for completion — the contract SPEC_FULL.md §6.1 calls for.
package memqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/exddc/domain-discovery-go/internal/queue"
)

type job struct {
	status queue.JobStatus
}

// Client is a mutex-guarded, synchronous in-memory queue.Client.
type Client struct {
	mu       sync.Mutex
	jobs     map[queue.JobHandle]*job
	locks    map[string]time.Time
	handlers map[string]queue.Handler
}

// New returns a fresh in-memory queue.Client.
func New() *Client {
	return &Client{
		jobs:     make(map[queue.JobHandle]*job),
		locks:    make(map[string]time.Time),
		handlers: make(map[string]queue.Handler),
	}
}

// RegisterHandler wires fnName to h; Enqueue calls it synchronously.
func (c *Client) RegisterHandler(fnName string, h queue.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[fnName] = h
}

// Enqueue runs the registered handler for fnName synchronously and records
// its outcome under a fresh handle.
func (c *Client) Enqueue(ctx context.Context, fnName string, args []byte, timeout time.Duration) (queue.JobHandle, error) {
	c.mu.Lock()
	h, ok := c.handlers[fnName]
	c.mu.Unlock()

	handle := queue.JobHandle(uuid.NewString())
	if !ok {
		return "", fmt.Errorf("memqueue: no handler registered for %q", fnName)
	}

	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := h(jobCtx, args)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.jobs[handle] = &job{status: queue.JobStatus{State: queue.JobFailed, Error: err.Error()}}
	} else {
		c.jobs[handle] = &job{status: queue.JobStatus{State: queue.JobFinished, Result: result}}
	}

	return handle, nil
}

// JobStatus returns the recorded outcome for handle.
func (c *Client) JobStatus(_ context.Context, handle queue.JobHandle) (queue.JobStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[handle]
	if !ok {
		return queue.JobStatus{}, fmt.Errorf("memqueue: unknown job handle %q", handle)
	}
	return j.status, nil
}

// QueueDepth is always zero: Enqueue executes synchronously, so no job is
// ever pending by the time Enqueue returns.
func (c *Client) QueueDepth(_ context.Context) (int64, error) {
	return 0, nil
}

// SetIfAbsent sets key only if absent or expired, with ttl.
func (c *Client) SetIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.locks[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	c.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// Delete releases a previously set key.
func (c *Client) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, key)
	return nil
}

// Close is a no-op for the in-memory implementation.
func (c *Client) Close() error { return nil }

var _ queue.Client = (*Client)(nil)
