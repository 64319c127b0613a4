// Package queue defines the Work Queue Client contract (spec.md §4.1):
// enqueue/poll/depth/set-if-absent/delete over a shared job queue, hiding
// the transport behind an interface with a Redis (Asynq-backed)
// implementation and a deterministic in-memory implementation for tests —
// per spec.md §9's "Queue abstraction" design note.
package queue

import (
	"context"
	"time"
)

// JobState is the lifecycle state of a dispatched job.
type JobState string

const (
	JobPending  JobState = "pending"
	JobFinished JobState = "finished"
	JobFailed   JobState = "failed"
)

// JobHandle identifies a previously enqueued job.
type JobHandle string

// JobStatus is the result of polling a job's state.
type JobStatus struct {
	State  JobState
	Result []byte // opaque structured result payload, present when Finished
	Error  string // present when Failed
}

// Handler executes a job's payload and returns its opaque result.
type Handler func(ctx context.Context, args []byte) ([]byte, error)

// Client is the Work Queue Client contract shared by the Check Dispatcher
// (enqueue/poll/depth) and Worker Runtime (set-if-absent recheck lock).
type Client interface {
	// Enqueue submits one job of the given function name carrying args,
	// bounded by timeout. Enqueue must be atomic.
	Enqueue(ctx context.Context, fnName string, args []byte, timeout time.Duration) (JobHandle, error)

	// JobStatus polls a previously enqueued job's current state.
	JobStatus(ctx context.Context, handle JobHandle) (JobStatus, error)

	// QueueDepth reports the number of jobs currently pending.
	QueueDepth(ctx context.Context) (int64, error)

	// SetIfAbsent is the only-if-not-present primitive with TTL, used for
	// the worker's recheck lock.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Delete removes a key previously set via SetIfAbsent (lock release).
	Delete(ctx context.Context, key string) error

	// RegisterHandler wires a job-type handler for Worker Runtime
	// consumption. Implementations that run a separate server process
	// (asynq) use this to build their ServeMux; the in-memory
	// implementation invokes the handler synchronously inside Enqueue.
	RegisterHandler(fnName string, h Handler)

	Close() error
}
