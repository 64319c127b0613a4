// Package redisqueue implements queue.Client over Redis via
// hibiken/asynq, the teacher's own queue dependency (internal/tasks/asynq.go),
// generalized from a DNS-lookup-specific client to the four-primitive
// queue.Client contract (enqueue, job-status, depth, set-if-absent).
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/exddc/domain-discovery-go/internal/queue"
)

const resultKeyPrefix = "domaindiscovery:result:"

// Client wraps asynq's Client/Inspector plus a raw go-redis connection for
// result caching and the recheck lock, exactly as the teacher's
// tasks.Client does.
type Client struct {
	asynqClient *asynq.Client
	inspector   *asynq.Inspector
	redisClient *redis.Client
	queueName   string
	resultTTL   time.Duration
	handlers    map[string]queue.Handler
}

// New creates a Redis-backed queue.Client.
func New(redisURL, queueName string, resultTTL time.Duration) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	redisOpts := asynq.RedisClientOpt{Addr: opt.Addr, Password: opt.Password, DB: opt.DB}

	return &Client{
		asynqClient: asynq.NewClient(redisOpts),
		inspector:   asynq.NewInspector(redisOpts),
		redisClient: redis.NewClient(opt),
		queueName:   queueName,
		resultTTL:   resultTTL,
		handlers:    make(map[string]queue.Handler),
	}, nil
}

// RegisterHandler wires fnName to h for later Mux() construction; the
// actual consumption loop lives in internal/cli's worker command, which
// calls Mux() to build an asynq.Server.
func (c *Client) RegisterHandler(fnName string, h queue.Handler) {
	c.handlers[fnName] = h
}

// Mux builds an asynq.ServeMux from the registered handlers. Each wrapped
// handler writes its result to Redis under resultKeyPrefix+taskID so
// JobStatus can serve completed results without depending on asynq's own
// (unused) result-writer option, mirroring the teacher's cache-first
// GetTaskStatus idiom.
func (c *Client) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for fnName, h := range c.handlers {
		handler := h
		mux.HandleFunc(fnName, func(ctx context.Context, t *asynq.Task) error {
			result, err := handler(ctx, t.Payload())
			taskID, _ := asynq.GetTaskID(ctx)
			resultKey := resultKeyPrefix + taskID

			if err != nil {
				_ = c.redisClient.Set(ctx, resultKey, fmt.Sprintf(`{"error":%q}`, err.Error()), c.resultTTL).Err()
				return err
			}
			_ = c.redisClient.Set(ctx, resultKey, result, c.resultTTL).Err()
			return nil
		})
	}
	return mux
}

// QueueName returns the configured Asynq queue name.
func (c *Client) QueueName() string { return c.queueName }

// Enqueue submits a job via asynq.Client, carrying a fresh UUID task ID.
func (c *Client) Enqueue(ctx context.Context, fnName string, args []byte, timeout time.Duration) (queue.JobHandle, error) {
	id := uuid.NewString()
	task := asynq.NewTask(fnName, args)

	opts := []asynq.Option{
		asynq.TaskID(id),
		asynq.Queue(c.queueName),
		asynq.Timeout(timeout),
		asynq.MaxRetry(3),
	}

	if _, err := c.asynqClient.EnqueueContext(ctx, task, opts...); err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}

	return queue.JobHandle(id), nil
}

// JobStatus checks Redis for a cached result first (completed jobs),
// falling back to the Asynq inspector for pending/active/retry state —
// same precedence as the teacher's GetTaskStatus.
func (c *Client) JobStatus(ctx context.Context, handle queue.JobHandle) (queue.JobStatus, error) {
	resultKey := resultKeyPrefix + string(handle)
	raw, err := c.redisClient.Get(ctx, resultKey).Bytes()
	if err == nil {
		var probe struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &probe) == nil && probe.Error != "" {
			return queue.JobStatus{State: queue.JobFailed, Error: probe.Error}, nil
		}
		return queue.JobStatus{State: queue.JobFinished, Result: raw}, nil
	}

	info, err := c.inspector.GetTaskInfo(c.queueName, string(handle))
	if err != nil {
		return queue.JobStatus{}, fmt.Errorf("job not found: %w", err)
	}

	switch info.State {
	case asynq.TaskStateArchived:
		msg := info.LastErr
		if msg == "" {
			msg = "task archived"
		}
		return queue.JobStatus{State: queue.JobFailed, Error: msg}, nil
	case asynq.TaskStateCompleted:
		return queue.JobStatus{State: queue.JobFinished}, nil
	default:
		return queue.JobStatus{State: queue.JobPending}, nil
	}
}

// QueueDepth reports asynq's current queue size (pending + active + retry).
func (c *Client) QueueDepth(_ context.Context) (int64, error) {
	info, err := c.inspector.GetQueueInfo(c.queueName)
	if err != nil {
		return 0, fmt.Errorf("queue info: %w", err)
	}
	return int64(info.Size), nil
}

// SetIfAbsent implements the recheck lock primitive via Redis SETNX.
func (c *Client) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.redisClient.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("set_if_absent: %w", err)
	}
	return ok, nil
}

// Delete releases a lock key.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.redisClient.Del(ctx, key).Err()
}

// HasActiveWorkers reports whether any Asynq servers are currently
// registered, generalized from the teacher's tasks.Client.HasActiveWorkers.
func (c *Client) HasActiveWorkers(_ context.Context) bool {
	servers, err := c.inspector.Servers()
	if err != nil {
		return false
	}
	return len(servers) > 0
}

// Close shuts down all connections, joining errors as the teacher does.
func (c *Client) Close() error {
	var errs []error
	if err := c.inspector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("inspector: %w", err))
	}
	if err := c.redisClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if err := c.asynqClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("asynq: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}

var _ queue.Client = (*Client)(nil)
