// Package app composes the Work Queue Client, Domain-Check Worker
// dependencies, Suggestion Orchestrator and API server from a loaded
// Config, choosing the in-memory or Redis-backed queue/store pair based on
// REDIS_URL presence (spec.md §6), generalized from the teacher's
// NewAPIApp memory-vs-Asynq branch.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exddc/domain-discovery-go/internal/api"
	"github.com/exddc/domain-discovery-go/internal/checklogic"
	"github.com/exddc/domain-discovery-go/internal/config"
	"github.com/exddc/domain-discovery-go/internal/dispatcher"
	"github.com/exddc/domain-discovery-go/internal/llm"
	"github.com/exddc/domain-discovery-go/internal/orchestrator"
	"github.com/exddc/domain-discovery-go/internal/queue"
	"github.com/exddc/domain-discovery-go/internal/queue/memqueue"
	"github.com/exddc/domain-discovery-go/internal/queue/redisqueue"
	"github.com/exddc/domain-discovery-go/internal/store"
	"github.com/exddc/domain-discovery-go/internal/store/memstore"
	"github.com/exddc/domain-discovery-go/internal/store/redisstore"
	"github.com/exddc/domain-discovery-go/internal/worker"
)

// Deps is the shared dependency graph built from Config: a Queue and Store
// pair (memory or Redis-backed, picked together since both must point at
// the same backing instance), plus the Checker every Domain-Check Worker
// handler runs against.
type Deps struct {
	Queue   queue.Client
	Store   store.Store
	Checker *checklogic.Checker

	redisRDB *redis.Client // non-nil only in Redis mode; closed by Close
}

// NewDeps picks the memory or Redis backend from cfg.Queue.RedisURL. Redis
// mode opens two independent connections to the same instance: one owned
// internally by redisqueue.Client for result-caching and the recheck lock,
// and one built here for redisstore.Store, mirroring the teacher's
// tasks/asynq.go idiom of a dedicated connection per concern.
func NewDeps(cfg *config.Config) (*Deps, error) {
	jobTimeout := time.Duration(cfg.Queue.JobTimeoutSeconds) * time.Second
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	dnsTimeout := time.Duration(cfg.DNS.TimeoutSeconds * float64(time.Second))
	if dnsTimeout <= 0 {
		dnsTimeout = 3 * time.Second
	}
	targets := cfg.GetDNSTargets()
	upstreams := make([]string, 0, len(targets))
	for _, t := range targets {
		upstreams = append(upstreams, t.Target)
	}
	checker := checklogic.NewChecker(dnsTimeout, upstreams)

	if cfg.Queue.RedisURL == "" {
		return &Deps{
			Queue:   memqueue.New(),
			Store:   memstore.New(),
			Checker: checker,
		}, nil
	}

	q, err := redisqueue.New(cfg.Queue.RedisURL, cfg.Queue.QueueName, jobTimeout)
	if err != nil {
		return nil, fmt.Errorf("redis queue: %w", err)
	}

	opt, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis store: invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	return &Deps{
		Queue:    q,
		Store:    redisstore.New(rdb),
		Checker:  checker,
		redisRDB: rdb,
	}, nil
}

// Close releases backend connections. Safe to call on memory-mode Deps.
func (d *Deps) Close() error {
	firstErr := d.Queue.Close()
	if d.redisRDB != nil {
		if err := d.redisRDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// APIApp wires Deps into an HTTP server serving the Suggestion
// Orchestrator's external interface.
type APIApp struct {
	deps   *Deps
	server *api.Server
}

// NewAPIApp builds the Check Dispatcher, LLM Client and Suggestion
// Orchestrator atop deps and wraps them in an HTTP server.
func NewAPIApp(cfg *config.Config, deps *Deps) *APIApp {
	jobTimeout := time.Duration(cfg.Queue.JobTimeoutSeconds) * time.Second
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	disp := dispatcher.New(deps.Queue, deps.Store, jobTimeout)
	gen := llm.New(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.TopP, cfg.LLM.MaxCompletionTokens)
	orch := orchestrator.New(gen, disp, deps.Store, cfg.LLM.Model, cfg.Orchestrator.MaxRetries)

	return &APIApp{
		deps:   deps,
		server: api.NewServer(cfg, orch, deps.Store),
	}
}

// Router exposes the underlying HTTP handler, mainly for tests.
func (a *APIApp) Router() *api.Server { return a.server }

// Run starts the HTTP server and blocks until it exits.
func (a *APIApp) Run(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	slog.Info("starting API server", "address", addr)
	return a.server.Run(addr)
}

// Shutdown releases the app's backend connections.
func (a *APIApp) Shutdown(_ context.Context) error {
	return a.deps.Close()
}

// WorkerApp wires Deps into a Worker Runtime.
type WorkerApp struct {
	deps    *Deps
	Runtime *worker.Runtime
}

// NewWorkerApp builds a Worker Runtime atop deps using the Config's
// WORKER_* settings.
func NewWorkerApp(cfg *config.Config, deps *Deps) *WorkerApp {
	wc := worker.DefaultConfig()
	if cfg.Worker.MaxConcurrentChecks > 0 {
		wc.MaxConcurrentChecks = cfg.Worker.MaxConcurrentChecks
	}
	if cfg.Worker.IdleThresholdSeconds > 0 {
		wc.IdleThreshold = time.Duration(cfg.Worker.IdleThresholdSeconds) * time.Second
	}
	if cfg.Worker.RecheckIntervalDays > 0 {
		wc.RecheckInterval = time.Duration(cfg.Worker.RecheckIntervalDays) * 24 * time.Hour
	}
	if cfg.Worker.RecheckBatchSize > 0 {
		wc.RecheckBatchSize = cfg.Worker.RecheckBatchSize
	}
	if cfg.Worker.RecheckPollInterval > 0 {
		wc.RecheckPollInterval = time.Duration(cfg.Worker.RecheckPollInterval) * time.Second
	}
	wc.EnableIdleRecheck = cfg.Worker.EnableIdleRecheck != nil && *cfg.Worker.EnableIdleRecheck

	rt := worker.New(deps.Queue, deps.Store, deps.Checker, wc)
	rt.RegisterHandlers()

	return &WorkerApp{deps: deps, Runtime: rt}
}

// Shutdown drains in-flight jobs and releases backend connections.
func (a *WorkerApp) Shutdown(_ context.Context) error {
	a.Runtime.Drain()
	return a.deps.Close()
}
