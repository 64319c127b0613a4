package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/exddc/domain-discovery-go/internal/app"
	"github.com/exddc/domain-discovery-go/internal/config"
	"github.com/exddc/domain-discovery-go/internal/queue/redisqueue"
)

// NewWorkerCommand creates the 'worker' subcommand for running a standalone
// Worker Runtime process. It consumes jobs through an asynq.Server built
// from the Work Queue Client's registered handlers, so Redis is required:
// without a Redis URL the command logs an error and exits.
func NewWorkerCommand() *cobra.Command {
	var configPath string
	var redisURL string
	var concurrency int
	var metricsPort int
	var enableMetrics bool

	var dnsTimeout float64
	var maxConcurrentChecks int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start a standalone domain-check worker",
		Long:  `Starts a Worker Runtime process that consumes domain-check jobs from the Work Queue Client and runs the idle-recheck supervisor. Requires Redis to be configured.`,
		Example: `  # Start worker with default settings
  domaindiscovery worker --redis redis://localhost:6379/0

  # Start worker with custom concurrency
  domaindiscovery worker --redis redis://localhost:6379/0 --concurrency 8

  # Start worker with metrics enabled
  domaindiscovery worker --config /path/to/config.yaml --redis redis://localhost:6379/0 --enable-metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, configPath, redisURL, concurrency, metricsPort, enableMetrics,
				dnsTimeout, maxConcurrentChecks)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file")
	cmd.Flags().StringVarP(&redisURL, "redis", "r", os.Getenv("REDIS_URL"), "Redis URL (required)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 4, "Number of parallel job processors")
	cmd.Flags().IntVarP(&metricsPort, "metrics-port", "m", 9091, "Port for Prometheus metrics endpoint (if enabled)")
	cmd.Flags().BoolVarP(&enableMetrics, "enable-metrics", "M", false, "Enable metrics HTTP endpoint (useful for a single worker, avoid port conflicts with multiple workers)")

	cmd.Flags().Float64VarP(&dnsTimeout, "dns-timeout", "T", 0, "Domain check DNS/WHOIS phase timeout in seconds (default: from config or 3)")
	cmd.Flags().IntVarP(&maxConcurrentChecks, "max-concurrent", "C", 0, "Maximum concurrent domain checks (default: from config or 10)")

	_ = cmd.MarkFlagRequired("redis")

	return cmd
}

func runWorker(cmd *cobra.Command, configPath, redisURL string, concurrency, metricsPort int, enableMetrics bool,
	dnsTimeout float64, maxConcurrentChecks int) error {

	if configPath == "" {
		configPath = "conf/config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	config.ApplyEnvOverrides(cfg)

	if redisURL == "" {
		slog.Error("redis URL is required for a standalone worker")
		os.Exit(1)
	}
	cfg.Queue.RedisURL = redisURL

	if cmd.Flags().Changed("dns-timeout") {
		cfg.DNS.TimeoutSeconds = dnsTimeout
	}
	if cmd.Flags().Changed("max-concurrent") {
		cfg.Worker.MaxConcurrentChecks = maxConcurrentChecks
	}
	if len(cfg.Servers) == 0 {
		slog.Warn("no DNS upstream servers configured - worker will use system resolver defaults", "path", configPath)
	} else {
		slog.Info("configuration loaded", "path", configPath, "servers_count", len(cfg.Servers))
	}

	if enableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			addr := fmt.Sprintf(":%d", metricsPort)
			slog.Info("worker metrics server enabled", "address", addr)

			srv := &http.Server{
				Addr:         addr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	} else {
		slog.Info("worker metrics disabled (use --enable-metrics to enable)")
	}

	deps, err := app.NewDeps(cfg)
	if err != nil {
		slog.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}

	workerApp := app.NewWorkerApp(cfg, deps)

	ctx, cancelSupervisor := context.WithCancel(context.Background())
	go workerApp.Runtime.RunIdleRecheckSupervisor(ctx)

	errCh := make(chan error, 1)
	rq, isRedisBacked := deps.Queue.(*redisqueue.Client)
	if isRedisBacked {
		asynqSrv := asynq.NewServer(
			asynq.RedisClientOpt{Addr: redisAddrFromURL(redisURL)},
			asynq.Config{Concurrency: concurrency},
		)
		go func() {
			errCh <- asynqSrv.Run(rq.Mux())
		}()
		defer asynqSrv.Shutdown()
	} else {
		slog.Info("queue backend has no separate consumption loop; running idle-recheck supervisor only")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		cancelSupervisor()
		if err != nil {
			slog.Error("worker run failed", "error", err)
			return err
		}
	case <-stop:
		cancelSupervisor()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return workerApp.Shutdown(shutdownCtx)
}

// redisAddrFromURL extracts asynq's required host:port form from a full
// redis:// URL, mirroring the teacher's own redisURL-to-Addr parsing.
func redisAddrFromURL(redisURL string) string {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return redisURL
	}
	if clientOpt, ok := opt.(asynq.RedisClientOpt); ok {
		return clientOpt.Addr
	}
	return redisURL
}
