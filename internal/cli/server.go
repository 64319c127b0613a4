package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/exddc/domain-discovery-go/internal/app"
	"github.com/exddc/domain-discovery-go/internal/config"
)

// NewServerCommand creates the 'server' subcommand. It starts in-memory
// queue/store backends if Redis is not configured.
func NewServerCommand() *cobra.Command {
	var configPath string
	var redisURL string
	var host string
	var port string

	var dnsTimeout float64
	var maxConcurrentChecks int
	var maxSuggestionsRetries int

	var rateLimitRPS int
	var rateLimitBurst int

	var readTimeout int
	var writeTimeout int
	var idleTimeout int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the domain discovery API server",
		Long:  `Starts the Suggestion Orchestrator's HTTP surface. Automatically starts in-memory queue/store backends if Redis is not configured.`,
		Example: `  # Start with default config
  domaindiscovery server

  # Start with Redis backend
  domaindiscovery server --redis redis://localhost:6379/0

  # Start with custom config
  domaindiscovery server --config /path/to/config.yaml

  # Start on custom host/port
  domaindiscovery server --host 0.0.0.0 --port 8080`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, configPath, redisURL, host, port,
				dnsTimeout, maxConcurrentChecks, maxSuggestionsRetries,
				rateLimitRPS, rateLimitBurst, readTimeout, writeTimeout, idleTimeout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "Path to config file")
	cmd.Flags().StringVarP(&redisURL, "redis", "r", os.Getenv("REDIS_URL"), "Redis URL (optional, enables distributed queue/store)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Server host (default: from config or 0.0.0.0)")
	cmd.Flags().StringVarP(&port, "port", "P", "", "Server port (default: from config or 5000)")

	cmd.Flags().Float64Var(&dnsTimeout, "dns-timeout", 0, "Domain check DNS/WHOIS phase timeout in seconds (default: from config or 3)")
	cmd.Flags().IntVar(&maxConcurrentChecks, "max-concurrent-checks", 0, "Maximum concurrent domain checks per worker (default: from config or 10)")
	cmd.Flags().IntVar(&maxSuggestionsRetries, "max-retries", 0, "Maximum Suggestion Orchestrator retry rounds per suggestion request (default: from config or 5)")

	cmd.Flags().IntVar(&rateLimitRPS, "rate-limit-rps", 0, "Rate limit requests per second (0 = disable, default: from config or 10)")
	cmd.Flags().IntVar(&rateLimitBurst, "rate-limit-burst", 0, "Rate limit burst size (default: from config or 20)")

	cmd.Flags().IntVar(&readTimeout, "read-timeout", 0, "HTTP read timeout in seconds (default: from config or 15)")
	cmd.Flags().IntVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout in seconds (default: from config or 15)")
	cmd.Flags().IntVar(&idleTimeout, "idle-timeout", 0, "HTTP idle timeout in seconds (default: from config or 60)")

	return cmd
}

func runServer(cmd *cobra.Command, configPath, redisURL, host, port string,
	dnsTimeout float64, maxConcurrentChecks, maxSuggestionsRetries,
	rateLimitRPS, rateLimitBurst, readTimeout, writeTimeout, idleTimeout int) error {

	if configPath == "" {
		configPath = "conf/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	config.ApplyEnvOverrides(cfg)

	if redisURL != "" {
		cfg.Queue.RedisURL = redisURL
	}

	dnsTimeoutInt := int(dnsTimeout)
	config.ApplyIntOverride(cmd.Flags().Changed("max-concurrent-checks"), maxConcurrentChecks, &cfg.Worker.MaxConcurrentChecks, 10)
	config.ApplyIntOverride(cmd.Flags().Changed("max-retries"), maxSuggestionsRetries, &cfg.Orchestrator.MaxRetries, 5)
	config.ApplyIntOverride(cmd.Flags().Changed("rate-limit-rps"), rateLimitRPS, &cfg.RateLimiting.RequestsPerSecond, 10)
	if cmd.Flags().Changed("rate-limit-rps") && rateLimitRPS == 0 {
		cfg.RateLimiting.RequestsPerSecond = 0
	}
	config.ApplyIntOverride(cmd.Flags().Changed("rate-limit-burst"), rateLimitBurst, &cfg.RateLimiting.BurstSize, 20)
	config.ApplyIntOverride(cmd.Flags().Changed("read-timeout"), readTimeout, &cfg.Server.ReadTimeout, 15)
	config.ApplyIntOverride(cmd.Flags().Changed("write-timeout"), writeTimeout, &cfg.Server.WriteTimeout, 15)
	config.ApplyIntOverride(cmd.Flags().Changed("idle-timeout"), idleTimeout, &cfg.Server.IdleTimeout, 60)
	if cmd.Flags().Changed("dns-timeout") && dnsTimeoutInt > 0 {
		cfg.DNS.TimeoutSeconds = dnsTimeout
	} else if cfg.DNS.TimeoutSeconds == 0 {
		cfg.DNS.TimeoutSeconds = 3.0
	}

	config.ApplyStringOverride(host, &cfg.Server.Host, "0.0.0.0")
	config.ApplyStringOverride(port, &cfg.Server.Port, "5000")

	if len(cfg.Servers) == 0 {
		slog.Warn("no DNS upstream servers configured - domain checks will use system resolver defaults", "path", configPath)
	} else {
		slog.Info("configuration loaded", "path", configPath, "servers_count", len(cfg.Servers))
	}

	if cfg.Queue.RedisURL == "" {
		slog.Info("redis not configured - starting in memory mode (no cross-process queue/store)")
	} else {
		slog.Info("redis configured", "queue_name", cfg.Queue.QueueName)
	}

	deps, err := app.NewDeps(cfg)
	if err != nil {
		slog.Error("failed to build dependencies", "error", err)
		os.Exit(1)
	}

	apiApp := app.NewAPIApp(cfg, deps)
	defer func() {
		if err := apiApp.Shutdown(context.Background()); err != nil {
			slog.Error("api app shutdown error", "error", err)
		}
	}()

	// Memory mode has no standalone worker process, so the API process
	// must also register job handlers on the shared queue and run the
	// idle-recheck supervisor itself, or enqueued jobs never find a
	// handler (memqueue.Enqueue runs handlers synchronously, registered
	// against this exact Client instance).
	var inProcessWorker *app.WorkerApp
	var cancelSupervisor context.CancelFunc
	if cfg.Queue.RedisURL == "" {
		inProcessWorker = app.NewWorkerApp(cfg, deps)
		var supervisorCtx context.Context
		supervisorCtx, cancelSupervisor = context.WithCancel(context.Background())
		go inProcessWorker.Runtime.RunIdleRecheckSupervisor(supervisorCtx)
		slog.Info("starting in-process worker for memory-mode job consumption")
		defer func() {
			cancelSupervisor()
			inProcessWorker.Runtime.Drain()
		}()
	}

	resolvedHost := host
	if resolvedHost == "" {
		resolvedHost = cfg.GetServerHost()
	}
	resolvedPort := port
	if resolvedPort == "" {
		resolvedPort = cfg.GetServerPort()
	}
	addr := resolvedHost + ":" + resolvedPort

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting domain discovery API server", "address", addr)
		errCh <- apiApp.Run(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("api app run failed", "error", err)
			return err
		}
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return apiApp.Shutdown(ctx)
	}
	return nil
}
