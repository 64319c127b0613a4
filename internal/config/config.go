// Package config loads layered YAML + environment + CLI-flag configuration
// for the Orchestrator, Worker Runtime, Check Dispatcher, LLM Client and
// Work Queue Client (spec.md §6).
//
// Generalized from the teacher's APIConfig/WorkerConfig/DNSConfig YAML
// structs and its ApplyIntOverride/ApplyStringOverride CLI-flag-merge
// helpers: file < env < flag precedence, loaded the same way
// config.LoadConfig did — a missing file yields an empty config, not an
// error.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/exddc/domain-discovery-go/internal/normalize"
	"gopkg.in/yaml.v3"
)

// ServiceType maps config values to DNS protocol schemes (carried
// unchanged from the teacher, still used for the DNS phase's configurable
// upstream servers).
type ServiceType string

const (
	ServiceDo53UDP ServiceType = "do53/udp"
	ServiceDo53TCP ServiceType = "do53/tcp"
	ServiceDoT     ServiceType = "dot"
	ServiceDoH     ServiceType = "doh"
	ServiceDoQ     ServiceType = "doq"
)

// DNSServer represents an upstream DNS server configuration entry.
type DNSServer struct {
	IP       string        `yaml:"ip,omitempty"`
	Port     int           `yaml:"port,omitempty"`
	Hostname string        `yaml:"hostname,omitempty"`
	Services []ServiceType `yaml:"services"`
	Tags     []string      `yaml:"tags,omitempty"`
}

// Validate mirrors the teacher's DNSServer.Validate: Do53 requires an IP
// since it has no hostname-resolution step of its own.
func (s *DNSServer) Validate() error {
	if s.IP == "" && s.Hostname == "" {
		return fmt.Errorf("at least one of 'ip' or 'hostname' must be provided")
	}
	if s.IP != "" && !normalize.IsValidIP(s.IP) {
		return fmt.Errorf("invalid IP address: %s", s.IP)
	}
	if s.Port != 0 && (s.Port < 1 || s.Port > 65535) {
		return fmt.Errorf("invalid port: %d", s.Port)
	}
	for _, svc := range s.Services {
		if (svc == ServiceDo53UDP || svc == ServiceDo53TCP) && s.IP == "" {
			return fmt.Errorf("do53/udp and do53/tcp require an IP address")
		}
	}
	return nil
}

// RateLimitConfig controls tollbooth rate limiting on the Orchestrator's
// HTTP surface.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second,omitempty"`
	BurstSize         int `yaml:"burst_size,omitempty"`
}

// ServerConfig controls the Orchestrator's HTTP server timeouts/binding.
type ServerConfig struct {
	Host         string `yaml:"host,omitempty"`
	Port         string `yaml:"port,omitempty"`
	ReadTimeout  int    `yaml:"read_timeout,omitempty"`
	WriteTimeout int    `yaml:"write_timeout,omitempty"`
	IdleTimeout  int    `yaml:"idle_timeout,omitempty"`
}

// QueueConfig controls the Work Queue Client (REDIS_URL, RQ_QUEUE,
// RQ_JOB_TIMEOUT_SECONDS).
type QueueConfig struct {
	RedisURL          string `yaml:"redis_url,omitempty"`
	QueueName         string `yaml:"queue_name,omitempty"`
	JobTimeoutSeconds int    `yaml:"job_timeout_seconds,omitempty"`
}

// LLMConfig controls the LLM Client (GROQ_API_KEY, GROQ_MODEL, ...).
type LLMConfig struct {
	APIKey              string  `yaml:"api_key,omitempty"`
	Model               string  `yaml:"model,omitempty"`
	Temperature         float64 `yaml:"temperature,omitempty"`
	TopP                float64 `yaml:"top_p,omitempty"`
	MaxCompletionTokens int     `yaml:"max_completion_tokens,omitempty"`
}

// OrchestratorConfig controls the Suggestion Orchestrator's retry budget
// (MAX_SUGGESTIONS_RETRIES).
type OrchestratorConfig struct {
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// WorkerConfig controls the Worker Runtime (WORKER_* env vars).
type WorkerConfig struct {
	MaxConcurrentChecks  int `yaml:"max_concurrent_checks,omitempty"`
	IdleThresholdSeconds int `yaml:"idle_threshold_seconds,omitempty"`
	RecheckIntervalDays  int `yaml:"recheck_interval_days,omitempty"`
	RecheckBatchSize     int `yaml:"recheck_batch_size,omitempty"`
	// EnableIdleRecheck is a pointer so ApplyEnvOverrides can tell "unset"
	// apart from an explicit YAML "false" (a plain bool's zero value can't).
	EnableIdleRecheck   *bool `yaml:"enable_idle_recheck,omitempty"`
	RecheckPollInterval int   `yaml:"recheck_poll_interval,omitempty"`
}

// DNSConfig controls the Domain Check Logic's DNS phase timeout
// (DOMAIN_CHECKER_DNS_TIMEOUT); the upstream list is Config.Servers.
type DNSConfig struct {
	TimeoutSeconds float64 `yaml:"timeout_seconds,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Servers      []DNSServer        `yaml:"servers"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting,omitempty"`
	Server       ServerConfig       `yaml:"server,omitempty"`
	Queue        QueueConfig        `yaml:"queue,omitempty"`
	LLM          LLMConfig          `yaml:"llm,omitempty"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Worker       WorkerConfig       `yaml:"worker,omitempty"`
	DNS          DNSConfig          `yaml:"dns,omitempty"`
}

// LoadConfig reads YAML and validates servers; returns an empty Config if
// the file does not exist (optional-config approach, same as the
// teacher's LoadConfig).
func LoadConfig(filePath string) (*Config, error) {
	// #nosec G304 -- filePath is user-controlled via CLI flag by design
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, server := range cfg.Servers {
		if err := server.Validate(); err != nil {
			return nil, fmt.Errorf("server %d validation failed: %w", i, err)
		}
	}

	return &cfg, nil
}

// ApplyEnvOverrides overlays spec.md §6's environment variables onto cfg,
// following file < env precedence (CLI flags are layered on top of this by
// internal/cli via ApplyIntOverride/ApplyStringOverride).
func ApplyEnvOverrides(cfg *Config) {
	ApplyStringOverride(os.Getenv("REDIS_URL"), &cfg.Queue.RedisURL, "")
	ApplyStringOverride(os.Getenv("RQ_QUEUE"), &cfg.Queue.QueueName, "domain_checks")
	envInt("RQ_JOB_TIMEOUT_SECONDS", &cfg.Queue.JobTimeoutSeconds, 30)

	ApplyStringOverride(os.Getenv("GROQ_API_KEY"), &cfg.LLM.APIKey, "")
	ApplyStringOverride(os.Getenv("GROQ_MODEL"), &cfg.LLM.Model, "")
	envFloat("GROQ_MODEL_TEMPERATURE", &cfg.LLM.Temperature, 0.6)
	envFloat("GROQ_MODEL_TOP_P", &cfg.LLM.TopP, 0.95)
	envInt("GROQ_MODEL_MAX_COMPLETION_TOKENS", &cfg.LLM.MaxCompletionTokens, 4096)

	envInt("MAX_SUGGESTIONS_RETRIES", &cfg.Orchestrator.MaxRetries, 5)

	envFloat("DOMAIN_CHECKER_DNS_TIMEOUT", &cfg.DNS.TimeoutSeconds, 3.0)
	envInt("WORKER_MAX_CONCURRENT_CHECKS", &cfg.Worker.MaxConcurrentChecks, 10)
	envInt("WORKER_IDLE_THRESHOLD_SECONDS", &cfg.Worker.IdleThresholdSeconds, 60)
	envInt("WORKER_RECHECK_INTERVAL_DAYS", &cfg.Worker.RecheckIntervalDays, 7)
	envInt("WORKER_RECHECK_BATCH_SIZE", &cfg.Worker.RecheckBatchSize, 50)
	envBool("WORKER_ENABLE_IDLE_RECHECK", &cfg.Worker.EnableIdleRecheck, true)
	envInt("WORKER_RECHECK_POLL_INTERVAL", &cfg.Worker.RecheckPollInterval, 30)
}

func envInt(key string, target *int, defaultVal int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
			return
		}
	}
	if *target == 0 {
		*target = defaultVal
	}
}

func envFloat(key string, target *float64, defaultVal float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
			return
		}
	}
	if *target == 0 {
		*target = defaultVal
	}
}

// envBool takes **bool rather than *bool so the "unset" sentinel is nil,
// not the bool zero value — otherwise a YAML file that explicitly sets a
// field to false is indistinguishable from one that never mentions it, and
// the default would silently override it back to true.
func envBool(key string, target **bool, defaultVal bool) {
	if v := os.Getenv(key); v != "" {
		b := strings.EqualFold(v, "true") || v == "1"
		*target = &b
		return
	}
	if *target == nil {
		d := defaultVal
		*target = &d
	}
}

// ApplyIntOverride applies a CLI flag override to a config int field with
// default fallback, unchanged from the teacher.
func ApplyIntOverride(flagChanged bool, flagValue int, target *int, defaultVal int) {
	if flagChanged && flagValue > 0 {
		*target = flagValue
	} else if *target == 0 {
		*target = defaultVal
	}
}

// ApplyStringOverride applies a CLI flag override to a config string field
// with default fallback, unchanged from the teacher.
func ApplyStringOverride(cliValue string, target *string, defaultVal string) {
	if cliValue != "" {
		*target = cliValue
	} else if *target == "" {
		*target = defaultVal
	}
}

// GetServerHost provides a default fallback.
func (c *Config) GetServerHost() string {
	if c.Server.Host != "" {
		return c.Server.Host
	}
	return "0.0.0.0"
}

// GetServerPort provides a default fallback.
func (c *Config) GetServerPort() string {
	if c.Server.Port != "" {
		return c.Server.Port
	}
	return "5000"
}

// GetRateLimitRequestsPerSecond provides a default fallback; 0 disables
// rate limiting entirely when explicitly configured.
func (c *Config) GetRateLimitRequestsPerSecond() int {
	if c.RateLimiting.RequestsPerSecond >= 0 {
		return c.RateLimiting.RequestsPerSecond
	}
	return 10
}

// GetRateLimitBurstSize provides a default fallback.
func (c *Config) GetRateLimitBurstSize() int {
	if c.RateLimiting.BurstSize > 0 {
		return c.RateLimiting.BurstSize
	}
	return 20
}

// DNSTarget combines a normalized upstream target URL with tags.
type DNSTarget struct {
	Target string
	Tags   []string
}

// GetDNSTargets transforms the YAML servers block into normalized
// upstream targets for internal/resolver, exactly as the teacher's
// GetDNSTargets did.
func (c *Config) GetDNSTargets() []DNSTarget {
	var targets []DNSTarget

	serviceToScheme := map[ServiceType]string{
		ServiceDo53UDP: normalize.SchemeUDP,
		ServiceDo53TCP: normalize.SchemeTCP,
		ServiceDoT:     normalize.SchemeTLS,
		ServiceDoH:     normalize.SchemeHTTPS,
		ServiceDoQ:     normalize.SchemeQUIC,
	}

	for _, server := range c.Servers {
		for _, svc := range server.Services {
			scheme, ok := serviceToScheme[svc]
			if !ok {
				continue
			}
			protoCfg, ok := normalize.ProtocolConfigs[scheme]
			if !ok {
				continue
			}

			host := server.IP
			if protoCfg.UsesHostname && server.Hostname != "" {
				host = server.Hostname
			}

			port := server.Port
			if port == 0 {
				port = protoCfg.DefaultPort
			}

			raw := fmt.Sprintf("%s://%s:%d", protoCfg.Scheme, host, port)
			norm, err := normalize.Target(raw)
			if err != nil {
				continue
			}

			targets = append(targets, DNSTarget{Target: norm, Tags: server.Tags})
		}
	}

	return targets
}
