// Package cli provides the command-line interface for the domain
// discovery service: a `suggest` command that drives the Suggestion
// Orchestrator's HTTP surface, `server`/`worker` commands that run the two
// long-lived processes, and a `dnscheck` debugging command carried over
// from the teacher's single-lookup `query` command.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/exddc/domain-discovery-go/internal/api"
	"github.com/exddc/domain-discovery-go/internal/checklogic"
	"github.com/exddc/domain-discovery-go/internal/config"
	"github.com/exddc/domain-discovery-go/internal/models"
)

const (
	// PackageVersion is the current version of the CLI.
	PackageVersion = "1.0.0"

	// DefaultAPIURL is the default API server URL.
	DefaultAPIURL = "http://localhost:5000"
)

var (
	apiURL   string
	insecure bool
	debug    bool
	pretty   bool
)

// NewRootCmd creates the root CLI command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "domaindiscovery",
		Short:   "Domain name discovery service",
		Long:    `Generates and checks candidate domain names for availability via an LLM-driven suggestion engine.`,
		Version: PackageVersion,
	}

	rootCmd.PersistentFlags().StringVarP(&apiURL, "api-url", "u", DefaultAPIURL, "Base URL of the API")
	rootCmd.PersistentFlags().BoolVarP(&insecure, "insecure", "i", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Show detailed error messages")
	rootCmd.PersistentFlags().BoolVarP(&pretty, "pretty", "p", false, "Enable emoji-enhanced output")

	rootCmd.AddCommand(NewSuggestCommand())
	rootCmd.AddCommand(NewDNSCheckCommand())
	rootCmd.AddCommand(NewServerCommand())
	rootCmd.AddCommand(NewWorkerCommand())
	return rootCmd
}

// NewSuggestCommand creates the 'suggest' subcommand, which drives the
// Suggestion Orchestrator's HTTP surface the way the teacher's 'query'
// command drove DNS lookups: a single request, then print-as-it-arrives.
func NewSuggestCommand() *cobra.Command {
	var targetCount int
	var promptType string
	var sourceFQDN string
	var userID string
	var stream bool

	cmd := &cobra.Command{
		Use:     "suggest [description]",
		Aliases: []string{"s"},
		Short:   "Request domain name suggestions",
		Long:    `Requests candidate domain names for a business description, waiting for availability checks to complete.`,
		Example: `  # Request 5 suggestions for a business
  domaindiscovery suggest "italian restaurant in berlin" --count 5

  # Stream suggestions as they're checked
  domaindiscovery suggest "italian restaurant in berlin" --stream`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, args[0], targetCount, promptType, sourceFQDN, userID, stream)
		},
	}

	cmd.Flags().IntVarP(&targetCount, "count", "n", 5, "Number of available domains to find")
	cmd.Flags().StringVar(&promptType, "prompt-type", string(models.PromptTypeLegacy), "Prompt type: legacy, lexicon, personalized, or similar")
	cmd.Flags().StringVar(&sourceFQDN, "source", "", "Source domain for prompt-type=similar")
	cmd.Flags().StringVar(&userID, "user-id", "", "User ID for personalized suggestions and rating history")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream suggestions as they arrive instead of waiting for completion")

	return cmd
}

func runSuggest(cmd *cobra.Command, description string, targetCount int, promptType, sourceFQDN, userID string, stream bool) error {
	ctx := context.Background()
	client := api.NewClient(apiURL, 2*time.Minute, insecure)

	req := models.SuggestionRequest{
		Description: description,
		TargetCount: targetCount,
		PromptType:  models.PromptType(promptType),
		SourceFQDN:  sourceFQDN,
		UserID:      userID,
	}

	if debug {
		cmd.Printf("requesting %d suggestions for %q (prompt_type=%s, stream=%t)\n", targetCount, description, promptType, stream)
	}

	if stream {
		return client.SuggestStream(ctx, req, func(eventType string, data []byte) error {
			logResult(levelInfo, fmt.Sprintf("%s: %s", eventType, string(data)))
			return nil
		})
	}

	result, err := client.Suggest(ctx, req)
	if err != nil {
		return fmt.Errorf("suggest request failed: %w", err)
	}
	printSuggestions(result)
	return nil
}

func printSuggestions(result *models.CompleteEvent) {
	fmt.Printf("\nfound %d available domains (reached target: %t)\n", result.AvailableCount, result.ReachedTarget)
	for _, r := range result.Results {
		level := levelWarn
		if r.Status == models.StatusAvailable {
			level = levelInfo
		}
		logResult(level, fmt.Sprintf("%s - %s", r.FQDN, r.Status))
	}
}

const (
	levelInfo = "ok"
	levelWarn = "warn"
	levelErr  = "error"
)

func logResult(level, message string) {
	symbols := map[string][2]string{
		levelInfo: {"✅ ", "[OK] "},
		levelWarn: {"⚠️ ", "[WARN] "},
		levelErr:  {"❌ ", "[FAILED] "},
	}

	symbol := "[???] "
	if syms, ok := symbols[level]; ok {
		if pretty {
			symbol = syms[0]
		} else {
			symbol = syms[1]
		}
	}

	fmt.Printf("%s%s\n", symbol, message)
}

// NewDNSCheckCommand creates the 'dnscheck' subcommand, a debugging
// utility carried over from the teacher's single-lookup 'query' command:
// it runs the Domain Check Logic directly against one fqdn, bypassing the
// queue and orchestrator entirely.
func NewDNSCheckCommand() *cobra.Command {
	var configPath string
	var timeoutSeconds float64

	cmd := &cobra.Command{
		Use:     "dnscheck [fqdn]",
		Aliases: []string{"check"},
		Short:   "Check a single domain's availability directly",
		Long:    `Runs the DNS-then-WHOIS check against one fqdn without going through the queue, useful for debugging upstream configuration.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDNSCheck(cmd, args[0], configPath, timeoutSeconds)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file for DNS upstream servers")
	cmd.Flags().Float64VarP(&timeoutSeconds, "timeout", "t", 3.0, "Per-phase timeout in seconds")

	return cmd
}

func runDNSCheck(cmd *cobra.Command, fqdn, configPath string, timeoutSeconds float64) error {
	var upstreams []string
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		for _, t := range cfg.GetDNSTargets() {
			upstreams = append(upstreams, t.Target)
		}
	}

	if debug {
		cmd.Printf("checking %s against %d upstream(s), timeout=%.1fs\n", fqdn, len(upstreams), timeoutSeconds)
	}

	checker := checklogic.NewChecker(time.Duration(timeoutSeconds*float64(time.Second)), upstreams)
	status := checker.Check(context.Background(), fqdn)

	level := levelWarn
	switch status {
	case models.WorkerStatusFree:
		level = levelInfo
	case models.WorkerStatusInvalid:
		level = levelErr
	}
	logResult(level, fmt.Sprintf("%s - %s", fqdn, status))
	return nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
