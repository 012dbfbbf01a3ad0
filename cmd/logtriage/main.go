package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olegiv/go-logger"

	"logtriage/internal/config"
	"logtriage/internal/logging"
	"logtriage/internal/review"
	"logtriage/internal/triage"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI arguments first
	cli := config.ParseCLI()

	// Handle -help flag
	if cli.ShowHelp {
		config.PrintUsage()
		return exitSuccess
	}

	// Handle -version flag
	if cli.ShowVersion {
		fmt.Printf("logtriage %s\n", version)
		if gitCommit != "unknown" {
			fmt.Printf("  commit: %s\n", gitCommit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
		return exitSuccess
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load configuration with CLI overrides
	cfg, err := config.LoadWithCLI(cli)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return exitFailure
	}

	// Initialize logger with credential sanitization
	baseLog := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		LogDir:     cfg.Logging.Dir,
		Filename:   "logtriage.log",
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    cfg.Logging.Console,
	})
	log := logging.NewSecure(baseLog)
	defer func() {
		if err := log.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}()

	if err := runRequest(ctx, cli, cfg, log); err != nil {
		log.Error().Err(err).Msg("Request failed")
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}

	return exitSuccess
}

// runRequest executes the single request described by the CLI options and
// prints the JSON response to stdout.
func runRequest(ctx context.Context, cli *config.CLIOptions, cfg *config.Config, log *logging.SecureLogger) error {
	// The provider is only built, and its credentials only required, when
	// this run reviews anything
	var provider review.Provider
	if cli.AIReview && !cli.Scan {
		var err error
		provider, err = triage.NewProvider(cfg.Review)
		if err != nil {
			return fmt.Errorf("failed to initialize AI provider: %w", err)
		}

		modelInfo := provider.GetModelInfo()
		log.Info().
			Str("provider", provider.GetProviderName()).
			Str("model", modelInfo["model"].(string)).
			Msg("AI provider initialized")
	}

	svc, err := triage.New(cfg, log, provider)
	if err != nil {
		return err
	}

	req := buildRequest(cli)

	var out interface{}
	if cli.Scan {
		out, err = svc.FastScan(ctx, req)
	} else {
		out, err = svc.Triage(ctx, req)
	}
	if err != nil {
		return err
	}

	return writeJSON(os.Stdout, out)
}

// buildRequest maps the CLI options onto a triage request. The -days and
// -hours flags use -1 as their unset marker so an explicit 0 survives.
func buildRequest(cli *config.CLIOptions) *triage.Request {
	req := &triage.Request{
		LogPath:          cli.LogPath,
		Since:            cli.Since,
		Until:            cli.Until,
		Date:             cli.Date,
		Hour:             cli.Hour,
		Week:             cli.Week,
		Month:            cli.Month,
		Year:             cli.Year,
		IncludeAllLevels: cli.AllLevels,
		IncludeAIReview:  cli.AIReview,
		Contains:         cli.Contains,
		IncludeRaw:       cli.IncludeRaw,
		Limit:            cli.Limit,
	}

	if cli.Days >= 0 {
		days := cli.Days
		req.DaysLookback = &days
	}
	if cli.Hours >= 0 {
		hours := cli.Hours
		req.HoursLookback = &hours
	}

	for _, name := range strings.Split(cli.Levels, ",") {
		if name = strings.TrimSpace(name); name != "" {
			req.Levels = append(req.Levels, name)
		}
	}

	return req
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}
