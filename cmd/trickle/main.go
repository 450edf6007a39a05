// Command trickle is a terminal client for streaming chat completions.
//
// Usage:
//
//	OPENAI_API_KEY=sk-... trickle [flags]
//
// Flags:
//
//	-config string   Path to TOML config file (default: ~/.trickle/config.toml)
//	-model string    Model ID (overrides config)
//	-base-url string API base URL (overrides config)
//	-api-key string  API key (overrides the config's env var)
//	-db string       Path to the response database (overrides config)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pwalus/trickle"
	bt "github.com/pwalus/trickle/bubbletea"
	"github.com/pwalus/trickle/netmon"
	"github.com/pwalus/trickle/sqlite"
	"github.com/pwalus/trickle/sse"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trickle: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", defaultConfigPath(), "Path to TOML config file")
		model      = flag.String("model", "", "Model ID (overrides config)")
		baseURL    = flag.String("base-url", "", "API base URL (overrides config)")
		apiKey     = flag.String("api-key", "", "API key (overrides the config's env var)")
		dbPath     = flag.String("db", "", "Path to the response database (overrides config)")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := LoadConfig(*configPath, *configPath == defaultConfigPath())
	if err != nil {
		return err
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}

	logger, closeLog, err := openLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	client := sse.New(key, sse.WithBaseURL(cfg.BaseURL))
	monitor := netmon.New(netmon.WithProbeAddress(cfg.ProbeAddress))

	// One pipeline per logical request: fresh buffers and scheduler,
	// bounded retries around sessions, one finalize at the end. The
	// finalize context survives user cancellation so a persisted row is
	// never lost to the abort that produced it.
	runFn := func(ctx context.Context, req trickle.Request, onSnapshot func(trickle.Snapshot), onProgress func(trickle.Progress, int)) trickle.Outcome {
		buffers := trickle.NewBuffers()
		scheduler := trickle.NewScheduler(trickle.PresenterFunc(onSnapshot), cfg.RenderInterval())
		retrier := trickle.NewRetrier(client, scheduler, monitor, trickle.RetrierConfig{
			MaxAttempts: cfg.MaxAttempts,
			Session: trickle.SessionConfig{
				ConnectTimeout: cfg.ConnectTimeout(),
				IdleTimeout:    cfg.IdleTimeout(),
			},
			OnProgress: onProgress,
		})

		out := retrier.Execute(ctx, req, buffers)

		finalizer := trickle.NewFinalizer(store, scheduler, logger)
		finalizer.Finalize(context.WithoutCancel(ctx), req, out, buffers)
		return out
	}

	newRequest := func(messages []trickle.Message) trickle.Request {
		return trickle.Request{
			ID:        uuid.NewString(),
			Model:     cfg.Model,
			Messages:  messages,
			MaxTokens: cfg.MaxTokens,
		}
	}

	tuiModel := bt.New(runFn, newRequest, trickle.DefaultTheme())
	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	return nil
}

// openLogger writes structured logs to a file; stderr belongs to the TUI.
func openLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, nil))
	return logger, func() { _ = f.Close() }, nil
}
