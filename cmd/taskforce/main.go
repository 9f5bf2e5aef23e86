// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command taskforce submits prompts to TaskForceAI and follows the resulting tasks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taskforceai/taskforceai-go/client"
	"github.com/taskforceai/taskforceai-go/internal/config"
	"github.com/taskforceai/taskforceai-go/tracker"
)

const usage = `Usage: taskforce <command> [flags] [args]

Commands:
  run [-model M] [-stream] PROMPT   Submit a prompt and wait for the result
  submit [-model M] PROMPT          Submit a prompt and print the task id
  status TASK_ID                    Print the current status of a task
  wait [-interval D] [-attempts N] TASK_ID
                                    Poll a task until it finishes
  stream TASK_ID                    Follow a task over server-sent events
  pending [-resume]                 List (or wait for) tracked submissions
  files list|get|upload|download|delete
  threads list|get|create|messages|run|delete

Every command accepts -config PATH. TASKFORCE_CONFIG names the default file.
`

// getConfigPath returns the path to the config file, or "" for the defaults.
// Priority: TASKFORCE_CONFIG env var > XDG_CONFIG_HOME/taskforce/config.yaml > ~/.config/taskforce/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TASKFORCE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	path := filepath.Join(configDir, "taskforce", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}

	if err := cmd(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"run":     runRun,
	"submit":  runSubmit,
	"status":  runStatus,
	"wait":    runWait,
	"stream":  runStream,
	"pending": runPending,
	"files":   runFiles,
	"threads": runThreads,
}

// newFlagSet returns a flag set carrying the shared -config flag.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", getConfigPath(), "path to the YAML config file")
	return fs, configPath
}

// app is the state shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
	store  tracker.Store
}

// setup loads the configuration and builds the client.
func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := setupLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}

	store, err := openTracker(ctx, cfg.Tracker)
	if err != nil {
		return nil, fmt.Errorf("opening tracker: %w", err)
	}

	c, err := client.New(clientOptions(cfg, logger, store)...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("creating client: %w", err)
	}

	logger.Debug("client ready",
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("mock_mode", c.MockMode()),
		slog.String("tracker", cfg.Tracker.Driver),
	)
	return &app{cfg: cfg, logger: logger, client: c, store: store}, nil
}

// Close releases the tracker.
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// clientOptions translates the configuration into client options.
func clientOptions(cfg *config.Config, logger *slog.Logger, store tracker.Store) []client.Option {
	opts := []client.Option{
		client.WithAPIKey(cfg.APIKey),
		client.WithBaseURL(cfg.BaseURL),
		client.WithTimeout(cfg.Timeout),
		client.WithMockMode(cfg.MockMode),
		client.WithPollDefaults(client.PollOptions{
			Interval:    cfg.Poll.Interval,
			MaxAttempts: cfg.Poll.MaxAttempts,
		}),
		client.WithStreamRetry(&client.RetryConfig{
			MaxAttempts:  cfg.Stream.MaxReconnects,
			InitialDelay: cfg.Stream.InitialBackoff,
			MaxDelay:     cfg.Stream.MaxBackoff,
			Multiplier:   2,
		}),
		client.WithLogger(logger),
	}
	if store != nil {
		opts = append(opts, client.WithTracker(store))
	}
	return opts
}

// openTracker opens the submission store selected by cfg. The none driver yields a nil store.
func openTracker(ctx context.Context, cfg config.TrackerConfig) (tracker.Store, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return tracker.NewMemoryStore(), nil
	case config.DriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		store, err := tracker.NewDatabaseStore(tracker.DatabaseStoreConfig{DB: db, CloseDB: true})
		if err != nil {
			return nil, err
		}
		if err := store.Initialize(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown tracker driver %q", cfg.Driver)
	}
}
