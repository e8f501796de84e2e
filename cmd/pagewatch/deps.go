package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ersonp/pagewatch/internal/application/handlers"
	"github.com/ersonp/pagewatch/internal/domain/entities"
	"github.com/ersonp/pagewatch/internal/domain/ports"
	"github.com/ersonp/pagewatch/internal/domain/services"
	"github.com/ersonp/pagewatch/internal/infrastructure/channel/telegram"
	"github.com/ersonp/pagewatch/internal/infrastructure/config"
	"github.com/ersonp/pagewatch/internal/infrastructure/extractor/htmlblocks"
	"github.com/ersonp/pagewatch/internal/infrastructure/fetcher/web"
	llm "github.com/ersonp/pagewatch/internal/infrastructure/llm/openai"
	"github.com/ersonp/pagewatch/internal/infrastructure/logging"
	"github.com/ersonp/pagewatch/internal/infrastructure/metrics/prom"
	"github.com/ersonp/pagewatch/internal/infrastructure/snapshotdb/postgres"
	redisstore "github.com/ersonp/pagewatch/internal/infrastructure/snapshotdb/redis"
	"github.com/ersonp/pagewatch/internal/infrastructure/snapshotdb/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config          *config.Config
	Logger          *slog.Logger
	Metrics         *prom.Recorder
	WatchHandler    *handlers.WatchHandler
	NotifyHandler   *handlers.NotifyTestHandler
	SnapshotHandler *handlers.SnapshotHandler
}

// depsOptions adjusts wiring per command.
type depsOptions struct {
	// ApprovalTimeout overrides the configured wait when positive.
	ApprovalTimeout time.Duration
	// Events receives approval events; stdout JSON lines by default.
	Events ports.EventSink
	// LogOutput receives structured logs; stderr by default.
	LogOutput io.Writer
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, opts depsOptions, fn func(*Deps) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.ApprovalTimeout > 0 {
		cfg.Approval.Timeout = opts.ApprovalTimeout
	}

	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)

	// Snapshots are best effort: an unreachable backend degrades the run
	// instead of failing it.
	store, err := openStore(ctx, cfg.Snapshot)
	if err != nil {
		logger.Error("snapshot store unavailable, continuing without persistence",
			"backend", cfg.Snapshot.Backend, "error", err)
		store = unavailableStore{err: err}
	}
	defer store.Close()

	fetcher := web.New(&http.Client{}, web.Options{
		UserAgent:       cfg.Scrape.UserAgent,
		MaxBytes:        cfg.Scrape.MaxBytes,
		RespectRobots:   cfg.Scrape.RespectRobots,
		MinHostInterval: cfg.Scrape.MinHostInterval,
		JitterMin:       cfg.Scrape.JitterMin,
		JitterMax:       cfg.Scrape.JitterMax,
	}, logger)

	channel := telegram.New(cfg.Telegram, telegram.Options{}, logger)

	detection := services.NewDetectionService(fetcher, htmlblocks.New(), store, services.DetectionOptions{
		MaxBytes:     cfg.Scrape.MaxBytes,
		FetchTimeout: cfg.Scrape.RequestTimeout,
	}, logger)
	approval := services.NewApprovalService(newDraftGenerator(cfg.LLM, logger), channel, store, services.ApprovalOptions{
		RequestTimeout:  cfg.Scrape.RequestTimeout,
		ApprovalTimeout: cfg.Approval.Timeout,
	}, logger)

	metrics := prom.NewRecorder(cfg.Metrics, logger)
	events := opts.Events
	if events == nil {
		events = newJSONLineSink(os.Stdout)
	}

	deps := &Deps{
		Config:          cfg,
		Logger:          logger,
		Metrics:         metrics,
		WatchHandler:    handlers.NewWatchHandler(detection, approval, events, metrics, logger),
		NotifyHandler:   handlers.NewNotifyTestHandler(approval, logger),
		SnapshotHandler: handlers.NewSnapshotHandler(store),
	}
	return fn(deps)
}

// withSnapshots opens only the snapshot store for the snapshot subcommands.
func withSnapshots(ctx context.Context, fn func(*handlers.SnapshotHandler) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(ctx, cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer store.Close()

	return fn(handlers.NewSnapshotHandler(store))
}

// openStore returns the snapshot repository selected by cfg.Backend.
func openStore(ctx context.Context, cfg config.SnapshotConfig) (ports.SnapshotRepository, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return sqlite.NewStore(ctx, cfg)
	case config.BackendRedis:
		return redisstore.NewStore(ctx, cfg)
	case config.BackendPostgres:
		return postgres.NewStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// newDraftGenerator returns the OpenAI client, or a generator that always
// fails when no key is configured so runs fall back to the template draft.
func newDraftGenerator(cfg config.LLMConfig, logger *slog.Logger) ports.DraftGenerator {
	client, err := llm.NewClient(cfg)
	if err != nil {
		logger.Warn("draft generation disabled", "error", err)
		return disabledGenerator{reason: err}
	}
	return client
}

// disabledGenerator stands in for the LLM when it is not configured.
type disabledGenerator struct {
	reason error
}

func (g disabledGenerator) GenerateDraft(context.Context, string, entities.DraftPayload) (string, error) {
	reason := g.reason
	if reason == nil {
		reason = errors.New("draft generation disabled")
	}
	return "", &ports.GenerationError{Err: reason}
}
