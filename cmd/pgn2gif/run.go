package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/park285/pgn2gif/internal/config"
	"github.com/park285/pgn2gif/internal/dispatch"
	"github.com/park285/pgn2gif/internal/filter"
	"github.com/park285/pgn2gif/internal/ledger"
	"github.com/park285/pgn2gif/internal/lilagif"
	"github.com/park285/pgn2gif/internal/obslog"
	"github.com/park285/pgn2gif/internal/output"
	"github.com/park285/pgn2gif/internal/pgnsource"
	"github.com/park285/pgn2gif/internal/progress"
	"github.com/park285/pgn2gif/internal/rendercache"
	"github.com/park285/pgn2gif/internal/workerpool"
	"go.uber.org/zap"
)

var errRendersFailed = errors.New("some games failed to render")

type cacheStats interface {
	Hits() int64
	Misses() int64
}

func runConvert(ctx context.Context, a *app, cfg *config.AppConfig) error {
	if a.interactive && (cfg.Input == "" || cfg.Output == "") {
		if err := promptMissing(a.stdin, a.stdout, cfg); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := obslog.Init(obslog.Options{
		Level:   cfg.LogLevel(),
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Console: a.stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	writer := output.NewWriter(cfg.Output)
	if err := writer.Lock(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer func() {
		if err := writer.Unlock(); err != nil {
			logger.Warn("output_unlock_failed", zap.Error(err))
		}
	}()

	sel, err := selectRecords(cfg, logger)
	if err != nil {
		return err
	}

	renderer, stats, closeCache := buildRenderer(ctx, cfg, logger)
	defer closeCache()

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	reporters := progress.Multi{progress.NewLog(logger, cfg.Verbose)}
	if progress.IsTerminal(a.stderr) {
		reporters = append(reporters, progress.NewBar(a.stderr))
	}
	if rec, closeLedger := openRecorder(ctx, cfg, logger); rec != nil {
		defer closeLedger()
		reporters = append(reporters, rec)
	}

	d, err := dispatch.New(runner, renderer, writer,
		dispatch.WithReporter(reporters),
		dispatch.WithLogger(logger),
		dispatch.WithDelay(cfg.FrameDelay),
		dispatch.WithComment(cfg.Render.Comment),
	)
	if err != nil {
		return err
	}
	sum := d.Run(ctx, sel)

	printSummary(a.stdout, sum, stats)
	if sum.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRendersFailed, sum.Failed, sum.Selected)
	}
	return nil
}

func selectRecords(cfg *config.AppConfig, logger *zap.Logger) (dispatch.Selection, error) {
	f, err := os.Open(cfg.Input)
	if err != nil {
		return dispatch.Selection{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return dispatch.Select(pgnsource.New(f, logger), filter.ByParticipant(cfg.Target()), logger)
}

// buildRenderer wraps the HTTP client in the Redis cache when one is
// configured and reachable. An unreachable cache only costs a warning.
func buildRenderer(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (lilagif.Renderer, cacheStats, func()) {
	client := lilagif.NewClient(cfg.Render.URL,
		lilagif.WithTimeout(cfg.Render.Timeout.Std()),
		lilagif.WithMaxConns(cfg.Workers),
		lilagif.WithRateLimit(cfg.Render.RateLimit),
		lilagif.WithLogger(logger),
	)
	if cfg.Cache.RedisURL == "" {
		return client, nil, func() {}
	}
	store, err := rendercache.Open(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL.Std())
	if err != nil {
		logger.Warn("render_cache_unavailable", zap.Error(err))
		return client, nil, func() {}
	}
	cached := lilagif.NewCached(client, store, logger)
	return cached, cached, func() { _ = store.Close() }
}

func buildRunner(cfg *config.AppConfig, logger *zap.Logger) (workerpool.Runner, error) {
	if cfg.Mode == config.ModeSequential {
		return workerpool.NewInline(), nil
	}
	return workerpool.NewPool(cfg.Workers, logger)
}

// openRecorder returns nil when no ledger is configured or it cannot be
// opened; the run goes ahead either way.
func openRecorder(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*ledger.Recorder, func()) {
	if cfg.Ledger.DSN == "" {
		return nil, func() {}
	}
	l, err := ledger.Open(ctx, cfg.Ledger.DSN, logger)
	if err != nil {
		logger.Warn("ledger_unavailable", zap.Error(err))
		return nil, func() {}
	}
	runID, err := l.BeginRun(ctx, ledger.RunInfo{
		Input:   cfg.Input,
		Output:  cfg.Output,
		Target:  cfg.Target(),
		Mode:    string(cfg.Mode),
		Workers: cfg.Workers,
	})
	if err != nil {
		logger.Warn("ledger_begin_failed", zap.Error(err))
		_ = l.Close()
		return nil, func() {}
	}
	logger.Info("ledger_run_started", zap.String("run", runID))
	return l.Recorder(runID), func() { _ = l.Close() }
}
