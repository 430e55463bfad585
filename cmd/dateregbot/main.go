package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/larriantoniy/dateregbot/internal/adapters/bot"
	"github.com/larriantoniy/dateregbot/internal/adapters/cache"
	"github.com/larriantoniy/dateregbot/internal/adapters/exif"
	"github.com/larriantoniy/dateregbot/internal/adapters/tg"
	"github.com/larriantoniy/dateregbot/internal/adapters/tme"
	"github.com/larriantoniy/dateregbot/internal/anchors"
	"github.com/larriantoniy/dateregbot/internal/config"
	"github.com/larriantoniy/dateregbot/internal/metrics"
	"github.com/larriantoniy/dateregbot/internal/ports"
	"github.com/larriantoniy/dateregbot/internal/scheduler"
	"github.com/larriantoniy/dateregbot/internal/useCases"
	"golang.org/x/sync/errgroup"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

type reportCache interface {
	ports.ReportCache
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("exit with error", "error", err)
		os.Exit(1)
	}
	logger.Info("exit")
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := anchors.NewStore(cfg.AnchorsFile)
	if _, err := store.Ensure(time.Now()); err != nil {
		return err
	}
	logger.Info("anchors ready", "file", cfg.AnchorsFile, "count", len(store.Table()))

	sched, err := scheduler.New(logger)
	if err != nil {
		return err
	}
	err = sched.ScheduleAnchors(cfg.AnchorsRefresh, func(now time.Time) error {
		_, err := store.Ensure(now)
		return err
	})
	if err != nil {
		return err
	}

	rc, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	sessionName := cfg.SessionName()
	sc, err := config.NewJSONSessionConfigRepo(cfg.BaseDir).GetSessionConfig(ctx, sessionName)
	if err != nil {
		return err
	}

	mode := tg.ClientModeRuntime
	if cfg.AuthMode {
		mode = tg.ClientModeAuth
	}
	tgClient, err := tg.NewClient(cfg.ApiID, cfg.ApiHash, cfg.BaseDir, sc, logger.With("session", sessionName), mode)
	if err != nil {
		return err
	}
	defer tgClient.Close()

	estimator := useCases.NewEstimator(
		logger,
		tgClient,
		tme.NewScraper(logger, "", cfg.ScrapePages, cfg.ScrapeTimeout),
		exif.NewReader(),
		store,
		rc,
		useCases.EstimatorOptions{
			HistoryScanLimit:  cfg.HistoryScanLimit,
			ProfilePhotoLimit: cfg.ProfilePhotoLimit,
			CacheTTL:          cfg.CacheTTL,
			LookupTimeout:     cfg.LookupTimeout,
		},
	)

	b, err := bot.New(cfg.BotToken, logger, bot.NewHandlers(logger, estimator, rc, cfg.UserCooldown))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bot started", "self_id", tgClient.SelfID())
		b.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openCache без REDIS_ADDR работаем без кэша и кулдауна
func openCache(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (reportCache, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR is empty, cache and cooldown disabled")
		return cache.Noop{}, nil
	}
	rc, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	logger.Info("redis connected", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rc, nil
}

func setupLogger(env, level string) *slog.Logger {
	lvl := parseLevel(level)

	switch env {
	case envDev:
		lvl = slog.LevelDebug
	case envProd:
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// parseLevel понимает уровни slog и синонимы WARNING/CRITICAL/FATAL. Неизвестное - INFO.
func parseLevel(level string) slog.Level {
	name := strings.ToUpper(strings.TrimSpace(level))
	switch name {
	case "WARNING":
		name = "WARN"
	case "CRITICAL", "FATAL":
		name = "ERROR"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
