package useCases

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/larriantoniy/dateregbot/internal/domain"
	"github.com/larriantoniy/dateregbot/internal/metrics"
	"github.com/larriantoniy/dateregbot/internal/ports"
	"golang.org/x/sync/errgroup"
)

// bot api отдаёт id каналов/супергрупп как -100xxxxxxxxxx
const channelIDShift = 1_000_000_000_000

type EstimatorOptions struct {
	HistoryScanLimit  int
	ProfilePhotoLimit int
	CacheTTL          time.Duration
	LookupTimeout     time.Duration
}

// Estimator собирает сигналы из всех источников и выбирает итоговую оценку
type Estimator struct {
	log     *slog.Logger
	tg      ports.TelegramClient
	scraper ports.PostScraper
	exif    ports.ExifReader
	anchors ports.AnchorEstimator
	cache   ports.ReportCache
	opts    EstimatorOptions
	now     func() time.Time
}

func NewEstimator(
	log *slog.Logger,
	tg ports.TelegramClient,
	scraper ports.PostScraper,
	exif ports.ExifReader,
	anchors ports.AnchorEstimator,
	cache ports.ReportCache,
	opts EstimatorOptions,
) *Estimator {
	return &Estimator{
		log:     log.With("component", "estimator"),
		tg:      tg,
		scraper: scraper,
		exif:    exif,
		anchors: anchors,
		cache:   cache,
		opts:    opts,
		now:     time.Now,
	}
}

// Estimate разрешает идентификатор и строит отчёт.
// Ошибка возвращается только если цель не удалось определить вообще.
func (e *Estimator) Estimate(ctx context.Context, identifier string) (*domain.Report, error) {
	reqID := uuid.NewString()
	log := e.log.With("request_id", reqID, "identifier", identifier)

	if e.opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.LookupTimeout)
		defer cancel()
	}

	start := e.now()
	defer func() { metrics.LookupDuration.Observe(e.now().Sub(start).Seconds()) }()

	ent, err := e.tg.Resolve(ctx, identifier)
	if err != nil {
		num, ok := parseNumericID(identifier)
		if !errors.Is(err, ports.ErrNotFound) || !ok {
			outcome := metrics.OutcomeError
			if errors.Is(err, ports.ErrNotFound) {
				outcome = metrics.OutcomeNotFound
			}
			metrics.Lookups.WithLabelValues(outcome).Inc()
			log.Info("resolve failed", "error", err)
			return nil, err
		}
		// числовой id без доступа к сущности: DC и якоря всё равно посчитаем
		ent = entityFromNumericID(num)
		log.Info("entity not resolvable, partial report", "id", ent.ID, "error", err)
	}
	log = log.With("entity_id", ent.ID, "kind", ent.Kind)

	if cached, err := e.cache.GetReport(ctx, ent); err == nil && cached != nil {
		metrics.CacheHits.Inc()
		metrics.Lookups.WithLabelValues(metrics.OutcomeOK).Inc()
		log.Debug("report served from cache", "cached_request_id", cached.RequestID)
		return cached, nil
	}

	signals := e.collect(ctx, log, ent)
	for src := range signals {
		metrics.Signals.WithLabelValues(string(src)).Inc()
	}

	report := &domain.Report{
		RequestID:   reqID,
		Entity:      ent,
		DC:          domain.DetectDC(ent.ID),
		Signals:     signals,
		Final:       domain.ChooseFinal(signals),
		GeneratedAt: e.now().UTC(),
	}

	if ent.Resolved {
		metrics.Lookups.WithLabelValues(metrics.OutcomeOK).Inc()
		if err := e.cache.SetReport(ctx, report, e.opts.CacheTTL); err != nil {
			log.Warn("cache report failed", "error", err)
		}
	} else {
		metrics.Lookups.WithLabelValues(metrics.OutcomePartial).Inc()
	}

	log.Info("report ready",
		"dc", report.DC,
		"signals", len(signals),
		"final_source", report.Final.Source,
		"confidence", report.Final.Confidence,
	)
	return report, nil
}

// collect опрашивает источники параллельно; сбой источника - просто нет сигнала
func (e *Estimator) collect(ctx context.Context, log *slog.Logger, ent domain.Entity) map[domain.Source]time.Time {
	var mu sync.Mutex
	signals := make(map[domain.Source]time.Time)
	put := func(src domain.Source, ts time.Time) {
		if ts.IsZero() {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if prev, ok := signals[src]; !ok || ts.Before(prev) {
			signals[src] = ts.UTC()
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if ent.Resolved {
		g.Go(func() error {
			photos, err := e.tg.ProfilePhotos(gctx, ent, e.opts.ProfilePhotoLimit)
			if err != nil {
				log.Debug("profile photos unavailable", "error", err)
			}
			for _, ph := range photos {
				if ts, ok := e.exif.DateFromBytes(ph.Data); ok {
					put(domain.SourceProfilePhotoExif, ts)
				}
				if ph.AddedDate.Unix() > 0 {
					put(domain.SourcePhotoUpload, ph.AddedDate)
				}
			}
			return nil
		})

		g.Go(func() error {
			ts, err := e.tg.EarliestMessage(gctx, ent, e.opts.HistoryScanLimit)
			if err != nil {
				log.Debug("history scan failed", "error", err)
			}
			put(domain.SourceEarliestMessage, ts)
			return nil
		})
	}

	if ent.Username != "" {
		g.Go(func() error {
			if ts, ok := e.scraper.Earliest(gctx, ent.Username); ok {
				put(domain.SourceTmePost, ts)
			}
			return nil
		})
	}

	_ = g.Wait()

	ts, explanation, err := e.anchors.Estimate(ent.ID)
	if err != nil {
		log.Warn("anchors estimate failed", "error", err)
	} else {
		log.Debug("anchors estimate", "explanation", explanation)
		put(domain.SourceAnchors, ts)
	}

	return signals
}

func parseNumericID(identifier string) (int64, bool) {
	id := strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	num, err := strconv.ParseInt(id, 10, 64)
	if err != nil || num == 0 {
		return 0, false
	}
	return num, true
}

func entityFromNumericID(num int64) domain.Entity {
	switch {
	case num > 0:
		return domain.Entity{ID: num, Kind: domain.KindUser}
	case num < -channelIDShift:
		return domain.Entity{ID: -num - channelIDShift, ChatID: num, Kind: domain.KindChannel}
	default:
		return domain.Entity{ID: -num, ChatID: num, Kind: domain.KindGroup}
	}
}
