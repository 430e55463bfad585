package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK         = "ok"
	OutcomePartial    = "partial"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
	OutcomeThrottled  = "throttled"
	OutcomeBadRequest = "bad_request"
)

var (
	// Lookups is a counter for bot lookups by outcome.
	Lookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dateregbot_lookups_total",
			Help: "The total number of registration date lookups.",
		},
		[]string{"outcome"},
	)

	// Signals is a counter for evidence sources that produced a date.
	Signals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dateregbot_signals_total",
			Help: "The total number of signals found per evidence source.",
		},
		[]string{"source"},
	)

	// LookupDuration is a histogram of the time it takes to build a report.
	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dateregbot_lookup_duration_seconds",
			Help:    "A histogram of the lookup duration.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s .. 64s
		},
	)

	// CacheHits is a counter for reports served from cache.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dateregbot_cache_hits_total",
			Help: "The total number of reports served from cache.",
		},
	)
)

// NewHandler /metrics и /healthz
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve держит HTTP-сервер метрик до отмены ctx
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
