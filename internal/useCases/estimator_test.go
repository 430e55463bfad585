package useCases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/larriantoniy/dateregbot/internal/domain"
	"github.com/larriantoniy/dateregbot/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTG struct {
	entity     domain.Entity
	resolveErr error
	photos     []ports.ProfilePhoto
	photosErr  error
	earliest   time.Time
	historyErr error

	mu       sync.Mutex
	resolved []string
}

func (f *fakeTG) Resolve(_ context.Context, identifier string) (domain.Entity, error) {
	f.mu.Lock()
	f.resolved = append(f.resolved, identifier)
	f.mu.Unlock()
	return f.entity, f.resolveErr
}

func (f *fakeTG) ProfilePhotos(context.Context, domain.Entity, int) ([]ports.ProfilePhoto, error) {
	return f.photos, f.photosErr
}

func (f *fakeTG) EarliestMessage(context.Context, domain.Entity, int) (time.Time, error) {
	return f.earliest, f.historyErr
}

func (f *fakeTG) Close() {}

type fakeScraper struct {
	ts    time.Time
	calls int
	mu    sync.Mutex
}

func (f *fakeScraper) Earliest(context.Context, string) (time.Time, bool) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.ts, !f.ts.IsZero()
}

// fakeExif "читает" дату из содержимого вида "exif:2015-01-02"
type fakeExif struct{}

func (fakeExif) DateFromBytes(data []byte) (time.Time, bool) {
	var y, m, d int
	if _, err := fmt.Sscanf(string(data), "exif:%d-%d-%d", &y, &m, &d); err != nil {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

type fakeAnchors struct {
	ts  time.Time
	err error
	ids []int64
}

func (f *fakeAnchors) Estimate(id int64) (time.Time, string, error) {
	f.ids = append(f.ids, id)
	return f.ts, "fake", f.err
}

type memCache struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
	sets    int
}

func newMemCache() *memCache {
	return &memCache{reports: make(map[string]*domain.Report)}
}

func key(ent domain.Entity) string { return fmt.Sprintf("%s:%d", ent.Kind, ent.ID) }

func (c *memCache) GetReport(_ context.Context, ent domain.Entity) (*domain.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.reports[key(ent)]
	if !ok {
		return nil, errors.New("miss")
	}
	cp := *r
	cp.Cached = true
	return &cp, nil
}

func (c *memCache) SetReport(_ context.Context, r *domain.Report, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.reports[key(r.Entity)] = r
	return nil
}

func (c *memCache) Acquire(context.Context, int64, time.Duration) (bool, error) { return true, nil }

var (
	day = func(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }
	opt = EstimatorOptions{HistoryScanLimit: 100, ProfilePhotoLimit: 5, CacheTTL: time.Hour, LookupTimeout: time.Second}
)

func newTestEstimator(tg *fakeTG, sc *fakeScraper, an *fakeAnchors, cache ports.ReportCache) *Estimator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEstimator(log, tg, sc, fakeExif{}, an, cache, opt)
}

func TestEstimate_AllSignals(t *testing.T) {
	tg := &fakeTG{
		entity: domain.Entity{ID: 2<<28 | 5, Kind: domain.KindUser, Username: "durov", Name: "Pavel", Resolved: true},
		photos: []ports.ProfilePhoto{
			{Data: []byte("exif:2016-05-05"), AddedDate: day(2017, 1, 1)},
			{Data: []byte("exif:2015-03-03"), AddedDate: day(2016, 1, 1)},
			{Data: []byte("no exif"), AddedDate: time.Unix(0, 0)},
		},
		earliest: day(2014, 2, 2),
	}
	sc := &fakeScraper{ts: day(2018, 8, 8)}
	an := &fakeAnchors{ts: day(2019, 9, 9)}
	cache := newMemCache()

	rep, err := newTestEstimator(tg, sc, an, cache).Estimate(context.Background(), "@durov")
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RequestID)
	assert.Equal(t, 2, rep.DC)
	assert.Equal(t, map[domain.Source]time.Time{
		domain.SourceProfilePhotoExif: day(2015, 3, 3),
		domain.SourcePhotoUpload:      day(2016, 1, 1),
		domain.SourceEarliestMessage:  day(2014, 2, 2),
		domain.SourceTmePost:          day(2018, 8, 8),
		domain.SourceAnchors:          day(2019, 9, 9),
	}, rep.Signals)
	assert.Equal(t, domain.SourceProfilePhotoExif, rep.Final.Source)
	assert.Equal(t, day(2015, 3, 3), rep.Final.Time)
	assert.Equal(t, []int64{2<<28 | 5}, an.ids)
	assert.Equal(t, 1, cache.sets)
	assert.False(t, rep.Cached)
}

func TestEstimate_SourceFailuresAreSwallowed(t *testing.T) {
	tg := &fakeTG{
		entity:     domain.Entity{ID: 100, Kind: domain.KindChannel, Resolved: true},
		photosErr:  errors.New("boom"),
		historyErr: errors.New("boom"),
	}
	sc := &fakeScraper{ts: day(2018, 8, 8)}
	an := &fakeAnchors{err: errors.New("no anchors")}

	rep, err := newTestEstimator(tg, sc, an, newMemCache()).Estimate(context.Background(), "100")
	require.NoError(t, err)

	// без username t.me не трогаем
	assert.Zero(t, sc.calls)
	assert.Empty(t, rep.Signals)
	assert.False(t, rep.Final.Found())
	assert.Equal(t, domain.NoSignalExplanation, rep.Final.Explanation)
	assert.Equal(t, 4, rep.DC)
}

func TestEstimate_FallsBackToTmeThenAnchors(t *testing.T) {
	tg := &fakeTG{entity: domain.Entity{ID: 7, Kind: domain.KindChannel, Username: "news", Resolved: true}}
	sc := &fakeScraper{ts: day(2018, 8, 8)}
	an := &fakeAnchors{ts: day(2019, 9, 9)}

	rep, err := newTestEstimator(tg, sc, an, newMemCache()).Estimate(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceTmePost, rep.Final.Source)
	assert.InDelta(t, 0.6, rep.Final.Confidence, 1e-9)

	sc.ts = time.Time{}
	tg.entity.ID = 8
	rep, err = newTestEstimator(tg, sc, an, newMemCache()).Estimate(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceAnchors, rep.Final.Source)
}

func TestEstimate_CacheHit(t *testing.T) {
	tg := &fakeTG{entity: domain.Entity{ID: 55, Kind: domain.KindUser, Resolved: true}, earliest: day(2014, 2, 2)}
	an := &fakeAnchors{ts: day(2019, 9, 9)}
	cache := newMemCache()
	est := newTestEstimator(tg, &fakeScraper{}, an, cache)

	first, err := est.Estimate(context.Background(), "55")
	require.NoError(t, err)
	second, err := est.Estimate(context.Background(), "55")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.RequestID, second.RequestID)
	assert.Len(t, an.ids, 1, "anchors must not be consulted on cache hit")
	assert.Equal(t, 1, cache.sets)
}

func TestEstimate_UnresolvedNumericID(t *testing.T) {
	tg := &fakeTG{resolveErr: fmt.Errorf("%w: 123: not known", ports.ErrNotFound)}
	an := &fakeAnchors{ts: day(2020, 1, 1)}
	cache := newMemCache()

	rep, err := newTestEstimator(tg, &fakeScraper{}, an, cache).Estimate(context.Background(), "3<<28")
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Nil(t, rep)

	rep, err = newTestEstimator(tg, &fakeScraper{}, an, cache).Estimate(context.Background(), " 805306368 ")
	require.NoError(t, err)
	assert.False(t, rep.Entity.Resolved)
	assert.Equal(t, domain.KindUser, rep.Entity.Kind)
	assert.Equal(t, 3, rep.DC)
	assert.Equal(t, domain.SourceAnchors, rep.Final.Source)
	assert.Zero(t, cache.sets, "partial reports are not cached")
}

func TestEstimate_ResolveError(t *testing.T) {
	tg := &fakeTG{resolveErr: errors.New("tdlib down")}
	_, err := newTestEstimator(tg, &fakeScraper{}, &fakeAnchors{}, newMemCache()).Estimate(context.Background(), "12345")
	assert.EqualError(t, err, "tdlib down")
}

func TestEntityFromNumericID(t *testing.T) {
	assert.Equal(t, domain.Entity{ID: 42, Kind: domain.KindUser}, entityFromNumericID(42))
	assert.Equal(t,
		domain.Entity{ID: 1234567890, ChatID: -1001234567890, Kind: domain.KindChannel},
		entityFromNumericID(-1001234567890))
	assert.Equal(t, domain.Entity{ID: 4242, ChatID: -4242, Kind: domain.KindGroup}, entityFromNumericID(-4242))

	_, ok := parseNumericID("@durov")
	assert.False(t, ok)
	_, ok = parseNumericID("0")
	assert.False(t, ok)
	n, ok := parseNumericID("@123")
	assert.True(t, ok)
	assert.Equal(t, int64(123), n)
}
