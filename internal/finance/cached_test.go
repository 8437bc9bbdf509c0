package finance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volbot/internal/storage"
	"volbot/internal/volatility"
)

type memCache struct {
	fetch  map[string]storage.Fetch
	dates  map[string][]time.Time
	closes map[string][]float64
}

func newMemCache() *memCache {
	return &memCache{fetch: map[string]storage.Fetch{}, dates: map[string][]time.Time{}, closes: map[string][]float64{}}
}

func (m *memCache) LastFetch(_ context.Context, symbol string) (storage.Fetch, bool, error) {
	f, ok := m.fetch[symbol]
	return f, ok, nil
}

func (m *memCache) LoadPrices(_ context.Context, symbol string, start time.Time) ([]time.Time, []float64, error) {
	var d []time.Time
	var c []float64
	for i, x := range m.dates[symbol] {
		if !x.Before(start) {
			d = append(d, x)
			c = append(c, m.closes[symbol][i])
		}
	}
	return d, c, nil
}

func (m *memCache) SavePrices(_ context.Context, symbol string, start time.Time, dates []time.Time, closes []float64, at time.Time) error {
	m.fetch[symbol] = storage.Fetch{Symbol: symbol, Start: start, FetchedAt: at}
	m.dates[symbol] = dates
	m.closes[symbol] = closes
	return nil
}

type countingLoader struct {
	calls int
	s     volatility.Series
}

func (c *countingLoader) LoadPriceSeries(_ context.Context, _ string, start time.Time) (volatility.Series, error) {
	c.calls++
	return c.s.Since(start), nil
}

func TestCachedSource(t *testing.T) {
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s, err := volatility.NewPriceSeries("SPY", []time.Time{d0, d0.AddDate(0, 0, 1), d0.AddDate(0, 0, 2)}, []float64{1, 2, 3})
	require.NoError(t, err)
	up := &countingLoader{s: s}
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	c := NewCachedSource(up, newMemCache(), time.Hour)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	got, err := c.LoadPriceSeries(ctx, "SPY", d0)
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, s.Obs, got.Obs)

	// later start is served from cache
	got, err = c.LoadPriceSeries(ctx, "SPY", d0.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, up.calls)
	assert.Equal(t, []float64{2, 3}, got.Values())

	// earlier start than cached goes upstream
	_, err = c.LoadPriceSeries(ctx, "SPY", d0.AddDate(0, 0, -5))
	require.NoError(t, err)
	assert.Equal(t, 2, up.calls)

	// stale entries go upstream
	now = now.Add(2 * time.Hour)
	_, err = c.LoadPriceSeries(ctx, "SPY", d0)
	require.NoError(t, err)
	assert.Equal(t, 3, up.calls)
}
