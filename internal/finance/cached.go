package finance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"volbot/internal/storage"
	"volbot/internal/volatility"
)

// PriceCache is the persistence the cached source reads through; *storage.Store implements it.
type PriceCache interface {
	LastFetch(ctx context.Context, symbol string) (storage.Fetch, bool, error)
	LoadPrices(ctx context.Context, symbol string, start time.Time) ([]time.Time, []float64, error)
	SavePrices(ctx context.Context, symbol string, start time.Time, dates []time.Time, closes []float64, fetchedAt time.Time) error
}

// CachedSource serves prices from the cache when the symbol was fetched recently
// from an early enough start, and otherwise refreshes it from upstream.
type CachedSource struct {
	upstream volatility.PriceLoader
	cache    PriceCache
	maxAge   time.Duration
	now      func() time.Time
}

func NewCachedSource(upstream volatility.PriceLoader, cache PriceCache, maxAge time.Duration) *CachedSource {
	return &CachedSource{upstream: upstream, cache: cache, maxAge: maxAge, now: time.Now}
}

// LoadPriceSeries implements volatility.PriceLoader.
func (c *CachedSource) LoadPriceSeries(ctx context.Context, identifier string, start time.Time) (volatility.Series, error) {
	start = dateOnly(start)
	f, ok, err := c.cache.LastFetch(ctx, identifier)
	if err != nil {
		log.Warn().Err(err).Str("symbol", identifier).Msg("cache: lookup failed, going upstream")
	} else if ok && !f.Start.After(start) && c.now().Sub(f.FetchedAt) < c.maxAge {
		dates, closes, err := c.cache.LoadPrices(ctx, identifier, start)
		if err == nil && len(dates) > 0 {
			log.Debug().Str("symbol", identifier).Int("points", len(dates)).Msg("cache: hit")
			return volatility.NewPriceSeries(identifier, dates, closes)
		}
		if err != nil {
			log.Warn().Err(err).Str("symbol", identifier).Msg("cache: read failed, going upstream")
		}
	}

	s, err := c.upstream.LoadPriceSeries(ctx, identifier, start)
	if err != nil {
		return volatility.Series{}, err
	}
	if err := c.cache.SavePrices(ctx, identifier, start, s.Dates(), s.Values(), c.now()); err != nil {
		log.Warn().Err(err).Str("symbol", identifier).Msg("cache: store failed")
		return s, nil
	}
	log.Debug().Str("symbol", identifier).Int("points", s.Len()).Msg("cache: stored")
	return s, nil
}
