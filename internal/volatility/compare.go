package volatility

import (
	"context"
	"fmt"
	"time"
)

// PriceLoader resolves a ticker-like identifier to its adjusted-close series,
// keeping only dates on or after start. It must fail with ErrDataSource when
// the identifier is unknown or the filtered series is empty.
type PriceLoader interface {
	LoadPriceSeries(ctx context.Context, identifier string, start time.Time) (Series, error)
}

// Params selects the two series and the windowing of a comparison.
type Params struct {
	Underlying    string
	VolIndex      string
	RollingWindow int
	Lag           int
	Start         time.Time
}

// DefaultParams mirrors the classic SPY / VIX one-month comparison.
func DefaultParams() Params {
	return Params{
		Underlying:    "SPY",
		VolIndex:      "^VIX",
		RollingWindow: 21,
		Lag:           21,
		Start:         time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks the windowing parameters before any data is loaded.
func (p Params) Validate() error {
	if p.Underlying == "" || p.VolIndex == "" {
		return fmt.Errorf("%w: underlying and vol index identifiers are required", ErrConfig)
	}
	if p.RollingWindow < 2 {
		return fmt.Errorf("%w: rolling window must be at least 2, got %d", ErrConfig, p.RollingWindow)
	}
	if p.Lag < 0 {
		return fmt.Errorf("%w: lag must not be negative, got %d", ErrConfig, p.Lag)
	}
	return nil
}

// Comparison is everything the pipeline derives; rendering consumes it.
type Comparison struct {
	Params  Params
	Implied Series // vol index in decimals
	Actual  Series // realized vol shifted back by Lag
	Diff    Series // Implied - Actual on common dates
	Summary Summary
}

// Comparator runs the load → returns → rolling vol → shift → diff → summarize pipeline.
type Comparator struct {
	loader PriceLoader
}

func NewComparator(loader PriceLoader) *Comparator {
	return &Comparator{loader: loader}
}

// Compare loads both series and computes the comparison. The vol index is
// loaded from the underlying's first date so both start together.
func (c *Comparator) Compare(ctx context.Context, p Params) (*Comparison, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	under, err := c.loader.LoadPriceSeries(ctx, p.Underlying, p.Start)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.Underlying, err)
	}
	first, ok := under.First()
	if !ok {
		return nil, fmt.Errorf("%w: %s is empty since %s", ErrDataSource, p.Underlying, p.Start.Format(time.DateOnly))
	}
	index, err := c.loader.LoadPriceSeries(ctx, p.VolIndex, first)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.VolIndex, err)
	}
	return CompareSeries(under, FromPercent(index), p)
}

// CompareSeries runs the pure part of the pipeline on already-loaded series.
// implied must already be expressed in decimals.
func CompareSeries(underlying, implied Series, p Params) (*Comparison, error) {
	returns, err := LogReturns(underlying)
	if err != nil {
		return nil, err
	}
	rolling, err := RollingAnnualizedVol(onPriceAxis(returns, underlying), p.RollingWindow)
	if err != nil {
		return nil, err
	}
	actual, err := ShiftBackward(rolling, p.Lag)
	if err != nil {
		return nil, err
	}
	diff := AlignAndDiff(implied, actual)
	summary, err := Summarize(diff)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Params:  p,
		Implied: implied,
		Actual:  actual,
		Diff:    diff,
		Summary: summary,
	}, nil
}

// onPriceAxis dates returns on the price index: the first price has no return,
// so it gets a missing entry and ShiftBackward can move a value onto it.
func onPriceAxis(returns, prices Series) Series {
	first, ok := prices.First()
	if !ok {
		return returns
	}
	obs := make([]Observation, 0, len(returns.Obs)+1)
	obs = append(obs, Missing(first))
	obs = append(obs, returns.Obs...)
	return Series{Name: returns.Name, Obs: obs}
}
