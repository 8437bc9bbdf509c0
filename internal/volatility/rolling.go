package volatility

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// TradingDaysPerYear is the annualization constant for daily data.
const TradingDaysPerYear = 252

// RollingAnnualizedVol computes, for every i >= window-1, the sample standard
// deviation (N-1) of returns[i-window+1..i] scaled by sqrt(252). The first
// window-1 entries, and any entry whose window touches a missing return, are missing.
func RollingAnnualizedVol(returns Series, window int) (Series, error) {
	if window < 2 {
		return Series{}, fmt.Errorf("%w: rolling window must be at least 2, got %d", ErrConfig, window)
	}
	annualize := math.Sqrt(TradingDaysPerYear)
	out := make([]Observation, len(returns.Obs))
	buf := make(stats.Float64Data, window)
	for i, o := range returns.Obs {
		out[i] = Missing(o.Date)
		if i < window-1 {
			continue
		}
		complete := true
		for j := 0; j < window; j++ {
			w := returns.Obs[i-window+1+j]
			if !w.Valid {
				complete = false
				break
			}
			buf[j] = w.Value
		}
		if !complete {
			continue
		}
		sd, err := stats.StandardDeviationSample(buf)
		if err != nil {
			return Series{}, fmt.Errorf("%w: std dev at %d: %v", ErrDomain, i, err)
		}
		out[i] = Present(o.Date, sd*annualize)
	}
	return Series{Name: returns.Name, Obs: out}, nil
}
