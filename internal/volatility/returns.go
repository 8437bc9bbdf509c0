package volatility

import (
	"fmt"
	"math"
	"time"
)

// LogReturns emits ln(p[i]/p[i-1]) for each adjacent pair, dated at i.
// The result is one entry shorter than the input; a series of 0 or 1 points yields an empty series.
func LogReturns(prices Series) (Series, error) {
	for _, o := range prices.Obs {
		if !o.Valid {
			return Series{}, fmt.Errorf("%w: %s has no price on %s", ErrDomain, prices.Name, o.Date.Format(time.DateOnly))
		}
		if o.Value <= 0 || math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return Series{}, fmt.Errorf("%w: %s has invalid price %f on %s", ErrDomain, prices.Name, o.Value, o.Date.Format(time.DateOnly))
		}
	}
	if len(prices.Obs) < 2 {
		return Series{Name: prices.Name}, nil
	}
	out := make([]Observation, 0, len(prices.Obs)-1)
	for i := 1; i < len(prices.Obs); i++ {
		r := math.Log(prices.Obs[i].Value / prices.Obs[i-1].Value)
		out = append(out, Present(prices.Obs[i].Date, r))
	}
	return Series{Name: prices.Name, Obs: out}, nil
}
