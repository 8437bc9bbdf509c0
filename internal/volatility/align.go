package volatility

import (
	"fmt"
	"math"
)

// ShiftBackward re-dates the value at position i to the date at position i-lag,
// so each date carries the volatility realized over the period that starts there.
// The last lag dates have nothing to carry and are dropped; lag >= Len() yields an empty series.
func ShiftBackward(s Series, lag int) (Series, error) {
	if lag < 0 {
		return Series{}, fmt.Errorf("%w: lag must not be negative, got %d", ErrConfig, lag)
	}
	n := len(s.Obs) - lag
	if n <= 0 {
		return Series{Name: s.Name}, nil
	}
	out := make([]Observation, n)
	for j := 0; j < n; j++ {
		src := s.Obs[j+lag]
		out[j] = Observation{Date: s.Obs[j].Date, Value: src.Value, Valid: src.Valid}
	}
	return Series{Name: s.Name, Obs: out}, nil
}

// AlignAndDiff inner-joins implied and actual on date and returns implied - actual
// for every date present in both. Non-finite values count as missing, so the
// result never holds missing entries; an
// empty intersection gives an empty series, not an error.
func AlignAndDiff(implied, actual Series) Series {
	name := implied.Name + "-" + actual.Name
	out := make([]Observation, 0, min(len(implied.Obs), len(actual.Obs)))
	i, j := 0, 0
	for i < len(implied.Obs) && j < len(actual.Obs) {
		a, b := implied.Obs[i], actual.Obs[j]
		switch {
		case a.Date.Before(b.Date):
			i++
		case b.Date.Before(a.Date):
			j++
		default:
			if a.Valid && b.Valid {
				if d := a.Value - b.Value; !math.IsNaN(d) && !math.IsInf(d, 0) {
					out = append(out, Present(a.Date, d))
				}
			}
			i++
			j++
		}
	}
	return Series{Name: name, Obs: out}
}
