package volatility

import (
	"fmt"
	"time"
)

// Observation is one dated entry of a series. Valid is false when the value is missing.
type Observation struct {
	Date  time.Time
	Value float64
	Valid bool
}

// Present returns a present observation.
func Present(d time.Time, v float64) Observation {
	return Observation{Date: d, Value: v, Valid: true}
}

// Missing returns an observation with no value.
func Missing(d time.Time) Observation {
	return Observation{Date: d}
}

// Series is an ordered, date-indexed sequence with strictly increasing dates.
// Operations never modify a Series in place.
type Series struct {
	Name string
	Obs  []Observation
}

// NewPriceSeries builds a fully present series from parallel dates and values.
func NewPriceSeries(name string, dates []time.Time, values []float64) (Series, error) {
	if len(dates) != len(values) {
		return Series{}, fmt.Errorf("%w: %s has %d dates but %d values", ErrDataSource, name, len(dates), len(values))
	}
	obs := make([]Observation, len(dates))
	for i := range dates {
		if i > 0 && !dates[i].After(dates[i-1]) {
			return Series{}, fmt.Errorf("%w: %s dates not strictly increasing at %s", ErrDataSource, name, dates[i].Format(time.DateOnly))
		}
		obs[i] = Present(dates[i], values[i])
	}
	return Series{Name: name, Obs: obs}, nil
}

func (s Series) Len() int { return len(s.Obs) }

// PresentCount returns the number of entries carrying a value.
func (s Series) PresentCount() int {
	n := 0
	for _, o := range s.Obs {
		if o.Valid {
			n++
		}
	}
	return n
}

// Dates returns a copy of the date axis.
func (s Series) Dates() []time.Time {
	out := make([]time.Time, len(s.Obs))
	for i, o := range s.Obs {
		out[i] = o.Date
	}
	return out
}

// Values returns the present values in order, skipping missing entries.
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s.Obs))
	for _, o := range s.Obs {
		if o.Valid {
			out = append(out, o.Value)
		}
	}
	return out
}

// At looks up the observation dated d.
func (s Series) At(d time.Time) (Observation, bool) {
	for _, o := range s.Obs {
		if o.Date.Equal(d) {
			return o, true
		}
	}
	return Observation{}, false
}

// Since keeps the entries dated on or after start.
func (s Series) Since(start time.Time) Series {
	i := 0
	for i < len(s.Obs) && s.Obs[i].Date.Before(start) {
		i++
	}
	out := make([]Observation, len(s.Obs)-i)
	copy(out, s.Obs[i:])
	return Series{Name: s.Name, Obs: out}
}

// First returns the date of the first entry; ok is false for an empty series.
func (s Series) First() (time.Time, bool) {
	if len(s.Obs) == 0 {
		return time.Time{}, false
	}
	return s.Obs[0].Date, true
}

// FromPercent rescales quotes expressed in percent (e.g. a volatility index at 20) to decimals (0.20).
func FromPercent(s Series) Series {
	out := make([]Observation, len(s.Obs))
	for i, o := range s.Obs {
		out[i] = o
		if o.Valid {
			out[i].Value = o.Value / 100
		}
	}
	return Series{Name: s.Name, Obs: out}
}
