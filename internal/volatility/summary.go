package volatility

import "fmt"

// Summary counts how often implied volatility exceeded the realized figure.
type Summary struct {
	Over  int     // entries strictly above zero
	Under int     // entries strictly below zero
	Total int     // entries considered
	Rate  float64 // Over / Total
}

// Summarize tallies a difference series. An empty series is a domain error.
func Summarize(diff Series) (Summary, error) {
	var s Summary
	for _, o := range diff.Obs {
		if !o.Valid {
			continue
		}
		s.Total++
		switch {
		case o.Value > 0:
			s.Over++
		case o.Value < 0:
			s.Under++
		}
	}
	if s.Total == 0 {
		return Summary{}, fmt.Errorf("%w: no overlapping observations to summarize", ErrDomain)
	}
	s.Rate = float64(s.Over) / float64(s.Total)
	return s, nil
}

// String renders the summary the way the chart subtitle does.
func (s Summary) String() string {
	return fmt.Sprintf("%.2f%% (%d/%d) of time implied volatility over estimated actual volatility",
		s.Rate*100, s.Over, s.Total)
}
