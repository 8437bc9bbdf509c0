package volatility

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day0.AddDate(0, 0, i)
	}
	return out
}

func mustPrices(t *testing.T, name string, values ...float64) Series {
	t.Helper()
	s, err := NewPriceSeries(name, days(len(values)), values)
	require.NoError(t, err)
	return s
}

func TestNewPriceSeries_RejectsUnorderedDates(t *testing.T) {
	d := days(3)
	d[1], d[2] = d[2], d[1]
	_, err := NewPriceSeries("SPY", d, []float64{1, 2, 3})
	require.ErrorIs(t, err, ErrDataSource)

	dup := []time.Time{day0, day0}
	_, err = NewPriceSeries("SPY", dup, []float64{1, 2})
	require.ErrorIs(t, err, ErrDataSource)

	_, err = NewPriceSeries("SPY", days(2), []float64{1})
	require.ErrorIs(t, err, ErrDataSource)
}

func TestLogReturns(t *testing.T) {
	prices := mustPrices(t, "SPY", 100, 101, 99, 100, 102)
	r, err := LogReturns(prices)
	require.NoError(t, err)
	require.Equal(t, prices.Len()-1, r.Len())
	for i, o := range r.Obs {
		assert.True(t, o.Valid)
		assert.Equal(t, prices.Obs[i+1].Date, o.Date)
		assert.Equal(t, math.Log(prices.Obs[i+1].Value/prices.Obs[i].Value), o.Value)
	}
}

func TestLogReturns_NonPositivePrice(t *testing.T) {
	for _, bad := range []float64{0, -1} {
		_, err := LogReturns(mustPrices(t, "SPY", 100, bad, 101))
		require.ErrorIs(t, err, ErrDomain)
	}
}

func TestLogReturns_SinglePoint(t *testing.T) {
	r, err := LogReturns(mustPrices(t, "SPY", 100))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRollingAnnualizedVol_WarmupAndWindow(t *testing.T) {
	returns, err := LogReturns(mustPrices(t, "SPY", 100, 102, 101, 99, 103, 104, 100))
	require.NoError(t, err)

	const w = 3
	vol, err := RollingAnnualizedVol(returns, w)
	require.NoError(t, err)
	require.Equal(t, returns.Len(), vol.Len())
	for i := 0; i < w-1; i++ {
		assert.False(t, vol.Obs[i].Valid, "entry %d should be missing", i)
	}
	for i := w - 1; i < vol.Len(); i++ {
		assert.True(t, vol.Obs[i].Valid, "entry %d should be present", i)
	}

	// entry 3 depends only on returns[1..3]
	changed := Series{Name: returns.Name, Obs: append([]Observation(nil), returns.Obs...)}
	changed.Obs[0].Value = 0.5
	changed.Obs[4].Value = -0.5
	vol2, err := RollingAnnualizedVol(changed, w)
	require.NoError(t, err)
	assert.Equal(t, vol.Obs[3].Value, vol2.Obs[3].Value)
	assert.NotEqual(t, vol.Obs[2].Value, vol2.Obs[2].Value)
}

func TestRollingAnnualizedVol_Value(t *testing.T) {
	a, b := 0.01, -0.02
	returns := Series{Name: "r", Obs: []Observation{Present(day0, a), Present(day0.AddDate(0, 0, 1), b)}}
	vol, err := RollingAnnualizedVol(returns, 2)
	require.NoError(t, err)
	want := math.Abs(a-b) / math.Sqrt2 * math.Sqrt(252)
	assert.InDelta(t, want, vol.Obs[1].Value, 1e-12)
}

func TestRollingAnnualizedVol_MissingInWindow(t *testing.T) {
	d := days(4)
	returns := Series{Name: "r", Obs: []Observation{
		Present(d[0], 0.01), Missing(d[1]), Present(d[2], 0.02), Present(d[3], -0.01),
	}}
	vol, err := RollingAnnualizedVol(returns, 2)
	require.NoError(t, err)
	assert.False(t, vol.Obs[1].Valid)
	assert.False(t, vol.Obs[2].Valid)
	assert.True(t, vol.Obs[3].Valid)
}

func TestRollingAnnualizedVol_BadWindow(t *testing.T) {
	for _, w := range []int{-1, 0, 1} {
		_, err := RollingAnnualizedVol(Series{}, w)
		require.ErrorIs(t, err, ErrConfig)
	}
}

func TestRollingAnnualizedVol_Empty(t *testing.T) {
	vol, err := RollingAnnualizedVol(Series{Name: "r"}, 21)
	require.NoError(t, err)
	assert.Equal(t, 0, vol.Len())
}

func TestShiftBackward(t *testing.T) {
	src := mustPrices(t, "vol", 1, 2, 3, 4, 5, 6)
	src.Obs[0] = Missing(src.Obs[0].Date)

	same, err := ShiftBackward(src, 0)
	require.NoError(t, err)
	assert.Equal(t, src.Obs, same.Obs)

	const lag = 2
	out, err := ShiftBackward(src, lag)
	require.NoError(t, err)
	require.Equal(t, src.Len()-lag, out.Len())
	for j, o := range out.Obs {
		assert.Equal(t, src.Obs[j].Date, o.Date)
		assert.Equal(t, src.Obs[j+lag].Value, o.Value)
		assert.Equal(t, src.Obs[j+lag].Valid, o.Valid)
	}
}

func TestShiftBackward_RoundTripOnSurvivors(t *testing.T) {
	src := mustPrices(t, "vol", 10, 11, 12, 13, 14, 15, 16)
	const lag = 3
	out, err := ShiftBackward(src, lag)
	require.NoError(t, err)

	// re-date every survivor lag positions forward on the original axis
	index := map[time.Time]int{}
	for i, d := range src.Dates() {
		index[d] = i
	}
	recovered := map[time.Time]float64{}
	for _, o := range out.Obs {
		recovered[src.Obs[index[o.Date]+lag].Date] = o.Value
	}
	require.Len(t, recovered, src.Len()-lag)
	for i := lag; i < src.Len(); i++ {
		assert.Equal(t, src.Obs[i].Value, recovered[src.Obs[i].Date])
	}
}

func TestShiftBackward_LagBeyondLength(t *testing.T) {
	src := mustPrices(t, "vol", 1, 2, 3)
	for _, lag := range []int{3, 10} {
		out, err := ShiftBackward(src, lag)
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	}
	_, err := ShiftBackward(src, -1)
	require.ErrorIs(t, err, ErrConfig)
}

func TestAlignAndDiff(t *testing.T) {
	d := days(6)
	implied := Series{Name: "iv", Obs: []Observation{
		Present(d[0], 0.20), Present(d[1], 0.21), Present(d[2], 0.19), Missing(d[3]), Present(d[5], 0.30),
	}}
	actual := Series{Name: "rv", Obs: []Observation{
		Missing(d[0]), Present(d[1], 0.15), Present(d[2], 0.25), Present(d[3], 0.10), Present(d[4], 0.10),
	}}
	diff := AlignAndDiff(implied, actual)
	require.Equal(t, 2, diff.Len())
	assert.Equal(t, d[1], diff.Obs[0].Date)
	assert.Equal(t, 0.21-0.15, diff.Obs[0].Value)
	assert.Equal(t, d[2], diff.Obs[1].Date)
	assert.Equal(t, 0.19-0.25, diff.Obs[1].Value)
	for _, o := range diff.Obs {
		assert.True(t, o.Valid)
		_, inImplied := implied.At(o.Date)
		_, inActual := actual.At(o.Date)
		assert.True(t, inImplied && inActual)
	}
}

func TestAlignAndDiff_Empty(t *testing.T) {
	implied := mustPrices(t, "iv", 0.2, 0.3)
	assert.Equal(t, 0, AlignAndDiff(implied, Series{}).Len())
	assert.Equal(t, 0, AlignAndDiff(Series{}, implied).Len())
}

func TestSummarize(t *testing.T) {
	d := days(5)
	diff := Series{Obs: []Observation{
		Present(d[0], 0.1), Present(d[1], -0.1), Present(d[2], 0), Present(d[3], 0.2), Present(d[4], 0.05),
	}}
	s, err := Summarize(diff)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Over)
	assert.Equal(t, 1, s.Under)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 0.6, s.Rate)

	nonPositive := 0
	for _, o := range diff.Obs {
		if o.Value <= 0 {
			nonPositive++
		}
	}
	assert.Equal(t, s.Total, s.Over+nonPositive)
	assert.GreaterOrEqual(t, s.Rate, 0.0)
	assert.LessOrEqual(t, s.Rate, 1.0)
	assert.Equal(t, "60.00% (3/5) of time implied volatility over estimated actual volatility", s.String())
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(Series{})
	require.ErrorIs(t, err, ErrDomain)
}

func TestFromPercent(t *testing.T) {
	s := mustPrices(t, "^VIX", 20, 35.5)
	s.Obs = append(s.Obs, Missing(day0.AddDate(0, 0, 5)))
	out := FromPercent(s)
	assert.InDelta(t, 0.20, out.Obs[0].Value, 1e-15)
	assert.InDelta(t, 0.355, out.Obs[1].Value, 1e-15)
	assert.False(t, out.Obs[2].Valid)
	assert.Equal(t, 20.0, s.Obs[0].Value, "input must not change")
}

func TestSeries_Since(t *testing.T) {
	s := mustPrices(t, "SPY", 1, 2, 3, 4)
	assert.Equal(t, 2, s.Since(day0.AddDate(0, 0, 2)).Len())
	assert.Equal(t, 4, s.Since(day0.AddDate(-1, 0, 0)).Len())
	assert.Equal(t, 0, s.Since(day0.AddDate(1, 0, 0)).Len())
}
