package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared&_fk=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(context.Background(), db))
	return NewStore(db)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_Prices(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastFetch(ctx, "SPY")
	require.NoError(t, err)
	assert.False(t, ok)

	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}
	fetched := time.Unix(1_700_000_000, 0)
	require.NoError(t, s.SavePrices(ctx, "SPY", day(2024, 1, 1), dates, []float64{470.1, 468.8, 467.3}, fetched))
	// overlapping save updates in place
	require.NoError(t, s.SavePrices(ctx, "SPY", day(2024, 1, 1), dates[2:], []float64{467.5}, fetched.Add(time.Hour)))

	f, ok, err := s.LastFetch(ctx, "SPY")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 1), f.Start)
	assert.Equal(t, fetched.Add(time.Hour).Unix(), f.FetchedAt.Unix())

	got, closes, err := s.LoadPrices(ctx, "SPY", day(2024, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, dates[1:], got)
	assert.Equal(t, []float64{468.8, 467.5}, closes)

	other, _, err := s.LoadPrices(ctx, "QQQ", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, other)

	require.Error(t, s.SavePrices(ctx, "SPY", day(2024, 1, 1), dates, []float64{1}, fetched))
}

func TestStore_Runs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.SaveRun(ctx, Run{
			Underlying: "SPY", VolIndex: "^VIX", Window: 21, Lag: 21 + i,
			Start: day(1995, 1, 1), FirstDay: day(1995, 1, 3), LastDay: day(2024, 6, 28),
			Over: 10 + i, Under: 5, Total: 15 + i, Rate: float64(10+i) / float64(15+i),
			CreatedAt: time.Unix(1_700_000_000+int64(i), 0),
		})
		require.NoError(t, err)
	}
	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 23, runs[0].Lag)
	assert.Equal(t, 22, runs[1].Lag)
	assert.Equal(t, day(2024, 6, 28), runs[0].LastDay)
	assert.Equal(t, 12, runs[0].Over)
	assert.InDelta(t, 12.0/17.0, runs[0].Rate, 1e-12)
}

func TestStore_RecentRunsRejectsCorruptDay(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id, err := s.SaveRun(ctx, Run{
		Underlying: "SPY", VolIndex: "^VIX", Window: 21, Lag: 21,
		Start: day(1995, 1, 1), FirstDay: day(1995, 1, 3), LastDay: day(2024, 6, 28),
		CreatedAt: time.Unix(1_700_000_000, 0),
	})
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE runs SET first_day='03/01/1995' WHERE id=?`, id)
	require.NoError(t, err)

	_, err = s.RecentRuns(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 1")
}
