package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Fetch records when a symbol was last pulled from upstream and from which day.
type Fetch struct {
	Symbol    string
	Start     time.Time
	FetchedAt time.Time
}

// SavePrices upserts daily closes and stamps the fetch in one transaction.
func (s *Store) SavePrices(ctx context.Context, symbol string, start time.Time, dates []time.Time, closes []float64, fetchedAt time.Time) error {
	if len(dates) != len(closes) {
		return fmt.Errorf("save prices %s: %d dates but %d closes", symbol, len(dates), len(closes))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prices(symbol,day,close) VALUES(?,?,?)
		ON CONFLICT(symbol,day) DO UPDATE SET close=excluded.close`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, d := range dates {
		if _, err := stmt.ExecContext(ctx, symbol, d.Format(dayLayout), closes[i]); err != nil {
			return fmt.Errorf("save price %s %s: %w", symbol, d.Format(dayLayout), err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO price_fetches(symbol,start_day,fetched_at) VALUES(?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET start_day=excluded.start_day, fetched_at=excluded.fetched_at`,
		symbol, start.Format(dayLayout), fetchedAt.Unix()); err != nil {
		return fmt.Errorf("save fetch %s: %w", symbol, err)
	}
	return tx.Commit()
}

// LastFetch returns the latest fetch stamp for symbol; ok is false when it was never fetched.
func (s *Store) LastFetch(ctx context.Context, symbol string) (Fetch, bool, error) {
	var startDay string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT start_day, fetched_at FROM price_fetches WHERE symbol=?`, symbol).
		Scan(&startDay, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Fetch{}, false, nil
	}
	if err != nil {
		return Fetch{}, false, err
	}
	start, err := parseDay(startDay)
	if err != nil {
		return Fetch{}, false, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return Fetch{Symbol: symbol, Start: start, FetchedAt: time.Unix(fetchedAt, 0)}, true, nil
}

// LoadPrices returns cached closes for symbol on or after start, oldest first.
func (s *Store) LoadPrices(ctx context.Context, symbol string, start time.Time) ([]time.Time, []float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT day, close FROM prices WHERE symbol=? AND day>=? ORDER BY day ASC`,
		symbol, start.Format(dayLayout))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var dates []time.Time
	var closes []float64
	for rows.Next() {
		var day string
		var c float64
		if err := rows.Scan(&day, &c); err != nil {
			return nil, nil, err
		}
		d, err := parseDay(day)
		if err != nil {
			return nil, nil, fmt.Errorf("price %s: %w", symbol, err)
		}
		dates = append(dates, d)
		closes = append(closes, c)
	}
	return dates, closes, rows.Err()
}
