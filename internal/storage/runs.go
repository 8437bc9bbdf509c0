package storage

import (
	"context"
	"fmt"
	"time"
)

// Run is one recorded comparison.
type Run struct {
	ID         int64
	Underlying string
	VolIndex   string
	Window     int
	Lag        int
	Start      time.Time
	FirstDay   time.Time
	LastDay    time.Time
	Over       int
	Under      int
	Total      int
	Rate       float64
	CreatedAt  time.Time
}

func (s *Store) SaveRun(ctx context.Context, r Run) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs(
		underlying,vol_index,window_days,lag_days,start_day,first_day,last_day,
		over_count,under_count,total,rate,created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.Underlying, r.VolIndex, r.Window, r.Lag,
		r.Start.Format(dayLayout), r.FirstDay.Format(dayLayout), r.LastDay.Format(dayLayout),
		r.Over, r.Under, r.Total, r.Rate, r.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecentRuns lists the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,underlying,vol_index,window_days,lag_days,start_day,first_day,last_day,
		over_count,under_count,total,rate,created_at FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var start, first, last string
		var created int64
		if err := rows.Scan(&r.ID, &r.Underlying, &r.VolIndex, &r.Window, &r.Lag, &start, &first, &last,
			&r.Over, &r.Under, &r.Total, &r.Rate, &created); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			dst *time.Time
			raw string
		}{{&r.Start, start}, {&r.FirstDay, first}, {&r.LastDay, last}} {
			d, err := parseDay(f.raw)
			if err != nil {
				return nil, fmt.Errorf("run %d: %w", r.ID, err)
			}
			*f.dst = d
		}
		r.CreatedAt = time.Unix(created, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
