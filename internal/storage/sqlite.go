package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; avoids "database is locked" between the bot and HTTP handlers
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(ctx context.Context, db DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices(
			symbol TEXT NOT NULL, day TEXT NOT NULL, close REAL NOT NULL,
			PRIMARY KEY(symbol, day)
		)`,
		`CREATE TABLE IF NOT EXISTS price_fetches(
			symbol TEXT PRIMARY KEY, start_day TEXT NOT NULL, fetched_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			underlying TEXT, vol_index TEXT, window_days INTEGER, lag_days INTEGER,
			start_day TEXT, first_day TEXT, last_day TEXT,
			over_count INTEGER, under_count INTEGER, total INTEGER, rate REAL,
			created_at INTEGER
		)`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func NewStore(db DB) *Store { return &Store{db: db} }

const dayLayout = time.DateOnly

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, time.UTC)
}
