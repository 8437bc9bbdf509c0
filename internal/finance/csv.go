package finance

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"volbot/internal/volatility"
)

// CSVSource reads <Dir>/<identifier>.csv files in the Yahoo download layout:
// a Date column (YYYY-MM-DD) and an "Adj Close" column.
type CSVSource struct {
	Dir         string
	PriceColumn string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir, PriceColumn: "Adj Close"}
}

func (c *CSVSource) Name() string { return "csv" }

// LoadPriceSeries implements volatility.PriceLoader.
func (c *CSVSource) LoadPriceSeries(_ context.Context, identifier string, start time.Time) (volatility.Series, error) {
	path := filepath.Join(c.Dir, identifier+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return volatility.Series{}, fmt.Errorf("%w: no price file for %s at %s", volatility.ErrDataSource, identifier, path)
		}
		return volatility.Series{}, fmt.Errorf("%w: open %s: %v", volatility.ErrDataSource, path, err)
	}
	defer f.Close()

	dates, closes, err := c.parse(f, identifier)
	if err != nil {
		return volatility.Series{}, err
	}
	s, err := volatility.NewPriceSeries(identifier, dates, closes)
	if err != nil {
		return volatility.Series{}, err
	}
	s = s.Since(dateOnly(start))
	if s.Len() == 0 {
		return volatility.Series{}, fmt.Errorf("%w: %s has no prices since %s", volatility.ErrDataSource, identifier, start.Format(time.DateOnly))
	}
	return s, nil
}

type csvRow struct {
	date  time.Time
	price float64
}

// parse reads the date and price columns, skipping rows whose price is blank,
// "null" or not finite (no trading data). Rows are returned sorted by date.
func (c *CSVSource) parse(r io.Reader, identifier string) ([]time.Time, []float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: read header: %v", volatility.ErrDataSource, identifier, err)
	}
	dateCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "Date":
			dateCol = i
		case c.PriceColumn:
			priceCol = i
		}
	}
	if dateCol < 0 || priceCol < 0 {
		return nil, nil, fmt.Errorf("%w: %s: missing Date or %q column", volatility.ErrDataSource, identifier, c.PriceColumn)
	}

	var rows []csvRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s line %d: %v", volatility.ErrDataSource, identifier, line, err)
		}
		raw := strings.TrimSpace(rec[priceCol])
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}
		d, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s line %d: %v", volatility.ErrDataSource, identifier, line, err)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s line %d: bad price %q", volatility.ErrDataSource, identifier, line, raw)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		rows = append(rows, csvRow{date: d, price: v})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
	dates := make([]time.Time, len(rows))
	closes := make([]float64, len(rows))
	for i, r := range rows {
		dates[i] = r.date
		closes[i] = r.price
	}
	return dates, closes, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}
