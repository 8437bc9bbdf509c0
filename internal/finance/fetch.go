package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	defaultYahooHosts    = []string{"https://query1.finance.yahoo.com", "https://query2.finance.yahoo.com"}
	defaultYahooBackoffs = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}
)

// errYahooNoData marks a well-formed response that carries no bars for the symbol.
var errYahooNoData = errors.New("yahoo returned no data")

// dailyBars is one symbol's daily closes as parallel slices, oldest first.
type dailyBars struct {
	dates  []time.Time
	closes []float64
}

// yahooGet issues one GET and decodes the JSON body into out, rejecting the
// throttling and HTML pages Yahoo serves in place of errors.
func (y *YahooSource) yahooGet(ctx context.Context, rawURL, symbol string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", url.PathEscape(strings.ToUpper(symbol))))
	resp, err := y.Client.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read yahoo response: %w", readErr)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return fmt.Errorf("yahoo returned 429: Edge: Too Many Requests")
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", errYahooNoData, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
	}
	return nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

// retry runs call against every host, backing off between rounds, until one succeeds.
// A no-data answer is final and is not retried.
func (y *YahooSource) retry(ctx context.Context, call func(host string) error) error {
	var lastErr error
	for attempt := 0; attempt < len(y.Backoffs)+1; attempt++ {
		for _, host := range y.Hosts {
			lastErr = call(host)
			if lastErr == nil || errors.Is(lastErr, errYahooNoData) {
				return lastErr
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug().Err(lastErr).Str("host", host).Int("attempt", attempt).Msg("yahoo: request failed")
		}
		if attempt < len(y.Backoffs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(y.Backoffs[attempt]):
			}
		}
	}
	return lastErr
}

// fetchDaily fetches daily adjusted closes from start until now, falling back to
// the spark endpoint (plain closes) when the chart endpoint keeps failing.
func (y *YahooSource) fetchDaily(ctx context.Context, symbol string, start time.Time) (dailyBars, error) {
	var yc yahooChartResp
	err := y.retry(ctx, func(host string) error {
		u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
			host, url.PathEscape(symbol), start.Unix(), y.now().Unix())
		yc = yahooChartResp{}
		return y.yahooGet(ctx, u, symbol, &yc)
	})
	if err == nil {
		return chartBars(yc)
	}
	if errors.Is(err, errYahooNoData) || ctx.Err() != nil {
		return dailyBars{}, err
	}
	log.Warn().Err(err).Str("symbol", symbol).Msg("yahoo: chart endpoint failed, trying spark")

	var sp yahooSparkResp
	sparkErr := y.retry(ctx, func(host string) error {
		u := fmt.Sprintf("%s/v7/finance/spark?symbols=%s&range=max&interval=1d",
			host, url.QueryEscape(strings.ToUpper(symbol)))
		sp = yahooSparkResp{}
		return y.yahooGet(ctx, u, symbol, &sp)
	})
	if sparkErr != nil {
		return dailyBars{}, errors.Join(err, fmt.Errorf("spark fallback: %w", sparkErr))
	}
	return sparkBars(sp)
}

func chartBars(yc yahooChartResp) (dailyBars, error) {
	if yc.Chart.Error != nil {
		return dailyBars{}, fmt.Errorf("%w: %s", errYahooNoData, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 {
		return dailyBars{}, errYahooNoData
	}
	r := yc.Chart.Result[0]
	var closes []*float64
	switch {
	case len(r.Indicators.AdjClose) > 0:
		closes = r.Indicators.AdjClose[0].AdjClose
	case len(r.Indicators.Quote) > 0:
		closes = r.Indicators.Quote[0].Close
	default:
		return dailyBars{}, errYahooNoData
	}
	return collectBars(r.Timestamp, closes, exchangeLocation(r.Meta.ExchangeTimezoneName)), nil
}

func sparkBars(sp yahooSparkResp) (dailyBars, error) {
	if len(sp.Spark.Result) == 0 || len(sp.Spark.Result[0].Response) == 0 {
		return dailyBars{}, errYahooNoData
	}
	r := sp.Spark.Result[0].Response[0]
	if len(r.Indicators.Quote) == 0 {
		return dailyBars{}, errYahooNoData
	}
	return collectBars(r.Timestamp, r.Indicators.Quote[0].Close, exchangeLocation(r.Meta.ExchangeTimezoneName)), nil
}

// collectBars pairs timestamps with closes, skipping null bars. A later bar on
// the same trading day replaces the earlier one (Yahoo appends a live bar).
func collectBars(ts []int64, closes []*float64, loc *time.Location) dailyBars {
	n := min(len(ts), len(closes))
	out := dailyBars{dates: make([]time.Time, 0, n), closes: make([]float64, 0, n)}
	for i := 0; i < n; i++ {
		if closes[i] == nil {
			continue
		}
		d := tradingDay(ts[i], loc)
		if k := len(out.dates); k > 0 && !d.After(out.dates[k-1]) {
			if d.Equal(out.dates[k-1]) {
				out.closes[k-1] = *closes[i]
			}
			continue
		}
		out.dates = append(out.dates, d)
		out.closes = append(out.closes, *closes[i])
	}
	return out
}
