package finance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"volbot/internal/volatility"
)

// YahooSource loads daily adjusted closes from the Yahoo Finance chart API.
type YahooSource struct {
	Client   *http.Client
	Hosts    []string
	Backoffs []time.Duration
	now      func() time.Time
}

// NewYahooSource builds a source over the given hosts (scheme included); an
// empty list uses query1/query2. proxyURL is optional.
func NewYahooSource(hosts []string, proxyURL string) *YahooSource {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if len(hosts) == 0 {
		hosts = defaultYahooHosts
	}
	trimmed := make([]string, len(hosts))
	for i, h := range hosts {
		trimmed[i] = strings.TrimRight(h, "/")
	}
	return &YahooSource{
		Client:   &http.Client{Timeout: 30 * time.Second, Transport: transport},
		Hosts:    trimmed,
		Backoffs: defaultYahooBackoffs,
		now:      time.Now,
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// LoadPriceSeries implements volatility.PriceLoader.
func (y *YahooSource) LoadPriceSeries(ctx context.Context, identifier string, start time.Time) (volatility.Series, error) {
	bars, err := y.fetchDaily(ctx, identifier, start)
	if err != nil {
		if errors.Is(err, errYahooNoData) {
			return volatility.Series{}, fmt.Errorf("%w: %v", volatility.ErrDataSource, err)
		}
		return volatility.Series{}, fmt.Errorf("%w: yahoo %s: %v", volatility.ErrDataSource, identifier, err)
	}
	s, err := volatility.NewPriceSeries(identifier, bars.dates, bars.closes)
	if err != nil {
		return volatility.Series{}, err
	}
	s = s.Since(dateOnly(start))
	if s.Len() == 0 {
		return volatility.Series{}, fmt.Errorf("%w: yahoo has no %s prices since %s", volatility.ErrDataSource, identifier, start.Format(time.DateOnly))
	}
	return s, nil
}
