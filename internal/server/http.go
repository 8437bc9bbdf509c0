package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volbot/internal/report"
	"volbot/internal/volatility"
)

// Runner produces a report for a set of parameters.
type Runner interface {
	Run(ctx context.Context, p volatility.Params) (*report.Report, error)
}

// NewHTTPMux registers the webhook (when non-nil), health check and the chart endpoint.
func NewHTTPMux(webhook http.HandlerFunc, runner Runner, defaults volatility.Params) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.HandleFunc("/telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	mux.Handle("/volcmp.png", chartHandler(runner, defaults))
	return mux
}

func ListenAndServe(addr string, mux *http.ServeMux) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// GET /volcmp.png?underlying=SPY&vol_index=^VIX&window=21&lag=21&start=1995-01-01
func chartHandler(runner Runner, defaults volatility.Params) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p, err := paramsFromQuery(r, defaults)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rep, err := runner.Run(r.Context(), p)
		if err != nil {
			log.Warn().Err(err).Str("underlying", p.Underlying).Str("vol_index", p.VolIndex).Msg("http: volcmp failed")
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("X-Volcmp-Summary", rep.Comparison.Summary.String())
		_, _ = w.Write(rep.Chart)
	}
}

func paramsFromQuery(r *http.Request, defaults volatility.Params) (volatility.Params, error) {
	q := r.URL.Query()
	p := defaults
	if v := strings.TrimSpace(q.Get("underlying")); v != "" {
		p.Underlying = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(q.Get("vol_index")); v != "" {
		p.VolIndex = strings.ToUpper(v)
	}
	for key, dst := range map[string]*int{"window": &p.RollingWindow, "lag": &p.Lag} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return p, fmt.Errorf("%w: %s must be an integer", volatility.ErrConfig, key)
			}
			*dst = n
		}
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return p, fmt.Errorf("%w: start must be YYYY-MM-DD", volatility.ErrConfig)
		}
		p.Start = t
	}
	return p, p.Validate()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, volatility.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, volatility.ErrDataSource):
		return http.StatusNotFound
	case errors.Is(err, volatility.ErrDomain):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
