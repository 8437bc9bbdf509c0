package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"volbot/internal/storage"
	"volbot/internal/volatility"
)

// Renderer turns a comparison into an image. It is the only step with a drawing backend.
type Renderer interface {
	Render(cmp *volatility.Comparison) ([]byte, error)
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, r storage.Run) (int64, error)
}

// Commentator writes a short narrative for a comparison.
type Commentator interface {
	Comment(ctx context.Context, cmp *volatility.Comparison) (string, error)
}

// Report is the outcome of one run.
type Report struct {
	Comparison *volatility.Comparison
	Chart      []byte
	Caption    string
	Commentary string
	RunID      int64
}

// Service runs a comparison end to end: compute, render, then the optional
// record and commentary steps. Only compute and render failures abort a run.
type Service struct {
	comparator  *volatility.Comparator
	renderer    Renderer
	recorder    RunRecorder
	commentator Commentator
	now         func() time.Time
}

// NewService wires the pipeline; recorder and commentator may be nil.
func NewService(comparator *volatility.Comparator, renderer Renderer, recorder RunRecorder, commentator Commentator) *Service {
	return &Service{
		comparator:  comparator,
		renderer:    renderer,
		recorder:    recorder,
		commentator: commentator,
		now:         time.Now,
	}
}

func (s *Service) Run(ctx context.Context, p volatility.Params) (*Report, error) {
	started := s.now()
	cmp, err := s.comparator.Compare(ctx, p)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("underlying", p.Underlying).Str("vol_index", p.VolIndex).
		Int("window", p.RollingWindow).Int("lag", p.Lag).
		Int("over", cmp.Summary.Over).Int("total", cmp.Summary.Total).
		Float64("rate", cmp.Summary.Rate).
		Dur("took", s.now().Sub(started)).
		Msg("report: comparison done")

	img, err := s.renderer.Render(cmp)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	rep := &Report{Comparison: cmp, Chart: img, Caption: Caption(cmp)}

	if s.recorder != nil {
		id, err := s.recorder.SaveRun(ctx, RunFromComparison(cmp, s.now()))
		if err != nil {
			log.Warn().Err(err).Msg("report: record run failed")
		} else {
			rep.RunID = id
		}
	}
	if s.commentator != nil {
		text, err := s.commentator.Comment(ctx, cmp)
		if err != nil {
			log.Warn().Err(err).Msg("report: commentary failed")
		} else {
			rep.Commentary = text
		}
	}
	return rep, nil
}

// Caption is the one-paragraph text that goes with the chart.
func Caption(cmp *volatility.Comparison) string {
	p := cmp.Params
	var b strings.Builder
	fmt.Fprintf(&b, "%s vs %s • %dd window • lag %d", strings.ToUpper(p.VolIndex), strings.ToUpper(p.Underlying), p.RollingWindow, p.Lag)
	if first, ok := cmp.Diff.First(); ok {
		last := cmp.Diff.Obs[cmp.Diff.Len()-1].Date
		fmt.Fprintf(&b, " • %s..%s", first.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	b.WriteString("\n")
	b.WriteString(cmp.Summary.String())
	return b.String()
}

// RunFromComparison flattens a comparison into a history row.
func RunFromComparison(cmp *volatility.Comparison, at time.Time) storage.Run {
	p := cmp.Params
	r := storage.Run{
		Underlying: p.Underlying,
		VolIndex:   p.VolIndex,
		Window:     p.RollingWindow,
		Lag:        p.Lag,
		Start:      p.Start,
		Over:       cmp.Summary.Over,
		Under:      cmp.Summary.Under,
		Total:      cmp.Summary.Total,
		Rate:       cmp.Summary.Rate,
		CreatedAt:  at,
	}
	if first, ok := cmp.Diff.First(); ok {
		r.FirstDay = first
		r.LastDay = cmp.Diff.Obs[cmp.Diff.Len()-1].Date
	}
	return r
}

// FormatHistory lists runs one per line, newest first.
func FormatHistory(runs []storage.Run) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "#%d %s vs %s w%d lag%d: %.2f%% (%d/%d) %s..%s\n",
			r.ID, r.VolIndex, r.Underlying, r.Window, r.Lag, r.Rate*100, r.Over, r.Total,
			r.FirstDay.Format(time.DateOnly), r.LastDay.Format(time.DateOnly))
	}
	return strings.TrimRight(b.String(), "\n")
}
