package finance

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/vicanso/go-charts/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"volbot/internal/volatility"
)

const (
	themeLevels = "volbot-levels"
	themeSpread = "volbot-spread"
)

var registerThemes sync.Once

func ensureThemes() {
	registerThemes.Do(func() {
		base := charts.ThemeOption{
			AxisStrokeColor:    drawing.Color{R: 110, G: 112, B: 121, A: 255},
			AxisSplitLineColor: drawing.Color{R: 224, G: 230, B: 242, A: 255},
			BackgroundColor:    drawing.ColorWhite,
			TextColor:          drawing.Color{R: 70, G: 70, B: 70, A: 255},
		}
		levels := base
		levels.SeriesColors = []drawing.Color{
			{R: 31, G: 119, B: 180, A: 255}, // implied
			{R: 255, G: 127, B: 14, A: 255}, // actual
		}
		charts.AddTheme(themeLevels, levels)

		spread := base
		// filled in order: positive part, zero baseline down, then the
		// negative part masked back to the background
		spread.SeriesColors = []drawing.Color{
			{R: 0, G: 200, B: 0, A: 255}, // overestimated
			{R: 230, G: 0, B: 0, A: 255}, // underestimated
			drawing.ColorWhite,
		}
		charts.AddTheme(themeSpread, spread)
	})
}

// ChartRenderer draws a comparison as two stacked panels: implied vs shifted
// actual volatility on top, their difference split by sign below.
type ChartRenderer struct {
	Width       int
	PanelHeight int
	cache       *chartCache
}

func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{Width: 1200, PanelHeight: 500, cache: newChartCache(chartCacheTTL)}
}

func cacheKey(cmp *volatility.Comparison) string {
	first, _ := cmp.Diff.First()
	last := first
	if n := cmp.Diff.Len(); n > 0 {
		last = cmp.Diff.Obs[n-1].Date
	}
	p := cmp.Params
	return strings.Join([]string{
		strings.ToUpper(p.Underlying), strings.ToUpper(p.VolIndex),
		fmt.Sprint(p.RollingWindow), fmt.Sprint(p.Lag),
		first.Format(time.DateOnly), last.Format(time.DateOnly), fmt.Sprint(cmp.Summary.Total),
	}, "|")
}

// Render implements the PNG rendering of a comparison.
func (r *ChartRenderer) Render(cmp *volatility.Comparison) ([]byte, error) {
	if cmp == nil || cmp.Diff.Len() == 0 {
		return nil, errors.New("no overlapping data to plot")
	}
	key := cacheKey(cmp)
	if img, ok := r.cache.cacheGet(key); ok {
		return img, nil
	}
	ensureThemes()

	n := cmp.Diff.Len()
	labels := make([]string, n)
	implied := make([]float64, n)
	actual := make([]float64, n)
	over := make([]float64, n)
	// under holds min(diff, 0); filling it with the background leaves red
	// only between the difference and zero.
	under := make([]float64, n)
	zero := make([]float64, n)
	for i, o := range cmp.Diff.Obs {
		labels[i] = o.Date.Format(time.DateOnly)
		iv, _ := cmp.Implied.At(o.Date)
		rv, _ := cmp.Actual.At(o.Date)
		implied[i] = iv.Value * 100
		actual[i] = rv.Value * 100
		if o.Value > 0 {
			over[i] = o.Value * 100
		} else {
			under[i] = o.Value * 100
		}
	}
	split := 10
	if n < 20 {
		split = max(n/2, 1)
	}

	p := cmp.Params
	top, err := r.panel(
		[][]float64{implied, actual},
		[]string{"Implied Volatility (%)", "Actual Volatility (%)"},
		nil,
		fmt.Sprintf("Implied Volatility vs Actual Volatility (%d business days)", p.RollingWindow),
		fmt.Sprintf("%s vs %s • lag %d", strings.ToUpper(p.VolIndex), strings.ToUpper(p.Underlying), p.Lag),
		labels, split, themeLevels, false,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render levels panel: %w", err)
	}
	bottom, err := r.panel(
		[][]float64{over, zero, under},
		[]string{"Overestimated (%)", "Underestimated (%)", "Below difference"},
		[]string{"Overestimated (%)", "Underestimated (%)"},
		cmp.Summary.String(),
		"Implied minus Actual (Green: overestimated, Red: underestimated)",
		labels, split, themeSpread, true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render difference panel: %w", err)
	}
	img, err := stackPNG(top, bottom)
	if err != nil {
		return nil, fmt.Errorf("failed to compose chart: %w", err)
	}
	r.cache.cacheSet(key, img)
	return img, nil
}

// panel renders one line chart. legend defaults to names; fill paints every
// series opaquely down to the axis floor in series order.
func (r *ChartRenderer) panel(values [][]float64, names, legend []string, title, subtitle string, labels []string, split int, theme string, fill bool) ([]byte, error) {
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	if legend == nil {
		legend = names
	}
	opt := charts.ChartOption{
		SeriesList: seriesList,
		Width:      r.Width,
		Height:     r.PanelHeight,
	}
	if fill {
		opt.FillArea = true
		opt.Opacity = 255
		opt.SymbolShow = charts.FalseFlag()
	}
	painter, err := charts.Render(opt,
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: legend, Left: charts.PositionRight}),
		charts.ThemeOptionFunc(theme),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// stackPNG places the panels one above the other on a single canvas.
func stackPNG(panels ...[]byte) ([]byte, error) {
	imgs := make([]image.Image, 0, len(panels))
	width, height := 0, 0
	for _, b := range panels {
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
		width = max(width, img.Bounds().Dx())
		height += img.Bounds().Dy()
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	y := 0
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
		y += b.Dy()
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
