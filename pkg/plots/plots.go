// Package plots renders the exploratory charts of the loan dataset. The
// charts are diagnostics only; nothing downstream reads them.
package plots

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"loanrisk/pkg/data"
	"loanrisk/pkg/dataprep"
)

// ErrMissingColumn is returned when the table lacks a column a chart needs.
var ErrMissingColumn = errors.New("plots: missing column")

const (
	creditPolicy = "credit.policy"
	fico         = "fico"
	intRate      = "int.rate"
	histBins     = 30
)

var (
	blue   = color.NRGBA{R: 30, G: 80, B: 220, A: 140}
	red    = color.NRGBA{R: 220, G: 40, B: 40, A: 140}
	purple = color.NRGBA{R: 120, G: 40, B: 160, A: 160}
)

// Chart is a rendered plot and the file name it is saved under.
type Chart struct {
	File string
	Plot *plot.Plot
}

// Build creates every chart for t without writing anything.
func Build(t *data.Table) ([]Chart, error) {
	cols, err := columns(t, creditPolicy, fico, intRate, data.Target)
	if err != nil {
		return nil, err
	}
	purpose, ok := t.Column(data.Purpose)
	if !ok || purpose.Kind != data.Categorical {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, data.Purpose)
	}
	policy, score, rate, target := cols[0], cols[1], cols[2], cols[3]

	var charts []Chart
	add := func(file string, p *plot.Plot, err error) error {
		if err != nil {
			return fmt.Errorf("plots: %s: %w", file, err)
		}
		charts = append(charts, Chart{File: file, Plot: p})
		return nil
	}

	p, err := overlaidHistograms("FICO by credit.policy", "FICO", score, policy, "Credit.Policy")
	if err := add("fico_by_credit_policy.png", p, err); err != nil {
		return nil, err
	}
	p, err = overlaidHistograms("FICO by not.fully.paid", "FICO", score, target, "not.fully.paid")
	if err := add("fico_by_not_fully_paid.png", p, err); err != nil {
		return nil, err
	}
	p, err = countBars(purpose.Cat, target)
	if err := add("purpose_counts.png", p, err); err != nil {
		return nil, err
	}
	p, err = scatter("FICO vs interest rate", score, rate)
	if err := add("fico_vs_int_rate.png", p, err); err != nil {
		return nil, err
	}
	for _, v := range []float64{0, 1} {
		p, err = trendByPolicy(score, rate, policy, target, v)
		if err := add(fmt.Sprintf("int_rate_vs_fico_nfp%d.png", int(v)), p, err); err != nil {
			return nil, err
		}
	}
	return charts, nil
}

// Render builds every chart and saves it as PNG into dir, returning the
// written paths.
func Render(dir string, t *data.Table) ([]string, error) {
	charts, err := Build(t)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("plots: %w", err)
	}
	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.File)
		if err := c.Plot.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
			return nil, fmt.Errorf("plots: save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func columns(t *data.Table, names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, n := range names {
		c, ok := t.Column(n)
		if !ok || c.Kind != data.Numeric {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
		out[i] = c.Num
	}
	return out, nil
}

// overlaidHistograms draws one histogram of values per binary group value.
func overlaidHistograms(title, xLabel string, values, group []float64, groupName string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "count"
	p.Legend.Top = true

	for _, g := range []struct {
		v   float64
		col color.Color
	}{{1, blue}, {0, red}} {
		var vs plotter.Values
		for i, x := range values {
			if group[i] == g.v {
				vs = append(vs, x)
			}
		}
		if len(vs) == 0 {
			continue
		}
		h, err := plotter.NewHist(vs, histBins)
		if err != nil {
			return nil, err
		}
		h.FillColor = g.col
		h.LineStyle.Width = 0
		p.Add(h)
		p.Legend.Add(fmt.Sprintf("%s=%d", groupName, int(g.v)), h)
	}
	return p, nil
}

// countBars draws loan counts per purpose, one bar per target value.
func countBars(purpose []string, target []float64) (*plot.Plot, error) {
	cats := dataprep.Categories(purpose)
	pos := make(map[string]int, len(cats))
	for i, c := range cats {
		pos[c] = i
	}
	counts := [2]plotter.Values{make(plotter.Values, len(cats)), make(plotter.Values, len(cats))}
	for i, c := range purpose {
		counts[int(target[i])][pos[c]]++
	}

	p := plot.New()
	p.Title.Text = "Loans by purpose"
	p.Y.Label.Text = "count"
	p.Legend.Top = true

	w := vg.Points(14)
	for k, col := range []color.Color{red, blue} {
		bars, err := plotter.NewBarChart(counts[k], w)
		if err != nil {
			return nil, err
		}
		bars.Color = col
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(2*k-1) * w / 2
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("not.fully.paid=%d", k), bars)
	}
	p.NominalX(cats...)
	return p, nil
}

func scatter(title string, x, y []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fico
	p.Y.Label.Text = intRate

	s, err := plotter.NewScatter(xys(x, y))
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = purple
	s.GlyphStyle.Radius = vg.Points(1.5)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	return p, nil
}

// trendByPolicy plots interest rate against FICO for the rows whose target
// equals nfp, with a least-squares line per credit.policy value.
func trendByPolicy(score, rate, policy, target []float64, nfp float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("not.fully.paid = %d", int(nfp))
	p.X.Label.Text = fico
	p.Y.Label.Text = intRate
	p.Legend.Top = true

	for _, g := range []struct {
		v   float64
		col color.Color
	}{{1, blue}, {0, red}} {
		var xs, ys []float64
		for i := range score {
			if target[i] == nfp && policy[i] == g.v {
				xs = append(xs, score[i])
				ys = append(ys, rate[i])
			}
		}
		if len(xs) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xys(xs, ys))
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = g.col
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("credit.policy=%d", int(g.v)), s)

		// a group with one distinct FICO value has no trend to draw
		lo, hi := xs[0], xs[0]
		for _, v := range xs {
			lo, hi = min(lo, v), max(hi, v)
		}
		if lo == hi {
			continue
		}
		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
			continue
		}
		l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: alpha + beta*lo}, {X: hi, Y: alpha + beta*hi}})
		if err != nil {
			return nil, err
		}
		l.Color = g.col
		l.Width = vg.Points(2)
		p.Add(l)
	}
	return p, nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts
}
