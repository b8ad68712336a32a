// Package report renders scoring results as PNG plots and HTML charts.
package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/banshee-data/rula.report/internal/rula"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var (
	referenceColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	referenceDashes = []vg.Length{vg.Points(4), vg.Points(3)}
)

// segments splits a series at NaN frames so each run of valid values can
// be drawn as its own line.
func segments(times, values []float64) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for i, v := range values {
		if i >= len(times) || math.IsNaN(v) || math.IsNaN(times[i]) || math.IsInf(v, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: times[i], Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// addSeries draws every valid segment of values in one colour, with a
// single legend entry.
func addSeries(p *plot.Plot, label string, c color.Color, times, values []float64) error {
	for i, pts := range segments(times, values) {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = c
		line.Width = vg.Points(1)
		p.Add(line)
		if i == 0 {
			p.Legend.Add(label, line)
		}
	}
	return nil
}

// addReference draws a dashed horizontal line at y across the trial.
func addReference(p *plot.Plot, times []float64, y float64) error {
	if len(times) == 0 {
		return nil
	}
	line, err := plotter.NewLine(plotter.XYs{
		{X: times[0], Y: y},
		{X: times[len(times)-1], Y: y},
	})
	if err != nil {
		return err
	}
	line.Color = referenceColor
	line.Dashes = referenceDashes
	line.Width = vg.Points(0.5)
	p.Add(line)
	return nil
}

func newTimePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p
}

// FinalScorePlot plots the final score and the worst-arm and body scores
// it was looked up from.
func FinalScorePlot(res *rula.TrialResult) (*plot.Plot, error) {
	p := newTimePlot(fmt.Sprintf("Trial %s - RULA score", res.TrialID), "Score")
	p.Y.Min = 0
	p.Y.Max = 7.5

	if worst := res.WorstArm(); worst != nil {
		if err := addSeries(p, "arm/wrist (step 8)", plotutil.Color(1), res.Times, worst.Scores); err != nil {
			return nil, err
		}
	}
	if body := res.Get(15, ""); body != nil {
		if err := addSeries(p, "neck/trunk/legs (step 15)", plotutil.Color(2), res.Times, body.Scores); err != nil {
			return nil, err
		}
	}
	if err := addSeries(p, "final", plotutil.Color(0), res.Times, res.Final); err != nil {
		return nil, err
	}
	for _, level := range []float64{3, 5, 7} {
		if err := addReference(p, res.Times, level); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AnglePlot plots the angle a posture step was classified from, with a
// reference line at every bend-zone breakpoint. It returns nil when the
// step carries no angle.
func AnglePlot(res *rula.TrialResult, s *rula.StepSeries) (*plot.Plot, error) {
	if s == nil || s.Angle == nil {
		return nil, nil
	}
	title := fmt.Sprintf("Trial %s - step %d", res.TrialID, s.Step)
	if s.Side != "" {
		title += " " + s.Side
	}
	p := newTimePlot(title, "Angle (deg)")

	if s.Band != nil {
		for _, bp := range s.Band.Breakpoints {
			if err := addReference(p, res.Times, bp); err != nil {
				return nil, err
			}
		}
	}
	if err := addSeries(p, s.Name, plotutil.Color(0), res.Times, s.Angle); err != nil {
		return nil, err
	}
	return p, nil
}
