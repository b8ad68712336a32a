package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultAssetsHost serves the echarts JavaScript for rendered pages.
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// missing is how echarts marks a gap in a line series.
const missing = "-"

var scoreLabels = func() []string {
	out := make([]string, summary.HistogramBins)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}()

func histogramBars(h summary.Histogram) []opts.BarData {
	out := make([]opts.BarData, len(h))
	for i, v := range h {
		out[i] = opts.BarData{Value: math.Round(v*10) / 10}
	}
	return out
}

// TrialPage builds the chart page for one trial: the final score over
// time and the share of time spent at each score.
func TrialPage(res *rula.TrialResult, sum *summary.TrialSummary, assetsHost string) *components.Page {
	page := components.NewPage()
	page.SetAssetsHost(assetsHost)

	if res != nil {
		x := make([]string, len(res.Times))
		for i, t := range res.Times {
			x[i] = strconv.FormatFloat(t, 'f', 2, 64)
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{PageTitle: "RULA trial " + res.TrialID, Width: "100%", Height: "420px", AssetsHost: assetsHost}),
			charts.WithTitleOpts(opts.Title{Title: "RULA score", Subtitle: fmt.Sprintf("trial=%s frames=%d missing=%d", res.TrialID, res.Frames, res.NaNFrames)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
			charts.WithYAxisOpts(opts.YAxis{Name: "Score", Min: 0, Max: 7}),
		)
		line.SetXAxis(x)
		line.AddSeries("final", lineData(res.Final))
		if worst := res.WorstArm(); worst != nil {
			line.AddSeries("arm/wrist", lineData(worst.Scores))
		}
		if body := res.Get(15, ""); body != nil {
			line.AddSeries("neck/trunk/legs", lineData(body.Scores))
		}
		page.AddCharts(line)
	}

	if sum != nil {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: assetsHost}),
			charts.WithTitleOpts(opts.Title{Title: "Time at each final score", Subtitle: fmt.Sprintf("status=%s valid=%.1f%%", sum.Status, sum.ValidPercent)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: "% of time"}),
		)
		bar.SetXAxis(scoreLabels).
			AddSeries(sum.TrialID, histogramBars(sum.Final.Histogram),
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)
		page.AddCharts(bar)
	}
	return page
}

func lineData(s []float64) []opts.LineData {
	out := make([]opts.LineData, len(s))
	for i, v := range s {
		if math.IsNaN(v) {
			out[i] = opts.LineData{Value: missing}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}

// SummaryPage builds the cross-trial page: final score histograms per
// trial and a box plot of every step's trial medians.
func SummaryPage(summaries []*summary.TrialSummary, assetsHost string) *components.Page {
	page := components.NewPage()
	page.SetAssetsHost(assetsHost)

	scored := make([]*summary.TrialSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Status != summary.StatusFailed {
			scored = append(scored, s)
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "RULA summary", Width: "100%", Height: "480px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Final score distribution", Subtitle: fmt.Sprintf("trials=%d failed=%d", len(scored), len(summaries)-len(scored))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "% of time"}),
	)
	bar.SetXAxis(scoreLabels)
	for _, s := range scored {
		bar.AddSeries(s.TrialID, histogramBars(s.Final.Histogram))
	}
	page.AddCharts(bar)

	names, boxes := stepBoxes(scored)
	box := charts.NewBoxPlot()
	box.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: assetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Step medians across trials"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Score", Min: 0}),
	)
	box.SetXAxis(names).AddSeries("median", boxes)
	page.AddCharts(box)
	return page
}

// stepBoxes collects, per step series, the five-number summary
// (min, Q1, median, Q3, max) of the trial medians. Steps without any
// valid median are left out.
func stepBoxes(summaries []*summary.TrialSummary) ([]string, []opts.BoxPlotData) {
	order := summary.StepNames(summaries)
	medians := make(map[string][]float64, len(order))
	for _, s := range summaries {
		for _, st := range s.Steps {
			if !math.IsNaN(st.Stat.Median) {
				medians[st.Name] = append(medians[st.Name], st.Stat.Median)
			}
		}
	}
	if fin := finalMedians(summaries); len(fin) > 0 {
		order = append(order, rula.FinalSeriesName)
		medians[rula.FinalSeriesName] = fin
	}

	var (
		names []string
		boxes []opts.BoxPlotData
	)
	for _, name := range order {
		v := medians[name]
		if len(v) == 0 {
			continue
		}
		sort.Float64s(v)
		names = append(names, name)
		boxes = append(boxes, opts.BoxPlotData{Value: []float64{
			v[0],
			summary.Percentile(v, 25),
			summary.Percentile(v, 50),
			summary.Percentile(v, 75),
			v[len(v)-1],
		}})
	}
	return names, boxes
}

func finalMedians(summaries []*summary.TrialSummary) []float64 {
	var out []float64
	for _, s := range summaries {
		if !math.IsNaN(s.Final.Median) {
			out = append(out, s.Final.Median)
		}
	}
	return out
}

// Render writes a page as a standalone HTML document.
func Render(w io.Writer, page *components.Page) error {
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart page: %w", err)
	}
	return nil
}
