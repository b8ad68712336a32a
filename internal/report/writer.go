package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/rula.report/internal/fsutil"
	"github.com/banshee-data/rula.report/internal/monitoring"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/go-echarts/go-echarts/v2/components"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch

	// SummaryFile is the cross-trial page written by WriteSummary.
	SummaryFile = "index.html"
)

// Writer lays out report files under one output directory:
//
//	<dir>/index.html
//	<dir>/<trial>/final.png
//	<dir>/<trial>/<series>_angle.png
//	<dir>/<trial>/chart.html
type Writer struct {
	fs         fsutil.FileSystem
	dir        string
	assetsHost string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(fs fsutil.FileSystem, dir string) *Writer {
	return &Writer{fs: fs, dir: dir, assetsHost: DefaultAssetsHost}
}

// SetAssetsHost points rendered HTML at a different echarts asset host.
func (w *Writer) SetAssetsHost(host string) { w.assetsHost = host }

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// safeName maps a trial ID onto a single path element.
func safeName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	if name == "" || name == "." || name == ".." {
		return "trial"
	}
	return name
}

// WriteTrial writes the plots and chart page of one trial and returns the
// paths written.
func (w *Writer) WriteTrial(res *rula.TrialResult, sum *summary.TrialSummary) ([]string, error) {
	if res == nil {
		return nil, fmt.Errorf("no result to plot")
	}
	dir := filepath.Join(w.dir, safeName(res.TrialID))
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report dir: %w", err)
	}

	var written []string
	p, err := FinalScorePlot(res)
	if err != nil {
		return nil, fmt.Errorf("trial %s: final score plot: %w", res.TrialID, err)
	}
	path := filepath.Join(dir, "final.png")
	if err := w.savePlot(p, path); err != nil {
		return written, err
	}
	written = append(written, path)

	for i := range res.Steps {
		s := &res.Steps[i]
		p, err := AnglePlot(res, s)
		if err != nil {
			return written, fmt.Errorf("trial %s: %s plot: %w", res.TrialID, s.Name, err)
		}
		if p == nil {
			continue
		}
		path := filepath.Join(dir, strings.TrimSuffix(s.Name, "_score")+"_angle.png")
		if err := w.savePlot(p, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path = filepath.Join(dir, "chart.html")
	if err := w.savePage(TrialPage(res, sum, w.assetsHost), path); err != nil {
		return written, err
	}
	written = append(written, path)

	monitoring.Logf("report: trial %s: wrote %d files to %s", res.TrialID, len(written), dir)
	return written, nil
}

// WriteSummary writes the cross-trial chart page and returns its path.
func (w *Writer) WriteSummary(summaries []*summary.TrialSummary) (string, error) {
	if err := w.fs.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(w.dir, SummaryFile)
	if err := w.savePage(SummaryPage(summaries, w.assetsHost), path); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Writer) savePlot(p *plot.Plot, path string) error {
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return w.create(path, func(f io.Writer) error {
		_, err := wt.WriteTo(f)
		return err
	})
}

func (w *Writer) savePage(page *components.Page, path string) error {
	return w.create(path, func(f io.Writer) error { return Render(f, page) })
}

func (w *Writer) create(path string, write func(io.Writer) error) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
