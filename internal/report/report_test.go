package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/rula.report/internal/fsutil"
	"github.com/banshee-data/rula.report/internal/rula"
	"github.com/banshee-data/rula.report/internal/summary"
	"github.com/banshee-data/rula.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(t *testing.T, id string) (*rula.TrialResult, *summary.TrialSummary) {
	t.Helper()
	res, err := rula.Score(context.Background(), testutil.WorkedExampleTrial(id, 20, 10), rula.DefaultParams())
	require.NoError(t, err)
	return res, summary.SummarizeTrial(res)
}

func TestSegments(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		values []float64
		want   []int
	}{
		{"all valid", []float64{1, 2, 3}, []int{3}},
		{"gap in middle", []float64{1, nan, 2, 3}, []int{1, 2}},
		{"leading and trailing gaps", []float64{nan, 1, 2, nan}, []int{2}},
		{"all missing", []float64{nan, nan}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := make([]float64, len(tt.values))
			for i := range times {
				times[i] = float64(i) / 10
			}
			var got []int
			for _, seg := range segments(times, tt.values) {
				got = append(got, len(seg))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"T01":         "T01",
		"subj 1/run2": "subj_1_run2",
		"..":          "trial",
		"":            "trial",
		"a.b-c_d":     "a.b-c_d",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeName(in), in)
	}
}

func TestPlots(t *testing.T) {
	res, _ := scored(t, "T01")

	p, err := FinalScorePlot(res)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "T01")

	upper := res.Get(1, "right")
	require.NotNil(t, upper)
	p, err = AnglePlot(res, upper)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Contains(t, p.Title.Text, "step 1 right")

	p, err = AnglePlot(res, res.WorstArm())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFinalScorePlot_AllMissing(t *testing.T) {
	res, _ := scored(t, "T02")
	for i := range res.Final {
		res.Final[i] = math.NaN()
	}
	_, err := FinalScorePlot(res)
	assert.NoError(t, err)
}

func TestWriter_WriteTrial(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "out")
	res, sum := scored(t, "T 01")

	written, err := w.WriteTrial(res, sum)
	require.NoError(t, err)
	// final + ten posture angles + chart page
	assert.Len(t, written, 12)
	assert.ElementsMatch(t, written, fs.Files(filepath.Join("out", "T_01")))

	png, err := fs.ReadFile(filepath.Join("out", "T_01", "final.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	assert.True(t, fs.Exists(filepath.Join("out", "T_01", "step1_right_angle.png")))
	assert.True(t, fs.Exists(filepath.Join("out", "T_01", "step10_angle.png")))

	html, err := fs.ReadFile(filepath.Join("out", "T_01", "chart.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "RULA score")
	assert.Contains(t, string(html), DefaultAssetsHost)

	_, err = w.WriteTrial(nil, sum)
	assert.Error(t, err)
}

func TestWriter_WriteSummary(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWriter(fs, "out")
	w.SetAssetsHost("/static/echarts/")

	_, a := scored(t, "T01")
	_, b := scored(t, "T02")
	failed := summary.FailedTrial("T03", "", "", errors.New("no frames"))

	path, err := w.WriteSummary([]*summary.TrialSummary{a, b, failed})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", SummaryFile), path)

	html, err := fs.ReadFile(path)
	require.NoError(t, err)
	doc := string(html)
	assert.Contains(t, doc, "/static/echarts/")
	assert.Contains(t, doc, "step1_right_score")
	assert.False(t, strings.Contains(doc, `"T03"`))
}

func TestStepBoxes(t *testing.T) {
	_, a := scored(t, "T01")
	_, b := scored(t, "T02")

	names, boxes := stepBoxes([]*summary.TrialSummary{a, b})
	require.Equal(t, len(names), len(boxes))
	assert.Equal(t, rula.FinalSeriesName, names[len(names)-1])

	last := boxes[len(boxes)-1].Value.([]float64)
	assert.Equal(t, []float64{3, 3, 3, 3, 3}, last)

	names, boxes = stepBoxes(nil)
	assert.Empty(t, names)
	assert.Empty(t, boxes)
}
