// Package summary turns per-frame RULA scores into outlier-robust
// statistics: median and interquartile range, duration-weighted
// relative-frequency histograms, per-trial status and cross-trial groups.
package summary

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HistogramBins is the number of score bins. Scores above the last bin
// are counted in it.
const HistogramBins = 7

// histogramDividers centre one bin on every integer score 1-7.
var histogramDividers = []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5}

// Histogram holds the percentage of time spent at scores 1-7.
type Histogram [HistogramBins]float64

// Percentile interpolates linearly between closest ranks of an ascending
// slice: h = (n-1)·p/100. Empty input gives NaN.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	h := float64(n-1) * p / 100
	i := int(math.Floor(h))
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-float64(i))*(sorted[i+1]-sorted[i])
}

// validValues copies the non-NaN values of s together with their weights.
// A nil weights slice weights every frame equally.
func validValues(s, weights []float64) (x, w []float64) {
	for i, v := range s {
		if math.IsNaN(v) {
			continue
		}
		x = append(x, v)
		if weights != nil {
			w = append(w, weights[i])
		}
	}
	return x, w
}

// RelativeHistogram returns the weighted share of frames at each score,
// in percent. With frame durations as weights this is the share of valid
// time; at a fixed frame rate it equals the share of valid samples.
// Scores above 7 fold into bin 7 and below 1 into bin 1. NaN frames are
// skipped; with no valid frame every bin is zero.
func RelativeHistogram(series, weights []float64) Histogram {
	var h Histogram
	x, w := validValues(series, weights)
	if len(x) == 0 {
		return h
	}
	for i, v := range x {
		x[i] = math.Max(1, math.Min(HistogramBins, math.Round(v)))
	}
	stat.SortWeighted(x, w)
	counts := stat.Histogram(nil, histogramDividers, x, w)
	total := floats.Sum(counts)
	if total <= 0 {
		return h
	}
	floats.Scale(100/total, counts)
	copy(h[:], counts)
	return h
}

// Statistic summarises one score series.
type Statistic struct {
	Median        float64
	Q1            float64
	Q3            float64
	Valid         int
	Total         int
	ValidFraction float64
	Histogram     Histogram
}

// IQR is the interquartile range.
func (s Statistic) IQR() float64 { return s.Q3 - s.Q1 }

// Describe computes median, quartiles and the duration-weighted histogram
// of a series. NaN frames are excluded; with no valid frame the
// quartiles are NaN.
func Describe(series, durations []float64) Statistic {
	x, _ := validValues(series, nil)
	sort.Float64s(x)
	st := Statistic{
		Median:    Percentile(x, 50),
		Q1:        Percentile(x, 25),
		Q3:        Percentile(x, 75),
		Valid:     len(x),
		Total:     len(series),
		Histogram: RelativeHistogram(series, durations),
	}
	if st.Total > 0 {
		st.ValidFraction = float64(st.Valid) / float64(st.Total)
	}
	return st
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromNullable(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

type statisticJSON struct {
	Median        *float64  `json:"median"`
	Q1            *float64  `json:"q1"`
	Q3            *float64  `json:"q3"`
	Valid         int       `json:"valid"`
	Total         int       `json:"total"`
	ValidFraction float64   `json:"valid_fraction"`
	Histogram     Histogram `json:"histogram"`
}

// MarshalJSON writes undefined quartiles as null.
func (s Statistic) MarshalJSON() ([]byte, error) {
	return json.Marshal(statisticJSON{
		Median:        nullable(s.Median),
		Q1:            nullable(s.Q1),
		Q3:            nullable(s.Q3),
		Valid:         s.Valid,
		Total:         s.Total,
		ValidFraction: s.ValidFraction,
		Histogram:     s.Histogram,
	})
}

// UnmarshalJSON reads null quartiles back as NaN.
func (s *Statistic) UnmarshalJSON(b []byte) error {
	var raw statisticJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Statistic{
		Median:        fromNullable(raw.Median),
		Q1:            fromNullable(raw.Q1),
		Q3:            fromNullable(raw.Q3),
		Valid:         raw.Valid,
		Total:         raw.Total,
		ValidFraction: raw.ValidFraction,
		Histogram:     raw.Histogram,
	}
	return nil
}
