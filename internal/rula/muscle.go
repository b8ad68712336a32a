package rula

import (
	"math"
	"sort"
)

// run is a maximal stretch of frames holding the same non-NaN score.
// start and end are valid frames, end inclusive; NaN frames between them
// are dropouts that did not change the score.
type run struct {
	start, end int
	value      float64
}

// buildRuns splits a score series into runs. A run only ends when the
// next valid score differs, so a NaN gap between equal scores is bridged.
func buildRuns(scores []float64) []run {
	var runs []run
	for i, v := range scores {
		if math.IsNaN(v) {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].value == v {
			runs[n-1].end = i
			continue
		}
		runs = append(runs, run{start: i, end: i, value: v})
	}
	return runs
}

// StaticFlags marks every valid frame of a run held for longer than hold
// seconds, bridged dropouts included in the held time. times are frame
// start times and durations the frame lengths, both in seconds.
func StaticFlags(scores, times, durations []float64, hold float64) Series {
	out := nanLike(scores)
	for _, r := range buildRuns(scores) {
		held := times[r.end] - times[r.start] + durations[r.end]
		flag := 0.0
		if held > hold {
			flag = 1
		}
		for i := r.start; i <= r.end; i++ {
			if !math.IsNaN(scores[i]) {
				out[i] = flag
			}
		}
	}
	return out
}

// RepetitiveFlags marks frame i when its score was entered more than
// perMinute*window/60 times within the trailing window (t_i - window, t_i].
// Entries are run starts, so a dropout inside a held score is not a new
// entry; each score value keeps its own sorted list of
// start times, searched with two binary searches per frame.
func RepetitiveFlags(scores, times []float64, window, perMinute float64) Series {
	out := nanLike(scores)
	runs := buildRuns(scores)
	starts := make(map[float64][]float64)
	for _, r := range runs {
		starts[r.value] = append(starts[r.value], times[r.start])
	}
	limit := perMinute * window / 60

	for _, r := range runs {
		entries := starts[r.value]
		for i := r.start; i <= r.end; i++ {
			if math.IsNaN(scores[i]) {
				continue
			}
			t := times[i]
			hi := sort.Search(len(entries), func(k int) bool { return entries[k] > t })
			lo := sort.Search(len(entries), func(k int) bool { return entries[k] > t-window })
			if float64(hi-lo) > limit {
				out[i] = 1
			} else {
				out[i] = 0
			}
		}
	}
	return out
}

// MuscleUseScore is steps 6 and 13: +1 for a static posture, +1 for a
// repetitive one, over the given posture score series.
func MuscleUseScore(scores, times, durations []float64, p Params) Series {
	static := StaticFlags(scores, times, durations, p.StaticHold.Seconds())
	repetitive := RepetitiveFlags(scores, times, p.RepetitionWindow.Seconds(), p.RepetitionsPerMinute)
	return sumSeries(static, repetitive)
}

// LoadScore is steps 7 and 14: the configured force/load score on every
// frame that has a posture score.
func LoadScore(scores []float64, load int) Series {
	return constantLike(scores, float64(load))
}

func nanLike(values []float64) Series {
	out := make(Series, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
