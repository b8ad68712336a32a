package rula

import (
	"fmt"
	"math"
	"sort"
)

// Band is a bend-zone table: ascending breakpoints splitting an angle
// into len(Breakpoints)+1 zones, and the RULA score of each zone.
type Band struct {
	Breakpoints []float64 `json:"breakpoints"`
	Scores      []int     `json:"scores"`
}

// Classify returns the 1-based zone of v. Zones are closed below and open
// above, so a value sitting on a breakpoint falls into the higher zone.
// NaN input gives NaN.
func Classify(v float64, breakpoints []float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	n := sort.Search(len(breakpoints), func(i int) bool { return breakpoints[i] > v })
	return float64(n + 1)
}

// Zone returns the 1-based zone of v.
func (b Band) Zone(v float64) float64 { return Classify(v, b.Breakpoints) }

// Score maps v to the score of its zone.
func (b Band) Score(v float64) float64 {
	z := b.Zone(v)
	if math.IsNaN(z) {
		return z
	}
	return float64(b.Scores[int(z)-1])
}

// ScoreSeries maps every frame.
func (b Band) ScoreSeries(values []float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		out[i] = b.Score(v)
	}
	return out
}

// Validate checks breakpoint order and score count.
func (b Band) Validate() error {
	if len(b.Scores) != len(b.Breakpoints)+1 {
		return fmt.Errorf("band has %d breakpoints but %d scores", len(b.Breakpoints), len(b.Scores))
	}
	for i := 1; i < len(b.Breakpoints); i++ {
		if !(b.Breakpoints[i] > b.Breakpoints[i-1]) {
			return fmt.Errorf("breakpoints not strictly ascending at %d: %v", i, b.Breakpoints)
		}
	}
	return nil
}

// Published RULA bend zones. Angles are in degrees, flexion positive.

// UpperArmBand: 20° extension to 20° flexion scores 1, more extension or
// 20-45° flexion 2, 45-90° 3, beyond 90° 4.
func UpperArmBand() Band {
	return Band{Breakpoints: []float64{-20, 20, 45, 90}, Scores: []int{2, 1, 2, 3, 4}}
}

// LowerArmBand: 60-100° elbow flexion scores 1, anything else 2.
func LowerArmBand() Band {
	return Band{Breakpoints: []float64{60, 100}, Scores: []int{2, 1, 2}}
}

// WristBand: neutral (within tol) 1, up to 15° either way 2, beyond 3.
func WristBand(tol float64) Band {
	return Band{Breakpoints: []float64{-15, -tol, tol, 15}, Scores: []int{3, 2, 1, 2, 3}}
}

// WristTwistBand: mid-range pronation/supination 1, near end of range 2.
func WristTwistBand() Band {
	return Band{Breakpoints: []float64{-45, 45}, Scores: []int{2, 1, 2}}
}

// NeckBand: 0-10° flexion 1, 10-20° 2, beyond 20° 3, any extension 4.
func NeckBand() Band {
	return Band{Breakpoints: []float64{0, 10, 20}, Scores: []int{4, 1, 2, 3}}
}

// TrunkBand: upright (within tol) 1, extension or flexion to 20° 2,
// 20-60° 3, beyond 60° 4.
func TrunkBand(tol float64) Band {
	return Band{Breakpoints: []float64{-tol, tol, 20, 60}, Scores: []int{2, 1, 2, 3, 4}}
}
