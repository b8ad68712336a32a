package rula

import "fmt"

// StepSeries is the per-frame output of one RULA step for one side or
// for the whole body.
type StepSeries struct {
	Step   int    `json:"step"`
	Name   string `json:"name"`
	Side   string `json:"side,omitempty"`
	Scores Series `json:"scores"`

	// Posture steps keep the angle they were classified from and the bend
	// zones used, so plots can draw reference bands.
	Angle Series `json:"angle,omitempty"`
	Band  *Band  `json:"band,omitempty"`
	// Offset is the signed lateral wrist offset (metres) behind step 2.
	Offset Series `json:"offset,omitempty"`
	Capped int    `json:"capped,omitempty"`
}

// TrialResult is the full scoring record of one trial. It is not modified
// after Score returns.
type TrialResult struct {
	TrialID   string    `json:"trial_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	Condition string    `json:"condition,omitempty"`
	Frames    int       `json:"frames"`
	Times     []float64 `json:"times"`
	Durations []float64 `json:"durations"`
	Params    Params    `json:"params"`

	Steps []StepSeries `json:"steps"`
	Final Series       `json:"final"`

	// NaNFrames counts frames without a final score.
	NaNFrames int `json:"nan_frames"`
}

// SeriesName builds the canonical series name, e.g. step1_right_score.
func SeriesName(step int, side string) string {
	if side == "" {
		return fmt.Sprintf("step%d_score", step)
	}
	return fmt.Sprintf("step%d_%s_score", step, side)
}

// WorstArmSeriesName names the max(left, right) step 8 series.
const WorstArmSeriesName = "step8_worst_score"

// FinalSeriesName names the grand score series in flat listings.
const FinalSeriesName = "final_score"

// Lookup finds a series by name.
func (r *TrialResult) Lookup(name string) (*StepSeries, bool) {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i], true
		}
	}
	return nil, false
}

// Get finds a step for a side ("" for whole-body steps).
func (r *TrialResult) Get(step int, side string) *StepSeries {
	s, _ := r.Lookup(SeriesName(step, side))
	return s
}

// WorstArm returns the series fed into Table C as the arm/wrist score.
func (r *TrialResult) WorstArm() *StepSeries {
	s, _ := r.Lookup(WorstArmSeriesName)
	return s
}

// ValidFraction is the share of frames with a final score.
func (r *TrialResult) ValidFraction() float64 {
	if r.Frames == 0 {
		return 0
	}
	return float64(r.Frames-r.NaNFrames) / float64(r.Frames)
}
