package summary

import (
	"errors"
	"fmt"

	"github.com/banshee-data/rula.report/internal/rula"
)

// ErrNoValidScores marks a trial without a single frame that has a final
// score.
var ErrNoValidScores = errors.New("no valid final scores")

// Status classifies how much of a trial could be scored.
type Status string

const (
	StatusScored  Status = "scored"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// StepSummary is the statistic of one named step series.
type StepSummary struct {
	Step int       `json:"step"`
	Side string    `json:"side,omitempty"`
	Name string    `json:"name"`
	Stat Statistic `json:"stat"`
}

// TrialSummary is the per-trial row of a report.
type TrialSummary struct {
	TrialID      string        `json:"trial_id"`
	SubjectID    string        `json:"subject_id,omitempty"`
	Condition    string        `json:"condition,omitempty"`
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	ValidPercent float64       `json:"valid_percent"`
	Steps        []StepSummary `json:"steps,omitempty"`
	Final        Statistic     `json:"final"`
}

// Err returns ErrNoValidScores for a failed trial, nil otherwise.
func (s *TrialSummary) Err() error {
	if s.Status != StatusFailed {
		return nil
	}
	if s.Reason == "" || s.Reason == ErrNoValidScores.Error() {
		return ErrNoValidScores
	}
	return fmt.Errorf("%w: %s", ErrNoValidScores, s.Reason)
}

// Step finds a step summary by series name.
func (s *TrialSummary) Step(name string) (StepSummary, bool) {
	for _, st := range s.Steps {
		if st.Name == name {
			return st, true
		}
	}
	return StepSummary{}, false
}

// SummarizeTrial describes every step series and the final score of a
// result. Frames are weighted by their durations in the histograms.
func SummarizeTrial(res *rula.TrialResult) *TrialSummary {
	s := &TrialSummary{
		TrialID:   res.TrialID,
		SubjectID: res.SubjectID,
		Condition: res.Condition,
		Final:     Describe(res.Final, res.Durations),
	}
	for _, step := range res.Steps {
		s.Steps = append(s.Steps, StepSummary{
			Step: step.Step,
			Side: step.Side,
			Name: step.Name,
			Stat: Describe(step.Scores, res.Durations),
		})
	}
	s.ValidPercent = 100 * s.Final.ValidFraction

	switch {
	case s.Final.Valid == 0:
		s.Status = StatusFailed
		s.Reason = ErrNoValidScores.Error()
	case s.Final.Valid < s.Final.Total:
		s.Status = StatusPartial
		s.Reason = fmt.Sprintf("%d of %d frames without a final score", s.Final.Total-s.Final.Valid, s.Final.Total)
	default:
		s.Status = StatusScored
	}
	return s
}

// FailedTrial records a trial that could not be scored at all.
func FailedTrial(trialID, subjectID, condition string, err error) *TrialSummary {
	return &TrialSummary{
		TrialID:   trialID,
		SubjectID: subjectID,
		Condition: condition,
		Status:    StatusFailed,
		Reason:    err.Error(),
		Final:     Describe(nil, nil),
	}
}
