// Package rula scores Rapid Upper Limb Assessment postures frame by frame.
//
// Scoring is a pure pipeline over one trial: bend-zone classification of
// joint angles (steps 1-4, 9-11), muscle-use and load adjustments
// (6, 7, 13, 14), and the Table A/B/C combinations (5, 8, 12, 15, final).
// Every intermediate series is kept in the TrialResult. Missing samples
// travel through as NaN.
package rula

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/rula.report/internal/motion"
)

// angleReader collects joint angles and keeps the first error.
type angleReader struct {
	t   *motion.Trial
	err error
}

func (r *angleReader) joint(name string, axis motion.Axis) []float64 {
	if r.err != nil {
		return nil
	}
	v, err := r.t.JointAngle(name, axis)
	r.err = err
	return v
}

func (r *angleReader) sum(names []string, axis motion.Axis) []float64 {
	if r.err != nil {
		return nil
	}
	v, err := r.t.SumJointAngles(names, axis)
	r.err = err
	return v
}

// armSteps holds steps 1-8 for one side, indexed step-1.
type armSteps [8]StepSeries

// Score runs steps 1-15 and the final lookup for one trial. ctx is checked
// between stages so an orchestrator can bound a trial's run time.
func Score(ctx context.Context, t *motion.Trial, p Params) (*TrialResult, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		opsf("trial %s: %v", t.TrialID, err)
		return nil, err
	}
	if err := t.Validate(); err != nil {
		opsf("trial %s: %v", t.TrialID, err)
		return nil, err
	}

	times := t.Times()
	durations := t.Durations()
	res := &TrialResult{
		TrialID:   t.TrialID,
		SubjectID: t.SubjectID,
		Condition: t.Condition,
		Frames:    t.Len(),
		Times:     times,
		Durations: durations,
		Params:    p,
	}

	arms := make(map[Side]*armSteps, len(Sides))
	for _, side := range Sides {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("trial %s: %w", t.TrialID, err)
		}
		a, err := scoreArm(t, side, p, times, durations)
		if err != nil {
			opsf("trial %s %s arm: %v", t.TrialID, side, err)
			return nil, fmt.Errorf("trial %s %s arm: %w", t.TrialID, side, err)
		}
		arms[side] = a
	}
	tracef("trial %s: arms scored in %s", t.TrialID, time.Since(started))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trial %s: %w", t.TrialID, err)
	}
	body, err := scoreBody(t, p, times, durations)
	if err != nil {
		opsf("trial %s body: %v", t.TrialID, err)
		return nil, fmt.Errorf("trial %s body: %w", t.TrialID, err)
	}

	for i := 0; i < 8; i++ {
		for _, side := range Sides {
			res.Steps = append(res.Steps, arms[side][i])
		}
	}
	worst := WorstSide(arms[Left][7].Scores, arms[Right][7].Scores)
	res.Steps = append(res.Steps, StepSeries{Step: 8, Name: WorstArmSeriesName, Scores: worst})
	res.Steps = append(res.Steps, body...)

	res.Final = FinalScore(worst, body[len(body)-1].Scores)
	res.NaNFrames = res.Frames - res.Final.Valid()

	capped := 0
	for _, s := range res.Steps {
		capped += s.Capped
	}
	diagf("trial %s: %d frames, %d without a final score, %d step values clamped", t.TrialID, res.Frames, res.NaNFrames, capped)
	tracef("trial %s: scored in %s", t.TrialID, time.Since(started))
	return res, nil
}

func scoreArm(t *motion.Trial, side Side, p Params, times, durations []float64) (*armSteps, error) {
	j := armJointsFor(side)
	r := &angleReader{t: t}
	flexion := r.joint(j.shoulder, motion.Flexion)
	abduction := r.joint(j.shoulder, motion.Abduction)
	girdle := r.joint(j.girdle, motion.Abduction)
	elbow := r.joint(j.elbow, motion.Flexion)
	pronation := r.joint(j.elbow, motion.Rotation)
	wristFlex := r.joint(j.wrist, motion.Flexion)
	deviation := r.joint(j.wrist, motion.Abduction)
	if r.err != nil {
		return nil, r.err
	}
	reach, offset, err := reachFlags(t, side, j, p)
	if err != nil {
		return nil, err
	}

	s := side.String()
	step := func(n int, scores Series) StepSeries {
		return StepSeries{Step: n, Name: SeriesName(n, s), Side: s, Scores: scores}
	}
	posture := func(n int, ps PostureScore, angle []float64, band Band) StepSeries {
		st := step(n, ps.Scores)
		st.Angle = angle
		st.Band = &band
		st.Capped = ps.Capped
		return st
	}

	var a armSteps
	a[0] = posture(1, UpperArmScore(flexion, abduction, girdle, p), flexion, UpperArmBand())
	a[1] = posture(2, LowerArmScore(elbow, reach), elbow, LowerArmBand())
	a[1].Offset = offset
	a[2] = posture(3, WristScore(wristFlex, deviation, p), wristFlex, WristBand(p.NeutralToleranceDeg))
	a[3] = posture(4, WristTwistScore(pronation), pronation, WristTwistBand())
	a[4] = step(5, ArmWristScore(a[0].Scores, a[1].Scores, a[2].Scores, a[3].Scores))
	a[5] = step(6, MuscleUseScore(a[4].Scores, times, durations, p))
	a[6] = step(7, LoadScore(a[4].Scores, p.ArmLoad))
	a[7] = step(8, ArmTotal(a[4].Scores, a[5].Scores, a[6].Scores))
	return &a, nil
}

// reachFlags computes the step 2 midline/side flag and the wrist offset.
func reachFlags(t *motion.Trial, side Side, j armJoints, p Params) (Series, Series, error) {
	landmark, err := t.Position(p.TrunkLandmark)
	if err != nil {
		return nil, nil, err
	}
	orientation, err := t.Orientation(p.TrunkLandmark)
	if err != nil {
		return nil, nil, err
	}
	hand, err := t.Position(j.hand)
	if err != nil {
		return nil, nil, err
	}
	shoulder, err := t.Position(j.upperArm)
	if err != nil {
		return nil, nil, err
	}
	wristOffset := LateralOffsets(hand, landmark, orientation, side)
	shoulderOffset := LateralOffsets(shoulder, landmark, orientation, side)
	return ReachFlags(wristOffset, shoulderOffset, p.MidlineMarginM, p.SideReachMarginM), wristOffset, nil
}

// scoreBody returns steps 9-15 in order.
func scoreBody(t *motion.Trial, p Params, times, durations []float64) ([]StepSeries, error) {
	r := &angleReader{t: t}
	neckFlex := r.sum(NeckJoints, motion.Flexion)
	neckTwist := r.sum(NeckJoints, motion.Rotation)
	neckSide := r.sum(NeckJoints, motion.Abduction)
	trunkFlex := r.sum(TrunkJoints, motion.Flexion)
	trunkTwist := r.sum(TrunkJoints, motion.Rotation)
	trunkSide := r.sum(TrunkJoints, motion.Abduction)
	if r.err != nil {
		return nil, r.err
	}

	step := func(n int, scores Series) StepSeries {
		return StepSeries{Step: n, Name: SeriesName(n, ""), Scores: scores}
	}
	posture := func(n int, ps PostureScore, angle []float64, band Band) StepSeries {
		st := step(n, ps.Scores)
		st.Angle = angle
		st.Band = &band
		st.Capped = ps.Capped
		return st
	}

	neck := posture(9, NeckScore(neckFlex, neckTwist, neckSide, p), neckFlex, NeckBand())
	trunk := posture(10, TrunkScore(trunkFlex, trunkTwist, trunkSide, p), trunkFlex, TrunkBand(p.NeutralToleranceDeg))
	legs := step(11, LegScore(sumSeries(neck.Scores, trunk.Scores), p).Scores)
	combined := step(12, NeckTrunkLegScore(neck.Scores, trunk.Scores, legs.Scores))
	muscle := step(13, MuscleUseScore(combined.Scores, times, durations, p))
	load := step(14, LoadScore(combined.Scores, p.BodyLoad))
	total := step(15, BodyTotal(combined.Scores, muscle.Scores, load.Scores))
	return []StepSeries{neck, trunk, legs, combined, muscle, load, total}, nil
}
