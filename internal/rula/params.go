package rula

import (
	"fmt"
	"time"

	"github.com/banshee-data/rula.report/internal/motion"
)

// ConfigError is the shared configuration error type.
type ConfigError = motion.ConfigError

// ErrConfiguration is matched by every ConfigError.
var ErrConfiguration = motion.ErrConfiguration

// Side selects the left or right arm.
type Side int

const (
	Right Side = iota
	Left
)

// Sides lists both arms in scoring order.
var Sides = []Side{Right, Left}

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// prefix is the Xsens naming prefix for the side.
func (s Side) prefix() string {
	if s == Left {
		return "Left"
	}
	return "Right"
}

// Params carries every deployment-specific choice the scoring pipeline
// needs. Nothing is read from package state.
type Params struct {
	// Step 11: legs and feet supported and balanced.
	LegsSupported bool `json:"legs_supported"`
	// Step 1: arm supported or person leaning (-1).
	ArmSupported bool `json:"arm_supported"`
	// Steps 7 and 14: force/load score, 0-3.
	ArmLoad  int `json:"arm_load"`
	BodyLoad int `json:"body_load"`

	UpperArmAbductionDeg float64 `json:"upper_arm_abduction_deg"`
	ShoulderRaiseDeg     float64 `json:"shoulder_raise_deg"`
	WristDeviationDeg    float64 `json:"wrist_deviation_deg"`
	NeutralToleranceDeg  float64 `json:"neutral_tolerance_deg"`
	NeckTwistDeg         float64 `json:"neck_twist_deg"`
	NeckSideBendDeg      float64 `json:"neck_side_bend_deg"`
	TrunkTwistDeg        float64 `json:"trunk_twist_deg"`
	TrunkSideBendDeg     float64 `json:"trunk_side_bend_deg"`

	// Step 2 working-across-midline / out-to-the-side flag.
	TrunkLandmark    string  `json:"trunk_landmark"`
	MidlineMarginM   float64 `json:"midline_margin_m"`
	SideReachMarginM float64 `json:"side_reach_margin_m"`

	// Steps 6 and 13.
	StaticHold           time.Duration `json:"static_hold"`
	RepetitionWindow     time.Duration `json:"repetition_window"`
	RepetitionsPerMinute float64       `json:"repetitions_per_minute"`
}

// DefaultParams returns the settings used when no configuration is given.
func DefaultParams() Params {
	return Params{
		LegsSupported:        true,
		UpperArmAbductionDeg: 20,
		ShoulderRaiseDeg:     10,
		WristDeviationDeg:    10,
		NeutralToleranceDeg:  5,
		NeckTwistDeg:         10,
		NeckSideBendDeg:      10,
		TrunkTwistDeg:        10,
		TrunkSideBendDeg:     10,
		TrunkLandmark:        "Pelvis",
		MidlineMarginM:       0,
		SideReachMarginM:     0.15,
		StaticHold:           time.Minute,
		RepetitionWindow:     time.Minute,
		RepetitionsPerMinute: 4,
	}
}

// LegScore is the constant step 11 score.
func (p Params) LegScore() float64 {
	if p.LegsSupported {
		return 1
	}
	return 2
}

// Validate rejects settings the pipeline cannot honour.
func (p Params) Validate() error {
	bad := func(field, format string, args ...interface{}) error {
		return &ConfigError{Resource: "params." + field, Err: fmt.Errorf(format, args...)}
	}
	if p.ArmLoad < 0 || p.ArmLoad > 3 {
		return bad("arm_load", "must be 0-3, got %d", p.ArmLoad)
	}
	if p.BodyLoad < 0 || p.BodyLoad > 3 {
		return bad("body_load", "must be 0-3, got %d", p.BodyLoad)
	}
	if !(p.NeutralToleranceDeg > 0 && p.NeutralToleranceDeg < 15) {
		return bad("neutral_tolerance_deg", "must be between 0 and 15, got %g", p.NeutralToleranceDeg)
	}
	for name, v := range map[string]float64{
		"upper_arm_abduction_deg": p.UpperArmAbductionDeg,
		"shoulder_raise_deg":      p.ShoulderRaiseDeg,
		"wrist_deviation_deg":     p.WristDeviationDeg,
		"neck_twist_deg":          p.NeckTwistDeg,
		"neck_side_bend_deg":      p.NeckSideBendDeg,
		"trunk_twist_deg":         p.TrunkTwistDeg,
		"trunk_side_bend_deg":     p.TrunkSideBendDeg,
		"midline_margin_m":        p.MidlineMarginM,
		"side_reach_margin_m":     p.SideReachMarginM,
	} {
		if v < 0 {
			return bad(name, "must be non-negative, got %g", v)
		}
	}
	if p.TrunkLandmark == "" {
		return bad("trunk_landmark", "must name a segment")
	}
	if p.StaticHold <= 0 {
		return bad("static_hold", "must be positive, got %s", p.StaticHold)
	}
	if p.RepetitionWindow <= 0 {
		return bad("repetition_window", "must be positive, got %s", p.RepetitionWindow)
	}
	if p.RepetitionsPerMinute <= 0 {
		return bad("repetitions_per_minute", "must be positive, got %g", p.RepetitionsPerMinute)
	}
	return nil
}
