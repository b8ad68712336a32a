package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/banshee-data/rula.report/internal/rula"
)

// DefaultConfigPath is the path to the canonical scoring defaults file.
const DefaultConfigPath = "config/scoring.defaults.json"

// ScoringConfig is the deployment configuration of a scoring run. Every
// field is optional; the Get* methods fall back to rula.DefaultParams.
type ScoringConfig struct {
	// Per-deployment posture context
	LegsSupported *bool `json:"legs_supported,omitempty"`
	ArmSupported  *bool `json:"arm_supported,omitempty"`
	ArmLoad       *int  `json:"arm_load,omitempty"`
	BodyLoad      *int  `json:"body_load,omitempty"`

	// Adjustment thresholds, degrees
	UpperArmAbductionDeg *float64 `json:"upper_arm_abduction_deg,omitempty"`
	ShoulderRaiseDeg     *float64 `json:"shoulder_raise_deg,omitempty"`
	WristDeviationDeg    *float64 `json:"wrist_deviation_deg,omitempty"`
	NeutralToleranceDeg  *float64 `json:"neutral_tolerance_deg,omitempty"`
	NeckTwistDeg         *float64 `json:"neck_twist_deg,omitempty"`
	NeckSideBendDeg      *float64 `json:"neck_side_bend_deg,omitempty"`
	TrunkTwistDeg        *float64 `json:"trunk_twist_deg,omitempty"`
	TrunkSideBendDeg     *float64 `json:"trunk_side_bend_deg,omitempty"`

	// Reach detection
	TrunkLandmark    *string  `json:"trunk_landmark,omitempty"`
	MidlineMarginM   *float64 `json:"midline_margin_m,omitempty"`
	SideReachMarginM *float64 `json:"side_reach_margin_m,omitempty"`

	// Muscle use
	StaticHold           *string  `json:"static_hold,omitempty"`       // duration string like "60s"
	RepetitionWindow     *string  `json:"repetition_window,omitempty"` // duration string like "60s"
	RepetitionsPerMinute *float64 `json:"repetitions_per_minute,omitempty"`

	// Batch orchestration
	Workers      *int    `json:"workers,omitempty"`
	TrialTimeout *string `json:"trial_timeout,omitempty"` // duration string like "2m"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyScoringConfig returns a ScoringConfig with all fields set to nil.
func EmptyScoringConfig() *ScoringConfig {
	return &ScoringConfig{}
}

// LoadScoringConfig loads a ScoringConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Omitted fields
// keep their defaults, so partial configs are safe.
func LoadScoringConfig(path string) (*ScoringConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyScoringConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical scoring defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ScoringConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadScoringConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that durations parse and that the resulting scoring
// parameters are usable.
func (c *ScoringConfig) Validate() error {
	for name, v := range map[string]*string{
		"static_hold":       c.StaticHold,
		"repetition_window": c.RepetitionWindow,
		"trial_timeout":     c.TrialTimeout,
	} {
		if v == nil || *v == "" {
			continue
		}
		if _, err := time.ParseDuration(*v); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	return c.Params().Validate()
}

// Params converts the configuration into scoring parameters.
func (c *ScoringConfig) Params() rula.Params {
	return rula.Params{
		LegsSupported:        c.GetLegsSupported(),
		ArmSupported:         c.GetArmSupported(),
		ArmLoad:              c.GetArmLoad(),
		BodyLoad:             c.GetBodyLoad(),
		UpperArmAbductionDeg: floatOr(c.UpperArmAbductionDeg, defaults.UpperArmAbductionDeg),
		ShoulderRaiseDeg:     floatOr(c.ShoulderRaiseDeg, defaults.ShoulderRaiseDeg),
		WristDeviationDeg:    floatOr(c.WristDeviationDeg, defaults.WristDeviationDeg),
		NeutralToleranceDeg:  floatOr(c.NeutralToleranceDeg, defaults.NeutralToleranceDeg),
		NeckTwistDeg:         floatOr(c.NeckTwistDeg, defaults.NeckTwistDeg),
		NeckSideBendDeg:      floatOr(c.NeckSideBendDeg, defaults.NeckSideBendDeg),
		TrunkTwistDeg:        floatOr(c.TrunkTwistDeg, defaults.TrunkTwistDeg),
		TrunkSideBendDeg:     floatOr(c.TrunkSideBendDeg, defaults.TrunkSideBendDeg),
		TrunkLandmark:        c.GetTrunkLandmark(),
		MidlineMarginM:       floatOr(c.MidlineMarginM, defaults.MidlineMarginM),
		SideReachMarginM:     floatOr(c.SideReachMarginM, defaults.SideReachMarginM),
		StaticHold:           c.GetStaticHold(),
		RepetitionWindow:     c.GetRepetitionWindow(),
		RepetitionsPerMinute: floatOr(c.RepetitionsPerMinute, defaults.RepetitionsPerMinute),
	}
}

var defaults = rula.DefaultParams()

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetLegsSupported returns the legs_supported value or the default.
func (c *ScoringConfig) GetLegsSupported() bool {
	if c.LegsSupported == nil {
		return defaults.LegsSupported
	}
	return *c.LegsSupported
}

// GetArmSupported returns the arm_supported value or the default.
func (c *ScoringConfig) GetArmSupported() bool {
	if c.ArmSupported == nil {
		return defaults.ArmSupported
	}
	return *c.ArmSupported
}

// GetArmLoad returns the arm_load value or the default.
func (c *ScoringConfig) GetArmLoad() int {
	if c.ArmLoad == nil {
		return defaults.ArmLoad
	}
	return *c.ArmLoad
}

// GetBodyLoad returns the body_load value or the default.
func (c *ScoringConfig) GetBodyLoad() int {
	if c.BodyLoad == nil {
		return defaults.BodyLoad
	}
	return *c.BodyLoad
}

// GetTrunkLandmark returns the trunk_landmark value or the default.
func (c *ScoringConfig) GetTrunkLandmark() string {
	if c.TrunkLandmark == nil || *c.TrunkLandmark == "" {
		return defaults.TrunkLandmark
	}
	return *c.TrunkLandmark
}

// GetStaticHold parses and returns the StaticHold as a time.Duration.
func (c *ScoringConfig) GetStaticHold() time.Duration {
	return durationOr(c.StaticHold, defaults.StaticHold)
}

// GetRepetitionWindow parses and returns the RepetitionWindow as a time.Duration.
func (c *ScoringConfig) GetRepetitionWindow() time.Duration {
	return durationOr(c.RepetitionWindow, defaults.RepetitionWindow)
}

// GetWorkers returns the batch worker count, defaulting to the CPU count.
func (c *ScoringConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetTrialTimeout returns the per-trial scoring deadline.
func (c *ScoringConfig) GetTrialTimeout() time.Duration {
	return durationOr(c.TrialTimeout, 2*time.Minute)
}
