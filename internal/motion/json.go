package motion

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/rula.report/internal/units"
)

// trialDocument is the JSON hand-off written by the ingestion side.
// Missing samples are encoded as null.
type trialDocument struct {
	TrialID      string    `json:"trial_id"`
	SubjectID    string    `json:"subject_id"`
	Condition    string    `json:"condition"`
	FrameRate    float64   `json:"frame_rate,omitempty"`
	TimestampsMs []float64 `json:"timestamps_ms,omitempty"`
	AngleUnit    string    `json:"angle_unit,omitempty"`
	Joints       []string  `json:"joints,omitempty"`
	Segments     []string  `json:"segments,omitempty"`
	JointAngles  []row     `json:"joint_angles"`
	Positions    []row     `json:"positions,omitempty"`
	Orientations []row     `json:"orientations,omitempty"`
}

type row []float64

func (r *row) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*r = out
	return nil
}

// ReadTrialJSON decodes and validates one trial document. Joint and
// segment lists default to the Xsens ordering when omitted.
func ReadTrialJSON(r io.Reader) (*Trial, error) {
	var doc trialDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse trial JSON: %w", err)
	}

	unit := doc.AngleUnit
	if unit == "" {
		unit = units.Degrees
	}
	if !units.IsValid(unit) {
		return nil, configErrorf("angle_unit", "invalid unit %q (valid: %s)", unit, units.GetValidUnitsString())
	}

	jointNames := doc.Joints
	if len(jointNames) == 0 {
		jointNames = XsensJoints
	}
	joints, err := NewSchema(jointNames)
	if err != nil {
		return nil, &ConfigError{Resource: "joints", Err: err}
	}

	t := &Trial{
		TrialID:      doc.TrialID,
		SubjectID:    doc.SubjectID,
		Condition:    doc.Condition,
		FrameRate:    doc.FrameRate,
		TimestampsMs: doc.TimestampsMs,
		Joints:       joints,
		JointAngles:  make([][]float64, len(doc.JointAngles)),
	}
	for i, r := range doc.JointAngles {
		t.JointAngles[i] = units.ConvertAngles(r, unit)
	}

	if len(doc.Positions) > 0 || len(doc.Orientations) > 0 {
		segNames := doc.Segments
		if len(segNames) == 0 {
			segNames = XsensSegments
		}
		segs, err := NewSchema(segNames)
		if err != nil {
			return nil, &ConfigError{Resource: "segments", Err: err}
		}
		t.Segments = segs
		t.Positions = make([][]float64, len(doc.Positions))
		for i, r := range doc.Positions {
			t.Positions[i] = r
		}
		t.Orientations = make([][]float64, len(doc.Orientations))
		for i, r := range doc.Orientations {
			t.Orientations[i] = r
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTrialFile reads a trial document from disk. The trial ID defaults
// to the file name without extension.
func LoadTrialFile(path string) (*Trial, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("trial file must have .json extension, got %q", ext)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial file: %w", err)
	}
	defer f.Close()

	t, err := ReadTrialJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(cleanPath), err)
	}
	if t.TrialID == "" {
		base := filepath.Base(cleanPath)
		t.TrialID = base[:len(base)-len(filepath.Ext(base))]
	}
	return t, nil
}
