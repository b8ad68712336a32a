package motion

import (
	"errors"
	"fmt"
)

// Axis selects one component of a joint-angle triplet. The column order
// inside each triplet is fixed: abduction, rotation, flexion.
type Axis int

const (
	Abduction Axis = iota
	Rotation
	Flexion
)

func (a Axis) String() string {
	switch a {
	case Abduction:
		return "abduction"
	case Rotation:
		return "rotation"
	case Flexion:
		return "flexion"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// XsensJoints is the default joint ordering produced by MVN exports.
var XsensJoints = []string{
	"jL5S1", "jL4L3", "jL1T12", "jT9T8", "jT1C7", "jC1Head",
	"jRightT4Shoulder", "jRightShoulder", "jRightElbow", "jRightWrist",
	"jLeftT4Shoulder", "jLeftShoulder", "jLeftElbow", "jLeftWrist",
	"jRightHip", "jRightKnee", "jRightAnkle", "jRightBallFoot",
	"jLeftHip", "jLeftKnee", "jLeftAnkle", "jLeftBallFoot",
}

// XsensSegments is the default segment ordering produced by MVN exports.
var XsensSegments = []string{
	"Pelvis", "L5", "L3", "T12", "T8", "Neck", "Head",
	"RightShoulder", "RightUpperArm", "RightForeArm", "RightHand",
	"LeftShoulder", "LeftUpperArm", "LeftForeArm", "LeftHand",
	"RightUpperLeg", "RightLowerLeg", "RightFoot", "RightToe",
	"LeftUpperLeg", "LeftLowerLeg", "LeftFoot", "LeftToe",
}

// Schema maps names to their position in a per-frame row.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema from an ordered name list. Names must be
// unique and non-empty.
func NewSchema(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, errors.New("schema has no names")
	}
	s := &Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	copy(s.names, names)
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("schema name %d is empty", i)
		}
		if _, dup := s.index[n]; dup {
			return nil, fmt.Errorf("duplicate schema name %q", n)
		}
		s.index[n] = i
	}
	return s, nil
}

// MustSchema is NewSchema for static name lists; it panics on error.
func MustSchema(names []string) *Schema {
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

// Index returns the position of name.
func (s *Schema) Index(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[name]
	return i, ok
}

// Len returns the number of names.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns a copy of the ordered names.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
