// Package testutil provides shared test utilities and fixtures.
//
// TrialBuilder produces synthetic Xsens-shaped trials with a known posture
// so scoring, summaries and storage can be tested without capture files.
package testutil

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/rula.report/internal/motion"
	"gonum.org/v1/gonum/spatial/r3"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// NeutralPositions places the segments used for reach detection in a
// relaxed standing pose: pelvis at the origin facing +x, hands hanging
// just outside the shoulders.
var NeutralPositions = map[string]r3.Vec{
	"Pelvis":        {X: 0, Y: 0, Z: 1.0},
	"RightUpperArm": {X: 0, Y: -0.2, Z: 1.4},
	"RightHand":     {X: 0.3, Y: -0.25, Z: 1.0},
	"LeftUpperArm":  {X: 0, Y: 0.2, Z: 1.4},
	"LeftHand":      {X: 0.3, Y: 0.25, Z: 1.0},
}

// TrialBuilder assembles a motion.Trial frame by frame. All joint angles
// start at zero and all orientations at identity. Unknown names panic.
type TrialBuilder struct {
	trial *motion.Trial
}

// NewTrial starts a trial of n frames sampled at fps.
func NewTrial(id string, n int, fps float64) *TrialBuilder {
	joints := motion.MustSchema(motion.XsensJoints)
	segments := motion.MustSchema(motion.XsensSegments)
	t := &motion.Trial{
		TrialID:      id,
		FrameRate:    fps,
		Joints:       joints,
		Segments:     segments,
		JointAngles:  make([][]float64, n),
		Positions:    make([][]float64, n),
		Orientations: make([][]float64, n),
	}
	for i := 0; i < n; i++ {
		t.JointAngles[i] = make([]float64, 3*joints.Len())
		t.Positions[i] = make([]float64, 3*segments.Len())
		t.Orientations[i] = make([]float64, 4*segments.Len())
		for s := 0; s < segments.Len(); s++ {
			t.Orientations[i][4*s] = 1
		}
	}
	b := &TrialBuilder{trial: t}
	for name, v := range NeutralPositions {
		b.Position(name, v)
	}
	return b
}

// Subject sets the grouping keys.
func (b *TrialBuilder) Subject(subject, condition string) *TrialBuilder {
	b.trial.SubjectID = subject
	b.trial.Condition = condition
	return b
}

// Timestamps replaces the frame rate with explicit timestamps.
func (b *TrialBuilder) Timestamps(ms []float64) *TrialBuilder {
	b.trial.TimestampsMs = ms
	return b
}

// Joint sets one axis of a joint on every frame.
func (b *TrialBuilder) Joint(name string, axis motion.Axis, deg float64) *TrialBuilder {
	return b.JointFrames(name, axis, 0, b.trial.Len(), deg)
}

// JointFrames sets one axis of a joint on frames [from, to).
func (b *TrialBuilder) JointFrames(name string, axis motion.Axis, from, to int, deg float64) *TrialBuilder {
	idx := mustIndex(b.trial.Joints, name)
	for i := from; i < to && i < b.trial.Len(); i++ {
		b.trial.JointAngles[i][3*idx+int(axis)] = deg
	}
	return b
}

// JointFunc sets one axis of a joint from a per-frame function.
func (b *TrialBuilder) JointFunc(name string, axis motion.Axis, f func(frame int) float64) *TrialBuilder {
	idx := mustIndex(b.trial.Joints, name)
	for i := range b.trial.JointAngles {
		b.trial.JointAngles[i][3*idx+int(axis)] = f(i)
	}
	return b
}

// Position sets a segment origin on every frame.
func (b *TrialBuilder) Position(segment string, v r3.Vec) *TrialBuilder {
	idx := mustIndex(b.trial.Segments, segment)
	for _, row := range b.trial.Positions {
		row[3*idx], row[3*idx+1], row[3*idx+2] = v.X, v.Y, v.Z
	}
	return b
}

// Heading turns the whole body by yaw radians about the vertical axis:
// every position is rotated about the origin and every orientation gets
// the same yaw.
func (b *TrialBuilder) Heading(yaw float64) *TrialBuilder {
	rot := r3.NewRotation(yaw, r3.Vec{Z: 1})
	c, s := math.Cos(yaw/2), math.Sin(yaw/2)
	for i := range b.trial.Positions {
		pos := b.trial.Positions[i]
		for k := 0; k+2 < len(pos); k += 3 {
			v := rot.Rotate(r3.Vec{X: pos[k], Y: pos[k+1], Z: pos[k+2]})
			pos[k], pos[k+1], pos[k+2] = v.X, v.Y, v.Z
		}
		q := b.trial.Orientations[i]
		for k := 0; k+3 < len(q); k += 4 {
			q[k], q[k+1], q[k+2], q[k+3] = c, 0, 0, s
		}
	}
	return b
}

// Build returns the trial. The builder must not be used afterwards.
func (b *TrialBuilder) Build() *motion.Trial { return b.trial }

func mustIndex(s *motion.Schema, name string) int {
	idx, ok := s.Index(name)
	if !ok {
		panic(fmt.Sprintf("testutil: unknown name %q", name))
	}
	return idx
}

// WorkedExampleTrial is the reference posture used across packages: right
// upper arm flexed 30°, elbow at 80° with the hand across the midline,
// neck flexed 15°, trunk upright, legs supported. It scores 3 on every
// frame with default parameters.
func WorkedExampleTrial(id string, n int, fps float64) *motion.Trial {
	return NewTrial(id, n, fps).
		Joint("jRightShoulder", motion.Flexion, 30).
		Joint("jRightElbow", motion.Flexion, 80).
		Position("RightHand", r3.Vec{X: 0.35, Y: 0.05, Z: 1.1}).
		Joint("jT1C7", motion.Flexion, 15).
		Build()
}
