// Package motion defines the per-frame data contract handed over by the
// motion-capture ingestion side: joint-angle triplets, segment positions
// and segment orientations for one trial.
package motion

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxPhysicalAngleDeg bounds a plausible joint angle. Anything beyond it
// (or infinite) is treated as a bad sample and read back as NaN.
const MaxPhysicalAngleDeg = 360.0

// Trial is one recording of one subject. Rows are frames; a trial is
// read-only once Validate has succeeded.
type Trial struct {
	TrialID   string
	SubjectID string
	Condition string

	// Either FrameRate (Hz) or TimestampsMs (one per frame) sets timing.
	// TimestampsMs wins when both are present.
	FrameRate    float64
	TimestampsMs []float64

	Joints   *Schema
	Segments *Schema

	JointAngles  [][]float64 // N x 3J, degrees
	Positions    [][]float64 // N x 3S, metres
	Orientations [][]float64 // N x 4S, (q0, q1, q2, q3)
}

// Len returns the number of frames.
func (t *Trial) Len() int { return len(t.JointAngles) }

// Validate checks array widths and timing against the schemas.
func (t *Trial) Validate() error {
	n := len(t.JointAngles)
	if n == 0 {
		return configErrorf("joint_angles", "trial %q has no frames", t.TrialID)
	}
	if t.Joints.Len() == 0 {
		return configErrorf("joints", "trial %q has no joint schema", t.TrialID)
	}
	want := 3 * t.Joints.Len()
	for i, row := range t.JointAngles {
		if len(row) != want {
			return configErrorf("joint_angles", "frame %d has %d columns, want %d", i, len(row), want)
		}
	}

	if len(t.Positions) > 0 || len(t.Orientations) > 0 {
		if t.Segments.Len() == 0 {
			return configErrorf("segments", "trial %q has segment data but no segment schema", t.TrialID)
		}
		if len(t.Positions) != n {
			return configErrorf("positions", "%d position rows for %d frames", len(t.Positions), n)
		}
		if len(t.Orientations) != n {
			return configErrorf("orientations", "%d orientation rows for %d frames", len(t.Orientations), n)
		}
		for i := 0; i < n; i++ {
			if len(t.Positions[i]) != 3*t.Segments.Len() {
				return configErrorf("positions", "frame %d has %d columns, want %d", i, len(t.Positions[i]), 3*t.Segments.Len())
			}
			if len(t.Orientations[i]) != 4*t.Segments.Len() {
				return configErrorf("orientations", "frame %d has %d columns, want %d", i, len(t.Orientations[i]), 4*t.Segments.Len())
			}
		}
	}

	if len(t.TimestampsMs) > 0 {
		if len(t.TimestampsMs) != n {
			return configErrorf("timestamps", "%d timestamps for %d frames", len(t.TimestampsMs), n)
		}
		for i := 1; i < n; i++ {
			if !(t.TimestampsMs[i] > t.TimestampsMs[i-1]) {
				return configErrorf("timestamps", "timestamps not strictly increasing at frame %d", i)
			}
		}
		return nil
	}
	if !(t.FrameRate > 0) || math.IsInf(t.FrameRate, 0) {
		return configErrorf("frame_rate", "trial %q needs a positive frame rate or timestamps", t.TrialID)
	}
	return nil
}

// Times returns the time of each frame in seconds from the first frame.
func (t *Trial) Times() []float64 {
	n := t.Len()
	out := make([]float64, n)
	if len(t.TimestampsMs) == n && n > 0 {
		t0 := t.TimestampsMs[0]
		for i, ts := range t.TimestampsMs {
			out[i] = (ts - t0) / 1000
		}
		return out
	}
	for i := range out {
		out[i] = float64(i) / t.FrameRate
	}
	return out
}

// Durations returns how long each frame represents, in seconds. The last
// frame gets the median step so irregular tails do not skew weights.
func (t *Trial) Durations() []float64 {
	return FrameDurations(t.Times(), t.FrameRate)
}

// FrameDurations derives per-frame durations from frame times. frameRate
// is only consulted when there is a single frame.
func FrameDurations(times []float64, frameRate float64) []float64 {
	n := len(times)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		if frameRate > 0 {
			out[0] = 1 / frameRate
		} else {
			out[0] = 1
		}
		return out
	}
	steps := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		out[i] = times[i+1] - times[i]
		steps[i] = out[i]
	}
	sort.Float64s(steps)
	out[n-1] = steps[len(steps)/2]
	return out
}

// JointAngle returns one axis of one joint for every frame. Out of range
// samples come back as NaN.
func (t *Trial) JointAngle(joint string, axis Axis) ([]float64, error) {
	idx, ok := t.Joints.Index(joint)
	if !ok {
		return nil, configErrorf("joint "+joint, "not present in joint schema")
	}
	col := 3*idx + int(axis)
	out := make([]float64, t.Len())
	for i, row := range t.JointAngles {
		out[i] = sanitizeAngle(row[col])
	}
	return out, nil
}

// SumJointAngles adds the same axis over several joints frame by frame.
// Any NaN contributor makes the frame NaN.
func (t *Trial) SumJointAngles(joints []string, axis Axis) ([]float64, error) {
	out := make([]float64, t.Len())
	for _, j := range joints {
		col, err := t.JointAngle(j, axis)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			out[i] += v
		}
	}
	return out, nil
}

// Position returns the origin of a segment in every frame.
func (t *Trial) Position(segment string) ([]r3.Vec, error) {
	idx, ok := t.Segments.Index(segment)
	if !ok || len(t.Positions) != t.Len() {
		return nil, configErrorf("segment "+segment, "no position data")
	}
	out := make([]r3.Vec, t.Len())
	for i, row := range t.Positions {
		out[i] = r3.Vec{X: row[3*idx], Y: row[3*idx+1], Z: row[3*idx+2]}
	}
	return out, nil
}

// Orientation returns the orientation quaternion of a segment in every frame.
func (t *Trial) Orientation(segment string) ([]quat.Number, error) {
	idx, ok := t.Segments.Index(segment)
	if !ok || len(t.Orientations) != t.Len() {
		return nil, configErrorf("segment "+segment, "no orientation data")
	}
	out := make([]quat.Number, t.Len())
	for i, row := range t.Orientations {
		out[i] = quat.Number{Real: row[4*idx], Imag: row[4*idx+1], Jmag: row[4*idx+2], Kmag: row[4*idx+3]}
	}
	return out, nil
}

func sanitizeAngle(v float64) float64 {
	if math.IsInf(v, 0) || math.Abs(v) > MaxPhysicalAngleDeg {
		return math.NaN()
	}
	return v
}
