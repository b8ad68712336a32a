package rula

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	forward = r3.Vec{X: 1}
	up      = r3.Vec{Z: 1}
)

// Heading returns the yaw of q in radians: the direction its local x axis
// points when projected onto the horizontal plane. A zero or NaN
// quaternion gives NaN.
func Heading(q quat.Number) float64 {
	norm := quat.Abs(q)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return math.NaN()
	}
	unit := quat.Scale(1/norm, q)
	f := r3.Rotation(unit).Rotate(forward)
	return math.Atan2(f.Y, f.X)
}

// LateralOffsets measures how far each point sits to one side of a trunk
// landmark. The difference vector is turned into the landmark's heading
// frame (x forward, y left) and the lateral component is signed so that
// positive always points away from the body towards the given side. A
// negative value therefore means the point has crossed the midline.
func LateralOffsets(points, landmark []r3.Vec, orientation []quat.Number, side Side) Series {
	out := make(Series, len(points))
	for i := range points {
		d := r3.Sub(points[i], landmark[i])
		yaw := Heading(orientation[i])
		if math.IsNaN(yaw) || math.IsNaN(d.X) || math.IsNaN(d.Y) || math.IsNaN(d.Z) {
			out[i] = math.NaN()
			continue
		}
		local := r3.NewRotation(-yaw, up).Rotate(d)
		if side == Right {
			out[i] = -local.Y
		} else {
			out[i] = local.Y
		}
	}
	return out
}

// ReachFlags is the step 2 adjustment: 1 when the wrist is across the
// midline (offset below -midlineMargin) or further out than the shoulder
// by more than sideMargin.
func ReachFlags(wristOffset, shoulderOffset Series, midlineMargin, sideMargin float64) Series {
	out := make(Series, len(wristOffset))
	for i, w := range wristOffset {
		s := shoulderOffset[i]
		switch {
		case math.IsNaN(w) || math.IsNaN(s):
			out[i] = math.NaN()
		case w < -midlineMargin:
			out[i] = 1
		case w-s > sideMargin:
			out[i] = 1
		}
	}
	return out
}
