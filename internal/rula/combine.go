package rula

import "math"

// ArmWristScore is step 5: Table A over the four arm/wrist posture steps.
func ArmWristScore(upper, lower, wrist, twist []float64) Series {
	out := make(Series, len(upper))
	for i := range out {
		out[i] = LookupA(upper[i], lower[i], wrist[i], twist[i])
	}
	return out
}

// ArmTotal is step 8: posture + muscle use + load.
func ArmTotal(posture, muscle, load []float64) Series {
	return sumSeries(posture, muscle, load)
}

// WorstSide takes the larger of the two arm scores on every frame. A NaN
// on either side makes the frame NaN: the worse side is unknown.
func WorstSide(left, right []float64) Series {
	out := make(Series, len(left))
	for i := range out {
		out[i] = math.Max(left[i], right[i])
	}
	return out
}

// NeckTrunkLegScore is step 12: Table B over neck, trunk and legs.
func NeckTrunkLegScore(neck, trunk, legs []float64) Series {
	out := make(Series, len(neck))
	for i := range out {
		out[i] = LookupB(neck[i], trunk[i], legs[i])
	}
	return out
}

// BodyTotal is step 15: posture + muscle use + load.
func BodyTotal(posture, muscle, load []float64) Series {
	return sumSeries(posture, muscle, load)
}

// FinalScore is the Table C grand score, 1-7.
func FinalScore(worstArm, body []float64) Series {
	out := make(Series, len(worstArm))
	for i := range out {
		out[i] = LookupC(worstArm[i], body[i])
	}
	return out
}
