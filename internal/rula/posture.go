package rula

import "math"

// Joints feeding the neck and trunk bend zones. Flexion is summed over
// every joint of the chain.
var (
	NeckJoints  = []string{"jT1C7", "jC1Head"}
	TrunkJoints = []string{"jL5S1", "jL4L3", "jL1T12", "jT9T8"}
)

// armJoints names the joints and segments of one arm.
type armJoints struct {
	girdle   string // shoulder elevation (sternoclavicular)
	shoulder string
	elbow    string
	wrist    string
	upperArm string // segment used as shoulder position
	hand     string // segment used as wrist position
}

func armJointsFor(s Side) armJoints {
	p := s.prefix()
	return armJoints{
		girdle:   "j" + p + "T4Shoulder",
		shoulder: "j" + p + "Shoulder",
		elbow:    "j" + p + "Elbow",
		wrist:    "j" + p + "Wrist",
		upperArm: p + "UpperArm",
		hand:     p + "Hand",
	}
}

// PostureScore is the outcome of one bend-zone step.
type PostureScore struct {
	Scores Series
	// Capped counts frames whose adjusted score hit the step's floor or
	// ceiling and was clamped.
	Capped int
}

// above flags frames where v exceeds the threshold; NaN stays NaN.
func above(values []float64, threshold float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case v > threshold:
			out[i] = 1
		}
	}
	return out
}

// absAbove flags frames where |v| exceeds the threshold.
func absAbove(values []float64, threshold float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case math.Abs(v) > threshold:
			out[i] = 1
		}
	}
	return out
}

// adjust adds every adjustment series to base and clamps to [lo, hi].
func adjust(base Series, lo, hi float64, adjustments ...Series) PostureScore {
	total := sumSeries(append([][]float64{base}, toFloat(adjustments)...)...)
	res := PostureScore{Scores: total}
	for i, v := range total {
		if math.IsNaN(v) {
			continue
		}
		if v > hi {
			total[i] = hi
			res.Capped++
		} else if v < lo {
			total[i] = lo
			res.Capped++
		}
	}
	return res
}

func toFloat(series []Series) [][]float64 {
	out := make([][]float64, len(series))
	for i, s := range series {
		out[i] = s
	}
	return out
}

// UpperArmScore is step 1: flexion zone, +1 abducted, +1 shoulder raised,
// -1 when the arm is supported. Range 1-6.
func UpperArmScore(flexion, abduction, girdleElevation []float64, p Params) PostureScore {
	adj := []Series{
		above(abduction, p.UpperArmAbductionDeg),
		above(girdleElevation, p.ShoulderRaiseDeg),
	}
	if p.ArmSupported {
		adj = append(adj, constantLike(flexion, -1))
	}
	return adjust(UpperArmBand().ScoreSeries(flexion), 1, 6, adj...)
}

// LowerArmScore is step 2: elbow flexion zone, +1 when the hand works
// across the midline or out to the side. Range 1-3.
func LowerArmScore(elbowFlexion []float64, reachFlags Series) PostureScore {
	return adjust(LowerArmBand().ScoreSeries(elbowFlexion), 1, 3, reachFlags)
}

// WristScore is step 3: flexion/extension zone, +1 for radial or ulnar
// deviation. Range 1-4.
func WristScore(flexion, deviation []float64, p Params) PostureScore {
	return adjust(WristBand(p.NeutralToleranceDeg).ScoreSeries(flexion), 1, 4,
		absAbove(deviation, p.WristDeviationDeg))
}

// WristTwistScore is step 4: mid-range or end-range forearm twist.
func WristTwistScore(pronation []float64) PostureScore {
	return PostureScore{Scores: WristTwistBand().ScoreSeries(pronation)}
}

// NeckScore is step 9: summed head/neck flexion zone, +1 twisted, +1 side
// bent. Range 1-6.
func NeckScore(flexion, twist, sideBend []float64, p Params) PostureScore {
	return adjust(NeckBand().ScoreSeries(flexion), 1, 6,
		absAbove(twist, p.NeckTwistDeg),
		absAbove(sideBend, p.NeckSideBendDeg))
}

// TrunkScore is step 10: summed trunk flexion zone, +1 twisted, +1 side
// bent. Range 1-6.
func TrunkScore(flexion, twist, sideBend []float64, p Params) PostureScore {
	return adjust(TrunkBand(p.NeutralToleranceDeg).ScoreSeries(flexion), 1, 6,
		absAbove(twist, p.TrunkTwistDeg),
		absAbove(sideBend, p.TrunkSideBendDeg))
}

// LegScore is step 11, a constant chosen per deployment. Frames that are
// NaN in mask stay NaN.
func LegScore(mask []float64, p Params) PostureScore {
	return PostureScore{Scores: constantLike(mask, p.LegScore())}
}
