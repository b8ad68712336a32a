package rula

import (
	"encoding/json"
	"math"
)

// Series is a per-frame score or angle. NaN marks a frame whose inputs
// were missing or invalid; it is never replaced by a number.
type Series []float64

// MarshalJSON writes NaN as null.
func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsNaN(s[i]) {
			continue
		}
		v := s[i]
		out[i] = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null as NaN.
func (s *Series) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// Valid counts the non-NaN frames.
func (s Series) Valid() int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// sumSeries adds series frame by frame; NaN in any input gives NaN.
func sumSeries(series ...[]float64) Series {
	if len(series) == 0 {
		return nil
	}
	out := make(Series, len(series[0]))
	for _, s := range series {
		for i := range out {
			out[i] += s[i]
		}
	}
	return out
}

// constantLike returns v wherever mask is valid and NaN elsewhere.
func constantLike(mask []float64, v float64) Series {
	out := make(Series, len(mask))
	for i, m := range mask {
		if math.IsNaN(m) {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

func clampInt(v float64, lo, hi int) int {
	i := int(math.Round(v))
	if i < lo {
		return lo
	}
	if i > hi {
		return hi
	}
	return i
}
