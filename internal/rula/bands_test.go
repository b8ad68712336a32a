package rula

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	breakpoints := []float64{-20, 20, 45, 90}
	testCases := []struct {
		name string
		v    float64
		want float64
	}{
		{"deep extension", -40, 1},
		{"on lower edge", -20, 2},
		{"neutral", 0, 2},
		{"on breakpoint goes up", 20, 3},
		{"mid flexion", 30, 3},
		{"on 45", 45, 4},
		{"overhead", 120, 5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.v, breakpoints))
		})
	}
	assert.True(t, math.IsNaN(Classify(math.NaN(), breakpoints)))
}

func TestBandScores(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		band Band
		v    float64
		want float64
	}{
		{"upper arm extended", UpperArmBand(), -30, 2},
		{"upper arm neutral", UpperArmBand(), 10, 1},
		{"upper arm 20 to 45", UpperArmBand(), 30, 2},
		{"upper arm 45 to 90", UpperArmBand(), 60, 3},
		{"upper arm overhead", UpperArmBand(), 95, 4},
		{"lower arm straight", LowerArmBand(), 10, 2},
		{"lower arm 80", LowerArmBand(), 80, 1},
		{"lower arm at 100", LowerArmBand(), 100, 2},
		{"wrist neutral", WristBand(5), 0, 1},
		{"wrist slightly flexed", WristBand(5), 10, 2},
		{"wrist slightly extended", WristBand(5), -10, 2},
		{"wrist fully extended", WristBand(5), -30, 3},
		{"wrist at 15", WristBand(5), 15, 3},
		{"twist mid range", WristTwistBand(), 20, 1},
		{"twist end range", WristTwistBand(), -60, 2},
		{"neck extended", NeckBand(), -5, 4},
		{"neck upright", NeckBand(), 5, 1},
		{"neck 15", NeckBand(), 15, 2},
		{"neck 25", NeckBand(), 25, 3},
		{"trunk upright", TrunkBand(5), 0, 1},
		{"trunk extended", TrunkBand(5), -10, 2},
		{"trunk 30", TrunkBand(5), 30, 3},
		{"trunk 70", TrunkBand(5), 70, 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.band.Score(tc.v))
		})
	}
}

func TestBandValidate(t *testing.T) {
	t.Parallel()

	for _, b := range []Band{UpperArmBand(), LowerArmBand(), WristBand(5), WristTwistBand(), NeckBand(), TrunkBand(5)} {
		assert.NoError(t, b.Validate())
	}
	assert.Error(t, Band{Breakpoints: []float64{1, 2}, Scores: []int{1, 2}}.Validate())
	assert.Error(t, Band{Breakpoints: []float64{2, 2}, Scores: []int{1, 2, 3}}.Validate())
}

func TestBandScoreSeries_NaN(t *testing.T) {
	t.Parallel()

	got := NeckBand().ScoreSeries([]float64{5, math.NaN(), 25})
	assert.Equal(t, 1.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 3.0, got[2])
}

func TestSeriesJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Series{1, math.NaN(), 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,null,2.5]`, string(b))

	var back Series
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back, 3)
	assert.Equal(t, 1.0, back[0])
	assert.True(t, math.IsNaN(back[1]))
	assert.Equal(t, 2, back.Valid())
}
