package facematch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdenticalVectors(t *testing.T) {
	v := []float64{0.4, -0.2, 0.9, 0.1}

	match, distance, err := Compare(v, v)
	require.NoError(t, err)
	assert.True(t, match)
	assert.InDelta(t, 0.0, distance, 1e-9)
}

func TestCompareOrthogonalVectors(t *testing.T) {
	a := []float64{1, 0, 0, 0}
	b := []float64{0, 1, 0, 0}

	match, distance, err := Compare(a, b)
	require.NoError(t, err)
	assert.False(t, match)
	assert.InDelta(t, 1.0, distance, 1e-9)
}

func TestCompareSymmetric(t *testing.T) {
	a := []float64{0.12, 0.5, -0.33, 0.7}
	b := []float64{0.4, -0.1, 0.2, 0.65}

	_, dAB, err := Compare(a, b)
	require.NoError(t, err)
	_, dBA, err := Compare(b, a)
	require.NoError(t, err)
	assert.Equal(t, dAB, dBA)
}

func TestCompareThresholdBoundary(t *testing.T) {
	// cos(60 deg) lands on the threshold up to float64 rounding; the decision
	// must agree with the distance actually computed, whichever side of the
	// cutoff rounding puts it on.
	a := []float64{1, 0}
	b := []float64{0.5, math.Sqrt(3) / 2}

	match, distance, err := Compare(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, distance, 1e-9)
	assert.Equal(t, distance < Threshold, match)
}

func TestCompareAboveThreshold(t *testing.T) {
	// cos(a, b) ~ 0.4 puts the distance near 0.6, clearly past the cutoff.
	a := []float64{1, 0}
	b := []float64{0.4, math.Sqrt(0.84)}

	match, distance, err := Compare(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, distance, 1e-9)
	assert.False(t, match)
}

func TestCompareZeroMagnitude(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{0.3, 0.4, 0.5}

	match, distance, err := Compare(a, b)
	require.NoError(t, err)
	assert.False(t, match)
	assert.Equal(t, 1.0, distance)
}

func TestCompareMalformedInput(t *testing.T) {
	_, _, err := Compare(nil, []float64{1, 2})
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, _, err = Compare([]float64{1, 2, 3}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Confidence(0))
	assert.InDelta(t, 0.75, Confidence(0.25), 1e-9)
	assert.Equal(t, 0.0, Confidence(1.5))
	assert.Equal(t, 1.0, Confidence(-0.2))
	assert.Equal(t, 0.0, Confidence(math.NaN()))
	assert.Equal(t, 0.0, Confidence(math.Inf(1)))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.1235, RoundScore(0.123456))
	assert.Equal(t, 1.0, RoundScore(0.99999))
}
