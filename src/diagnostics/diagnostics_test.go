//go:build unit

package diagnostics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealizedVolatilityRollingSum(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, 0.01, -0.01}

	vols, err := RealizedVolatility(returns, 3)
	require.NoError(t, err)
	require.Len(t, vols, 5)

	assert.True(t, math.IsNaN(vols[0]))
	assert.True(t, math.IsNaN(vols[1]))
	assert.InDelta(t, math.Sqrt(0.01*0.01+0.02*0.02+0.03*0.03), vols[2], 1e-12)
	assert.InDelta(t, math.Sqrt(0.02*0.02+0.03*0.03+0.01*0.01), vols[3], 1e-12)
	assert.InDelta(t, math.Sqrt(0.03*0.03+0.01*0.01+0.01*0.01), vols[4], 1e-12)
}

func TestRealizedVolatilityValidation(t *testing.T) {
	_, err := RealizedVolatility([]float64{0.01}, 0)
	assert.Error(t, err)

	_, err = RealizedVolatility([]float64{0.01, 0.02}, 5)
	assert.Error(t, err)
}

func TestLjungBoxWhiteNoiseDoesNotReject(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	xs := make([]float64, 1000)
	for i := range xs {
		xs[i] = rng.NormFloat64()
	}

	res, err := LjungBox(xs, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Lags)
	assert.Greater(t, res.PValue, 0.01)
	assert.GreaterOrEqual(t, res.Q, 0.0)
}

func TestLjungBoxDetectsAutocorrelation(t *testing.T) {
	// strong AR(1) should be rejected decisively
	rng := rand.New(rand.NewSource(7))
	xs := make([]float64, 500)
	for i := 1; i < len(xs); i++ {
		xs[i] = 0.9*xs[i-1] + rng.NormFloat64()
	}

	res, err := LjungBox(xs, 10)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 1e-6)
}

func TestLjungBoxValidation(t *testing.T) {
	_, err := LjungBox([]float64{1, 2, 3}, 10)
	assert.Error(t, err, "too few observations")

	_, err = LjungBox(make([]float64, 100), 10)
	assert.Error(t, err, "zero variance")
}

func TestNormalQQOnNormalSample(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	xs := make([]float64, 2000)
	for i := range xs {
		xs[i] = 3.0 + 2.0*rng.NormFloat64()
	}

	points, err := NormalQQ(xs)
	require.NoError(t, err)
	require.Len(t, points, len(xs))

	// quantiles must be sorted and, for a normal sample, close to the line
	maxDev := 0.0
	for i, p := range points {
		if i > 0 {
			assert.GreaterOrEqual(t, p.Theoretical, points[i-1].Theoretical)
			assert.GreaterOrEqual(t, p.Observed, points[i-1].Observed)
		}
		// the extreme order statistics are noisy, skip the tails
		if p.Theoretical > -2.5 && p.Theoretical < 2.5 {
			dev := math.Abs(p.Observed - p.Theoretical)
			if dev > maxDev {
				maxDev = dev
			}
		}
	}
	assert.Less(t, maxDev, 0.25)
}

func TestNormalQQValidation(t *testing.T) {
	_, err := NormalQQ([]float64{1.0, 2.0})
	assert.Error(t, err)

	_, err = NormalQQ([]float64{1.0, 1.0, 1.0, 1.0})
	assert.Error(t, err, "zero variance")
}
