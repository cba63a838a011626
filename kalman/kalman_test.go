package kalman

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeverNegative(t *testing.T) {
	k := NewSpeedFilter(DefaultConfig())
	rnd := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		z := float64(rnd.Intn(65536))
		// sudden drops to zero make the unclamped estimate undershoot
		if rnd.Intn(4) == 0 {
			z = 0
		}
		dt := 0.01 + rnd.Float64()*0.2
		v := k.Update(z, dt)
		assert.False(t, v < 0, "sample %d produced %f", i, v)
		assert.Equal(t, v, k.Velocity())
	}
}

func TestConvergesToConstant(t *testing.T) {
	k := NewSpeedFilter(DefaultConfig())
	const z = 100.0

	errs := make([]float64, 0, 400)
	prevP := math.Inf(1)
	for i := 0; i < 400; i++ {
		v := k.Update(z, DefaultPeriod)
		errs = append(errs, math.Abs(v-z))

		p := k.Covariance().At(0, 0)
		assert.True(t, p <= prevP, "velocity variance grew at sample %d", i)
		prevP = p
	}

	assert.True(t, errs[50] < errs[0])
	assert.True(t, errs[100] < errs[50])
	assert.True(t, errs[200] < errs[100])
	assert.InDelta(t, z, k.Velocity(), 0.01)
	assert.InDelta(t, 0, k.Acceleration(), 0.01)
}

func TestIntervalRecomputed(t *testing.T) {
	k := NewSpeedFilter(DefaultConfig())
	assert.Equal(t, DefaultPeriod, k.Interval())

	// within 1ms of the stored interval, F and Q are kept
	k.Update(10, DefaultPeriod+0.0005)
	assert.Equal(t, DefaultPeriod, k.Interval())

	k.Update(10, 0.2)
	assert.Equal(t, 0.2, k.Interval())
	assert.Equal(t, 0.2, k.f.At(0, 1))
	assert.InDelta(t, 0.2*0.2*DefaultProcessVariance, k.q.At(1, 1), 1e-12)
	assert.InDelta(t, math.Pow(0.2, 4)/4*DefaultProcessVariance, k.q.At(0, 0), 1e-12)
}

func TestFirstUpdate(t *testing.T) {
	k := NewSpeedFilter(DefaultConfig())
	v := k.Update(50, DefaultPeriod)
	// P grows from 100I by F P F^T + Q, so the gain is close to 1
	assert.InDelta(t, 48.547, v, 0.01)
}

func TestReset(t *testing.T) {
	k := NewSpeedFilter(DefaultConfig())
	for i := 0; i < 20; i++ {
		k.Update(200, 0.5)
	}
	assert.NotZero(t, k.Velocity())

	k.Reset()
	assert.Equal(t, 0.0, k.Velocity())
	assert.Equal(t, 0.0, k.Acceleration())
	assert.Equal(t, DefaultPeriod, k.Interval())
	assert.Equal(t, initialCovariance, k.Covariance().At(1, 1))
}
