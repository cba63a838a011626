// Package kalman smooths wheel-speed samples with a two-state
// (velocity, acceleration) constant-acceleration Kalman filter.
package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultProcessVariance     = 4.0
	DefaultMeasurementVariance = 3.0
	DefaultPeriod              = 0.05

	initialCovariance = 100.0
	// intervals closer than this to the stored one reuse F and Q
	intervalTolerance = 1e-3
)

type Config struct {
	ProcessVariance     float64 `toml:"process_variance"`
	MeasurementVariance float64 `toml:"measurement_variance"`
	// Period is the nominal sample interval in seconds.
	Period float64 `toml:"nominal_period"`
}

func DefaultConfig() Config {
	return Config{
		ProcessVariance:     DefaultProcessVariance,
		MeasurementVariance: DefaultMeasurementVariance,
		Period:              DefaultPeriod,
	}
}

// SpeedFilter is not safe for concurrent use; it belongs to the goroutine
// reading speed frames.
type SpeedFilter struct {
	cfg Config

	x  *mat.VecDense
	p  *mat.Dense
	f  *mat.Dense
	q  *mat.Dense
	h  *mat.Dense
	dt float64
}

func NewSpeedFilter(cfg Config) *SpeedFilter {
	k := &SpeedFilter{
		cfg: cfg,
		h:   mat.NewDense(1, 2, []float64{1, 0}),
	}
	k.Reset()
	return k
}

// Reset forgets the current estimate and restores the initial covariance.
func (k *SpeedFilter) Reset() {
	k.x = mat.NewVecDense(2, nil)
	k.p = mat.NewDense(2, 2, []float64{
		initialCovariance, 0,
		0, initialCovariance,
	})
	k.setInterval(k.cfg.Period)
}

func (k *SpeedFilter) setInterval(dt float64) {
	k.dt = dt
	k.f = mat.NewDense(2, 2, []float64{
		1, dt,
		0, 1,
	})
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	k.q = mat.NewDense(2, 2, []float64{
		dt4 / 4, dt3 / 2,
		dt3 / 2, dt2,
	})
	k.q.Scale(k.cfg.ProcessVariance, k.q)
}

// Interval is the sample interval F and Q were last built for.
func (k *SpeedFilter) Interval() float64 {
	return k.dt
}

// Velocity returns the current estimate without advancing the filter.
func (k *SpeedFilter) Velocity() float64 {
	return k.x.AtVec(0)
}

// Acceleration returns the current acceleration estimate.
func (k *SpeedFilter) Acceleration() float64 {
	return k.x.AtVec(1)
}

// Covariance returns a copy of P.
func (k *SpeedFilter) Covariance() *mat.Dense {
	return mat.DenseCopyOf(k.p)
}

// Update folds measurement z, taken dt seconds after the previous one, into
// the estimate and returns the filtered velocity, never below zero.
func (k *SpeedFilter) Update(z, dt float64) float64 {
	if math.Abs(dt-k.dt) > intervalTolerance {
		k.setInterval(dt)
	}

	// predict
	var x mat.VecDense
	x.MulVec(k.f, k.x)
	var p mat.Dense
	p.Product(k.f, k.p, k.f.T())
	p.Add(&p, k.q)

	// innovate; S is 1x1 so its inverse is a reciprocal
	var hx mat.VecDense
	hx.MulVec(k.h, &x)
	y := z - hx.AtVec(0)
	var s mat.Dense
	s.Product(k.h, &p, k.h.T())
	sInv := 1 / (s.At(0, 0) + k.cfg.MeasurementVariance)
	var gain mat.Dense
	gain.Mul(&p, k.h.T())
	gain.Scale(sInv, &gain)

	// correct
	var correction mat.VecDense
	correction.ScaleVec(y, gain.ColView(0))
	x.AddVec(&x, &correction)

	var kh mat.Dense
	kh.Mul(&gain, k.h)
	var ikh mat.Dense
	ikh.Sub(eye2(), &kh)
	var next mat.Dense
	next.Mul(&ikh, &p)

	if x.AtVec(0) < 0 {
		x.SetVec(0, 0)
	}
	k.x = &x
	k.p = &next
	return x.AtVec(0)
}

func eye2() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
}
