package pacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	c := New()
	assert.Equal(t, 0, c.Delay())
	assert.Equal(t, []float64{0}, c.Window())
}

func TestObserve_RaisesThenSettles(t *testing.T) {
	c := New()

	// [0,1] -> variance 0.5
	assert.Equal(t, Raised, c.Observe(time.Second))
	assert.InDelta(t, 0.5, c.Variance(), 1e-9)
	assert.Equal(t, 1, c.Delay())

	// [0,1,1] -> variance 1/3
	assert.Equal(t, Held, c.Observe(time.Second))
	assert.Equal(t, 1, c.Delay())

	// [0,1,1,1] -> variance 0.25, then trimmed to [1,1,1]
	assert.Equal(t, Held, c.Observe(time.Second))
	assert.InDelta(t, 0.25, c.Variance(), 1e-9)
	assert.Equal(t, []float64{1, 1, 1}, c.Window())

	// [1,1,1,1] -> variance 0
	assert.Equal(t, Lowered, c.Observe(time.Second))
	assert.Equal(t, 0, c.Delay())

	// Never below zero.
	assert.Equal(t, Held, c.Observe(time.Second))
	assert.Equal(t, 0, c.Delay())
}

func TestObserve_Spike(t *testing.T) {
	c := New()
	for i := 0; i < 4; i++ {
		c.Observe(time.Second)
	}
	assert.Equal(t, 0, c.Delay())

	// [1,1,1,3] -> variance 1.0
	assert.Equal(t, Raised, c.Observe(3*time.Second))
	assert.InDelta(t, 1.0, c.Variance(), 1e-9)
	assert.Equal(t, 1, c.Delay())
	assert.Equal(t, 2*time.Second, (&Controller{delay: 2}).DelayDuration(time.Second))
}

func TestObserve_NoUpperBound(t *testing.T) {
	c := New()
	for i := 0; i < 10; i++ {
		d := time.Duration((i+1)%2) * 5 * time.Second
		c.Observe(d)
	}
	assert.Equal(t, 10, c.Delay())
}

func TestControllersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.Observe(2 * time.Second)
	assert.Equal(t, 1, a.Delay())
	assert.Equal(t, 0, b.Delay())
}

func TestSampleVariance(t *testing.T) {
	assert.Equal(t, 0.0, sampleVariance(nil))
	assert.Equal(t, 0.0, sampleVariance([]float64{4}))
	assert.InDelta(t, 2.0, sampleVariance([]float64{1, 3}), 1e-9)
}

func TestAdjustmentString(t *testing.T) {
	assert.Equal(t, "raised", Raised.String())
	assert.Equal(t, "lowered", Lowered.String())
	assert.Equal(t, "held", Held.String())
}
