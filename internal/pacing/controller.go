// Package pacing adapts the pause between filing fetches to observed latency variance.
//
// Rising variance in operation durations is read as remote-side throttling
// pressure and lengthens the pause; falling variance shortens it again.
// A Controller is a plain value owned by one entity run; it is not safe for
// concurrent use and must never be shared between runs.
package pacing

import "time"

const (
	windowSize = 3
	raiseAbove = 0.4
	lowerBelow = 0.2
)

// Adjustment reports what the last observation did to the delay level.
type Adjustment int

const (
	Held Adjustment = iota
	Raised
	Lowered
)

func (a Adjustment) String() string {
	switch a {
	case Raised:
		return "raised"
	case Lowered:
		return "lowered"
	default:
		return "held"
	}
}

// Controller tracks the last few operation durations (in seconds) and an integer delay level.
type Controller struct {
	samples  []float64
	delay    int
	variance float64
}

// New returns a controller whose window is seeded with one zero sample and delay 0.
func New() *Controller {
	return &Controller{samples: []float64{0}}
}

// Observe records one operation's wall-clock cost and adjusts the delay level.
// Variance is computed over the window including the new sample, then the
// window is trimmed to the last three samples.
func (c *Controller) Observe(d time.Duration) Adjustment {
	c.samples = append(c.samples, d.Seconds())
	c.variance = sampleVariance(c.samples)
	if len(c.samples) > windowSize {
		c.samples = append([]float64(nil), c.samples[len(c.samples)-windowSize:]...)
	}

	switch {
	case c.variance > raiseAbove:
		c.delay++
		return Raised
	case c.variance < lowerBelow && c.delay > 0:
		c.delay--
		return Lowered
	default:
		return Held
	}
}

// Delay returns the number of time units to wait before the next operation.
func (c *Controller) Delay() int { return c.delay }

// DelayDuration converts Delay into a duration using unit as one time unit.
func (c *Controller) DelayDuration(unit time.Duration) time.Duration {
	return time.Duration(c.delay) * unit
}

// Variance returns the variance computed by the last Observe.
func (c *Controller) Variance() float64 { return c.variance }

// Window returns a copy of the current sample window.
func (c *Controller) Window() []float64 {
	return append([]float64(nil), c.samples...)
}

// sampleVariance uses the n-1 denominator; fewer than two samples yield 0.
func sampleVariance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return ss / float64(n-1)
}
