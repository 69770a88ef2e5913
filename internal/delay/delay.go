// Package delay models how long a peer waits before flushing pending
// transactions to a neighbor. Waits are exponentially distributed with a
// shorter mean on connections the sender opened.
package delay

import (
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultOutgoingMean applies when the sender opened the connection.
	DefaultOutgoingMean = 2 * time.Second

	// DefaultIncomingMean applies when the receiver opened the connection.
	DefaultIncomingMean = 5 * time.Second
)

// Model draws per-edge flush delays. It is not safe for concurrent use; each
// simulation owns its own Model and random source.
type Model struct {
	rng          *rand.Rand
	outgoingMean time.Duration
	incomingMean time.Duration
}

// New returns a Model with the given means. Non-positive means fall back to
// the defaults.
func New(rng *rand.Rand, outgoingMean, incomingMean time.Duration) *Model {
	if outgoingMean <= 0 {
		outgoingMean = DefaultOutgoingMean
	}
	if incomingMean <= 0 {
		incomingMean = DefaultIncomingMean
	}
	return &Model{
		rng:          rng,
		outgoingMean: outgoingMean,
		incomingMean: incomingMean,
	}
}

// NewDefault returns a Model with the reference means.
func NewDefault(rng *rand.Rand) *Model {
	return New(rng, DefaultOutgoingMean, DefaultIncomingMean)
}

// Mean returns the distribution mean for the given orientation.
func (m *Model) Mean(senderIsOpener bool) time.Duration {
	if senderIsOpener {
		return m.outgoingMean
	}
	return m.incomingMean
}

// Next draws the next delay, rounded to whole microseconds.
func (m *Model) Next(senderIsOpener bool) time.Duration {
	return Sample(m.Mean(senderIsOpener), m.rng.Float64())
}

// Sample maps u in [0,1) through the inverse exponential CDF with the given
// mean: round(-mean * ln(1-u)) in microseconds, never negative.
func Sample(mean time.Duration, u float64) time.Duration {
	meanMicros := float64(mean / time.Microsecond)
	micros := int64(-math.Log1p(-u)*meanMicros + 0.5)
	if micros < 0 {
		micros = 0
	}
	return time.Duration(micros) * time.Microsecond
}
