// Package netsim simulates datagram loss. Each process holds one
// seeded Dropper shared by all of its send paths, so a fixed seed
// reproduces the same drop sequence.
package netsim

import "math/rand"

// Dropper decides, per transmission, whether to silently skip the send.
type Dropper struct {
	rng  *rand.Rand
	rate float64
}

// NewDropper creates a dropper. A rate of 0 disables loss entirely.
func NewDropper(rate float64, seed int64) *Dropper {
	return &Dropper{
		rng:  rand.New(rand.NewSource(seed)),
		rate: rate,
	}
}

// Drop draws a uniform sample in [0,1) and reports whether the next
// datagram should be discarded instead of sent.
func (d *Dropper) Drop() bool {
	if d.rate <= 0 {
		return false
	}
	return d.rng.Float64() < d.rate
}

// Rate returns the configured loss rate.
func (d *Dropper) Rate() float64 { return d.rate }
