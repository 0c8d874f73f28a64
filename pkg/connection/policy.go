package connection

import (
	"math/rand/v2"
	"time"
)

// Default retry parameters for the push channel.
const (
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0
	DefaultJitter       = 0.25
)

// Policy computes the wait before each reconnection attempt. Zero fields
// fall back to the defaults, except Jitter, where zero means none.
type Policy struct {
	// Initial is the wait before the first retry.
	Initial time.Duration

	// Max caps the wait before any retry.
	Max time.Duration

	// Multiplier scales the wait after each failed attempt. Values <= 1
	// fall back to DefaultMultiplier.
	Multiplier float64

	// Jitter spreads each wait by up to this fraction in either direction.
	// It is clamped to [0, 1].
	Jitter float64
}

// DefaultPolicy returns the push channel defaults.
func DefaultPolicy() Policy {
	return Policy{
		Initial:    DefaultInitialDelay,
		Max:        DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
		Jitter:     DefaultJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.Initial <= 0 {
		p.Initial = DefaultInitialDelay
	}
	if p.Max <= 0 {
		p.Max = DefaultMaxDelay
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Multiplier <= 1 {
		p.Multiplier = DefaultMultiplier
	}
	p.Jitter = min(max(p.Jitter, 0), 1)
	return p
}

// Base returns the un-jittered wait before retry number attempt, counting
// from 1. Attempts below 1 are treated as 1.
func (p Policy) Base(attempt int) time.Duration {
	p = p.normalized()
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.Max {
			return p.Max
		}
	}
	return d
}

// Delay returns the jittered wait before retry number attempt.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	base := p.Base(attempt)
	if p.Jitter == 0 {
		return base
	}
	u := 2*rand.Float64() - 1
	return base + time.Duration(float64(base)*p.Jitter*u)
}
