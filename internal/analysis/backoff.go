package analysis

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// FullJitter is a backoff.BackOff that waits a uniform random duration in
// [0, min(Max, Base * 2^n)] before retry n.
type FullJitter struct {
	Base time.Duration
	Max  time.Duration

	// Rand returns a value in [0, n). Nil uses math/rand/v2.
	Rand func(n int64) int64

	attempt int
}

var _ backoff.BackOff = (*FullJitter)(nil)

// NextBackOff returns the next wait and advances the attempt counter.
func (b *FullJitter) NextBackOff() time.Duration {
	ceiling := b.ceiling()
	b.attempt++

	if ceiling <= 0 {
		return 0
	}

	rnd := b.Rand
	if rnd == nil {
		rnd = rand.Int64N
	}
	return time.Duration(rnd(int64(ceiling) + 1))
}

// Reset restarts the exponential sequence.
func (b *FullJitter) Reset() {
	b.attempt = 0
}

func (b *FullJitter) ceiling() time.Duration {
	if b.Base <= 0 {
		return 0
	}

	d := b.Base
	for range b.attempt {
		if d >= b.Max/2 {
			return b.Max
		}
		d *= 2
	}

	return min(d, b.Max)
}
