package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter is the upper bound of the random component added to every wait
const DefaultJitter = 500 * time.Millisecond

// Jittered waits Base plus a uniform random duration in [0, Jitter)
type Jittered struct {
	Base   time.Duration
	Jitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewJittered returns a Jittered strategy seeded from the clock
func NewJittered(base, jitter time.Duration) *Jittered {
	return &Jittered{
		Base:   base,
		Jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay returns the next wait duration
func (j *Jittered) NextDelay() time.Duration {
	delay := j.Base
	if delay < 0 {
		delay = 0
	}
	if j.Jitter <= 0 {
		return delay
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.rng == nil {
		j.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return delay + time.Duration(j.rng.Int63n(int64(j.Jitter)))
}

// Wait blocks for delay, returning early with ctx.Err() when ctx is done.
// A nil error means the full delay elapsed or stop was closed.
func Wait(ctx context.Context, delay time.Duration, stop <-chan struct{}) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
