package delay

import (
	"math/rand"
	"sync"
	"time"
)

// Func produces the simulated network lag for one replicate call. Each
// call returns a fresh sample, so every (follower, write) pair gets its
// own independent delay.
type Func func() time.Duration

// None returns no delay. Used by followers and by tests that want
// deterministic timing.
func None() Func {
	return func() time.Duration { return 0 }
}

// Fixed returns the same delay on every call.
func Fixed(d time.Duration) Func {
	return func() time.Duration { return d }
}

// Uniform draws a delay uniformly at random from [min, max] on every
// call. min and max must already be validated (non-negative, min <= max).
func Uniform(min, max time.Duration) Func {
	if min == 0 && max == 0 {
		return None()
	}

	// rand.Rand is not safe for concurrent use; fan-out goroutines
	// share one source.
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	span := int64(max - min)
	return func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		if span == 0 {
			return min
		}
		return min + time.Duration(rng.Int63n(span+1))
	}
}
