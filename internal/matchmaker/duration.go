package matchmaker

import (
	"math"
	"math/rand"
	"time"
)

// triangularDuration samples a duration uniformly at random from a
// triangular distribution over [minSec, maxSec] with the mode at the
// midpoint, per §4.2's "Game materialization" step. Kept as a pure
// function of an injected rand.Rand so tests can seed it deterministically.
func triangularDuration(r *rand.Rand, minSec, maxSec int) time.Duration {
	if maxSec <= minSec {
		return time.Duration(minSec) * time.Second
	}

	lo := float64(minSec)
	hi := float64(maxSec)
	mode := (lo + hi) / 2

	u := r.Float64()
	fc := (mode - lo) / (hi - lo)

	var sample float64
	if u < fc {
		sample = lo + math.Sqrt(u*(hi-lo)*(mode-lo))
	} else {
		sample = hi - math.Sqrt((1-u)*(hi-lo)*(hi-mode))
	}

	return time.Duration(sample * float64(time.Second))
}
