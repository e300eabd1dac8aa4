// Package sim implements the stochastic trip simulation engine: a Markov
// route chain, a conditioned Gaussian speed sampler, a conditioned Poisson
// incident process, an AR(1) engine temperature model and a hidden Markov
// model of driver behavior, composed per trip by the orchestrator.
//
// The package is purely computational. Every generator draws from an
// injected Rand so that trips are reproducible and independent: two
// orchestrators built with the same configuration and seed produce
// identical trips, and concurrent trips never share generator state.
package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/stat/distuv"
)

// Rand is the pseudorandom source threaded through the generators. It wraps a
// PCG stream and is not safe for concurrent use; give each trip its own.
type Rand struct {
	src *rand.Rand
}

// NewRand returns a Rand seeded deterministically from seed.
func NewRand(seed uint64) *Rand {
	return &Rand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// TripSeed derives a stable per-trip seed from the run seed and the trip
// identity, so a run can be replayed trip by trip in any order.
func TripSeed(runSeed uint64, vehicleID string, trip int) uint64 {
	return runSeed ^ xxhash.Sum64String(fmt.Sprintf("%s#%d", vehicleID, trip))
}

// Float64 returns a uniform draw from [0,1).
func (r *Rand) Float64() float64 { return r.src.Float64() }

// Uint64 returns a uniform 64-bit draw.
func (r *Rand) Uint64() uint64 { return r.src.Uint64() }

// IntN returns a uniform draw from [0,n).
func (r *Rand) IntN(n int) int { return r.src.IntN(n) }

// Uniform returns a uniform draw from [lo,hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + r.src.Float64()*(hi-lo)
}

// Normal returns a draw from Normal(mu, sigma).
func (r *Rand) Normal(mu, sigma float64) float64 {
	n := distuv.Normal{Mu: mu, Sigma: sigma, Src: r.src}
	return n.Rand()
}

// Poisson returns a draw from Poisson(lambda). Non-positive rates yield 0.
func (r *Rand) Poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: lambda, Src: r.src}
	return int(p.Rand())
}

// Weighted returns an index drawn from the categorical distribution given by
// weights. Weights must be non-negative and sum to roughly 1; the last index
// absorbs any rounding remainder.
func (r *Rand) Weighted(weights []float64) int {
	u := r.src.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(weights) - 1
}
