package simulation

import (
	"math/rand/v2"
	"sync"
)

// Noise supplies zero-mean random perturbations.
type Noise interface {
	// Normal returns a draw from N(0, stddev²).
	Normal(stddev float64) float64
}

// GaussianNoise is a seeded normal source, safe for concurrent use.
type GaussianNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGaussianNoise returns a source that yields the same sequence for the same seed.
func NewGaussianNoise(seed uint64) *GaussianNoise {
	return &GaussianNoise{rng: rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))}
}

func (g *GaussianNoise) Normal(stddev float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.NormFloat64() * stddev
}

// ZeroNoise disables randomness.
type ZeroNoise struct{}

func (ZeroNoise) Normal(float64) float64 { return 0 }
