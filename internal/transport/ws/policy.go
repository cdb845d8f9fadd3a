package ws

import (
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"
)

// RandomPolicy samples every action component uniformly from [-1, 1].
type RandomPolicy struct {
	mu   sync.Mutex
	dist distuv.Uniform
}

func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{dist: distuv.Uniform{Min: -1, Max: 1, Src: rand.NewPCG(seed, seed+1)}}
}

func (p *RandomPolicy) Act([]float64) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return []float64{p.dist.Rand(), p.dist.Rand(), p.dist.Rand()}
}

// ConstantPolicy always returns the same action.
type ConstantPolicy [3]float64

func (c ConstantPolicy) Act([]float64) []float64 { return []float64{c[0], c[1], c[2]} }
