package commands

import (
	"math/rand/v2"
	"sync"
)

// Picker chooses one flavor line. Tests inject a deterministic one.
type Picker interface {
	Pick(options []string) string
}

// RandPicker picks uniformly from a seeded source
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandPicker creates a picker; the same seed yields the same sequence
func NewRandPicker(seed uint64) *RandPicker {
	return &RandPicker{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return options[p.rng.IntN(len(options))]
}

// FirstPicker always picks the first option
type FirstPicker struct{}

func (FirstPicker) Pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

// NoFlavor disables flavor lines
type NoFlavor struct{}

func (NoFlavor) Pick([]string) string { return "" }
