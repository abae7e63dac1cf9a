// Package selector picks reproducible pseudo-random subsets.
//
// The slideshow behind an invitation cover shows a handful of photos drawn
// from a larger pool. Every guest opening the same invitation must see the
// same photos regardless of their personal link, so the draw is seeded by
// the invitation identifier only and uses no clock or global random source.
package selector

import "github.com/cespare/xxhash/v2"

// Numerical Recipes LCG constants (mod 2^32).
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
)

// lcg is a 32-bit linear congruential generator. Its output depends only on
// the seed, which is what makes Pick reproducible across processes and Go
// versions.
type lcg struct {
	state uint32
}

func newLCG(seed string) *lcg {
	h := xxhash.Sum64String(seed)
	return &lcg{state: uint32(h) ^ uint32(h>>32)}
}

func (g *lcg) next() uint32 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// intn returns a value in [0, n). n must be positive.
func (g *lcg) intn(n int) int {
	// The high bits of an LCG are the well-mixed ones.
	return int((uint64(g.next()) * uint64(n)) >> 32)
}

// Pick returns min(count, len(items)) elements of items in a pseudo-random
// order determined entirely by seed.
//
// Identical (items, seed, count) always yield an identical result. Items are
// never fabricated; duplicates in the input may appear in the output. A
// negative count is treated as zero. The input slice is not modified.
func Pick[T any](items []T, seed string, count int) []T {
	if count <= 0 || len(items) == 0 {
		return []T{}
	}
	if count > len(items) {
		count = len(items)
	}

	shuffled := make([]T, len(items))
	copy(shuffled, items)

	g := newLCG(seed)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := g.intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled[:count:count]
}
