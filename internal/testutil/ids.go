package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator hands out numbered identifiers ("anon-0001", "anon-0002", ...).
//
// Unlike ids.FixedGenerator it never runs out, which suits scenario runs
// whose number of anonymous writes is not known up front.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator with the given prefix.
// An empty prefix uses "anon".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "anon"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
