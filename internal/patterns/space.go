package patterns

import (
	"fmt"
	"strings"
)

// Pattern is a binary attribute-mastery vector. Entry k is 1 when
// attribute k is mastered, 0 otherwise.
type Pattern []int

// Label renders the pattern as a compact string like "101".
func (p Pattern) Label() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, v := range p {
		if v == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}

// Equal reports whether two patterns have identical entries.
func (p Pattern) Equal(q Pattern) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Space holds the canonical enumeration of all 2^K attribute patterns
// with precomputed indices. The enumeration is binary counting order:
// index i maps to the K-bit big-endian representation of i, so index 0
// is the all-zero pattern and index 2^K-1 is all-mastery. Every
// component that indexes patterns by position shares this order.
type Space struct {
	k        int
	patterns []Pattern
	byLabel  map[string]int
}

// New enumerates the pattern space for k attributes.
func New(k int) (*Space, error) {
	if k < 1 {
		return nil, fmt.Errorf("pattern space: need at least 1 attribute, got %d", k)
	}
	if k > 20 {
		return nil, fmt.Errorf("pattern space: %d attributes would enumerate 2^%d patterns", k, k)
	}

	size := 1 << k
	s := &Space{
		k:        k,
		patterns: make([]Pattern, size),
		byLabel:  make(map[string]int, size),
	}
	for i := 0; i < size; i++ {
		p := make(Pattern, k)
		for a := 0; a < k; a++ {
			// Attribute 0 is the highest bit so labels read left to right.
			p[a] = (i >> (k - 1 - a)) & 1
		}
		s.patterns[i] = p
		s.byLabel[p.Label()] = i
	}
	return s, nil
}

// K returns the number of attributes.
func (s *Space) K() int {
	return s.k
}

// Size returns the number of patterns, 2^K.
func (s *Space) Size() int {
	return len(s.patterns)
}

// Pattern returns the pattern at index i. The returned slice is shared;
// callers must not mutate it.
func (s *Space) Pattern(i int) Pattern {
	return s.patterns[i]
}

// Patterns returns the full enumeration in canonical order.
func (s *Space) Patterns() []Pattern {
	return s.patterns
}

// Index returns the canonical index of a pattern.
func (s *Space) Index(p Pattern) (int, error) {
	if len(p) != s.k {
		return 0, fmt.Errorf("pattern space: pattern has %d attributes, space has %d", len(p), s.k)
	}
	idx := 0
	for a, v := range p {
		if v != 0 && v != 1 {
			return 0, fmt.Errorf("pattern space: entry %d is %d, want 0 or 1", a, v)
		}
		if v == 1 {
			idx |= 1 << (s.k - 1 - a)
		}
	}
	return idx, nil
}

// IndexOf looks up a pattern by its string label.
func (s *Space) IndexOf(label string) (int, error) {
	idx, ok := s.byLabel[label]
	if !ok {
		return 0, fmt.Errorf("pattern space: unknown label %q", label)
	}
	return idx, nil
}

// Marginals computes per-attribute mastery probabilities from a
// distribution over patterns: for each attribute k, the sum of mass
// over all patterns with attribute k set.
func (s *Space) Marginals(dist []float64) ([]float64, error) {
	if len(dist) != len(s.patterns) {
		return nil, fmt.Errorf("pattern space: distribution has %d entries, space has %d patterns", len(dist), len(s.patterns))
	}
	m := make([]float64, s.k)
	for i, p := range s.patterns {
		for a, v := range p {
			if v == 1 {
				m[a] += dist[i]
			}
		}
	}
	return m, nil
}
