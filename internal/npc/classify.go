// Package npc implements the nonparametric classifier: Hamming-
// distance loss between observed responses and the ideal responses
// implied by each candidate pattern under a conjunctive or disjunctive
// gate, plus pseudo-posterior mastery probabilities derived from the
// ranked loss list.
package npc

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/abhisek/cdcat/internal/patterns"
)

// Gate is the rule combining an item's required attributes into an
// expected response.
type Gate string

const (
	// GateAND expects a correct response only when every required
	// attribute is mastered.
	GateAND Gate = "AND"
	// GateOR expects a correct response when at least one required
	// attribute is mastered.
	GateOR Gate = "OR"
)

// Weighting selects the rank-weight scheme for pseudo-posteriors.
type Weighting string

const (
	// WeightPow2 weights rank r by 1/2^r.
	WeightPow2 Weighting = "pow2"
	// WeightExp weights rank r by e^-r.
	WeightExp Weighting = "exp"
)

// IdealResponse evaluates the gate for one item: the response a
// examinee with the given pattern would produce on an item requiring
// the attributes in qrow.
func IdealResponse(p patterns.Pattern, qrow []int, gate Gate) int {
	switch gate {
	case GateOR:
		for a, req := range qrow {
			if req == 1 && p[a] == 1 {
				return 1
			}
		}
		return 0
	default: // AND
		for a, req := range qrow {
			if req == 1 && p[a] == 0 {
				return 0
			}
		}
		return 1
	}
}

// Ranked is one entry of the loss ranking.
type Ranked struct {
	// Index is the pattern's canonical index in the space.
	Index int
	// Loss is the Hamming distance between the pattern's ideal
	// responses and the observed responses.
	Loss int
}

// Classifier ranks candidate patterns by classification loss.
type Classifier struct {
	space *patterns.Space
	gate  Gate
}

// NewClassifier creates a classifier over the given space.
func NewClassifier(space *patterns.Space, gate Gate) (*Classifier, error) {
	switch gate {
	case GateAND, GateOR:
	default:
		return nil, fmt.Errorf("npc: unknown gate %q (valid: AND, OR)", gate)
	}
	return &Classifier{space: space, gate: gate}, nil
}

// Gate returns the classifier's gate type.
func (c *Classifier) Gate() Gate {
	return c.gate
}

// Losses computes, for every pattern in canonical order, the Hamming
// distance between the pattern's ideal response vector and the
// observed responses. qrows[j] is the Q-matrix row of administered
// item j.
func (c *Classifier) Losses(responses []int, qrows [][]int) ([]int, error) {
	if len(responses) != len(qrows) {
		return nil, fmt.Errorf("npc: %d responses but %d Q-rows", len(responses), len(qrows))
	}
	k := c.space.K()
	for j, row := range qrows {
		if len(row) != k {
			return nil, fmt.Errorf("npc: Q-row %d has %d attributes, space has %d", j, len(row), k)
		}
		if responses[j] != 0 && responses[j] != 1 {
			return nil, fmt.Errorf("npc: response %d is %d, want 0 or 1", j, responses[j])
		}
	}

	losses := make([]int, c.space.Size())
	for i, p := range c.space.Patterns() {
		loss := 0
		for j, row := range qrows {
			if IdealResponse(p, row, c.gate) != responses[j] {
				loss++
			}
		}
		losses[i] = loss
	}
	return losses, nil
}

// Rank orders all patterns by ascending loss. Equal-loss patterns are
// ordered by their attribute values compared column by column in a
// random column permutation drawn from rng, so the tie-break is
// randomized but reproducible under a fixed seed.
func (c *Classifier) Rank(losses []int, rng *rand.Rand) []Ranked {
	cols := rng.Perm(c.space.K())

	ranked := make([]Ranked, len(losses))
	for i, loss := range losses {
		ranked[i] = Ranked{Index: i, Loss: loss}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		ra, rb := ranked[a], ranked[b]
		if ra.Loss != rb.Loss {
			return ra.Loss < rb.Loss
		}
		pa := c.space.Pattern(ra.Index)
		pb := c.space.Pattern(rb.Index)
		for _, col := range cols {
			if pa[col] != pb[col] {
				return pa[col] < pb[col]
			}
		}
		return false
	})
	return ranked
}

// Classify computes losses and returns the full ranking in one step.
func (c *Classifier) Classify(responses []int, qrows [][]int, rng *rand.Rand) ([]Ranked, error) {
	losses, err := c.Losses(responses, qrows)
	if err != nil {
		return nil, err
	}
	return c.Rank(losses, rng), nil
}

// PseudoPosterior derives per-attribute mastery probabilities from a
// loss ranking: each pattern receives a weight decaying with its rank
// position, and the probability of mastery for attribute k is the
// weight mass of the patterns with attribute k set, normalized over
// all patterns.
func (c *Classifier) PseudoPosterior(ranked []Ranked, w Weighting) ([]float64, error) {
	k := c.space.K()
	num := make([]float64, k)
	var total float64

	for r, entry := range ranked {
		var weight float64
		switch w {
		case WeightExp:
			weight = math.Exp(-float64(r))
		case WeightPow2:
			weight = math.Pow(2, -float64(r))
		default:
			return nil, fmt.Errorf("npc: unknown weighting %q (valid: pow2, exp)", w)
		}
		total += weight
		p := c.space.Pattern(entry.Index)
		for a, v := range p {
			if v == 1 {
				num[a] += weight
			}
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("npc: pseudo-posterior weights sum to zero over %d patterns", len(ranked))
	}
	for a := range num {
		num[a] /= total
	}
	return num, nil
}
