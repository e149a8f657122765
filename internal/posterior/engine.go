// Package posterior maintains a discrete Bayesian posterior over
// attribute-mastery patterns and derives point estimates from it.
package posterior

import (
	"errors"
	"fmt"
	"math"

	"github.com/abhisek/cdcat/internal/patterns"
)

// ErrDegenerate is returned when every pattern has zero unnormalized
// posterior mass. This indicates inconsistent inputs (e.g. an observed
// response with probability 0 under every pattern) and is surfaced to
// the caller rather than silently corrected.
var ErrDegenerate = errors.New("posterior: zero total mass")

// MasteryThreshold is the EAP cutoff above which an attribute is
// called mastered.
const MasteryThreshold = 0.5

// Estimate bundles the point estimates derived from one update.
type Estimate struct {
	// Posterior is the normalized distribution over patterns, in the
	// space's canonical order.
	Posterior []float64

	// MLIndex is the maximum-likelihood pattern index; MLTies counts
	// how many patterns share the maximum likelihood.
	MLIndex int
	MLTies  int

	// MAPIndex is the maximum-a-posteriori pattern index; MAPTies
	// counts how many patterns share the maximum posterior mass.
	MAPIndex int
	MAPTies  int

	// MAPProb is the posterior mass of the MAP pattern, used by the
	// fixed-precision stopping rule.
	MAPProb float64

	// EAP holds per-attribute marginal mastery probabilities.
	EAP []float64

	// Mastery is EAP thresholded at MasteryThreshold.
	Mastery []int
}

// Engine computes posteriors over a pattern space from a fixed prior.
// The prior is never mutated; each Update recomputes the likelihood of
// the full accumulated response vector.
type Engine struct {
	space *patterns.Space
	prior []float64
}

// NewEngine creates an engine over the given space. A nil prior means
// uniform 1/L. A supplied prior must have one entry per pattern and sum
// to 1 within tolerance.
func NewEngine(space *patterns.Space, prior []float64) (*Engine, error) {
	size := space.Size()
	if prior == nil {
		prior = make([]float64, size)
		for i := range prior {
			prior[i] = 1.0 / float64(size)
		}
	} else {
		if len(prior) != size {
			return nil, fmt.Errorf("posterior: prior has %d entries, space has %d patterns", len(prior), size)
		}
		var sum float64
		for i, p := range prior {
			if p < 0 {
				return nil, fmt.Errorf("posterior: prior entry %d is negative", i)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return nil, fmt.Errorf("posterior: prior sums to %g, want 1", sum)
		}
		prior = append([]float64(nil), prior...)
	}
	return &Engine{space: space, prior: prior}, nil
}

// Space returns the pattern space the engine operates over.
func (e *Engine) Space() *patterns.Space {
	return e.space
}

// Prior returns a copy of the prior distribution.
func (e *Engine) Prior() []float64 {
	return append([]float64(nil), e.prior...)
}

// Likelihood computes, for every pattern, the Bernoulli likelihood of
// the accumulated responses. probs[j][l] is the probability of a
// correct response to administered item j under pattern l; responses[j]
// is the observed 0/1 response to that item.
func (e *Engine) Likelihood(responses []int, probs [][]float64) ([]float64, error) {
	size := e.space.Size()
	if len(responses) != len(probs) {
		return nil, fmt.Errorf("posterior: %d responses but %d probability rows", len(responses), len(probs))
	}
	lik := make([]float64, size)
	for l := range lik {
		lik[l] = 1.0
	}
	for j, r := range responses {
		if r != 0 && r != 1 {
			return nil, fmt.Errorf("posterior: response %d is %d, want 0 or 1", j, r)
		}
		row := probs[j]
		if len(row) != size {
			return nil, fmt.Errorf("posterior: probability row %d has %d entries, space has %d patterns", j, len(row), size)
		}
		for l := 0; l < size; l++ {
			p := row[l]
			if r == 1 {
				lik[l] *= p
			} else {
				lik[l] *= 1 - p
			}
		}
	}
	return lik, nil
}

// Update recomputes the posterior from the prior and the full
// accumulated response vector, and returns the derived estimates.
func (e *Engine) Update(responses []int, probs [][]float64) (*Estimate, error) {
	lik, err := e.Likelihood(responses, probs)
	if err != nil {
		return nil, err
	}

	size := e.space.Size()
	post := make([]float64, size)
	var total float64
	for l := 0; l < size; l++ {
		post[l] = lik[l] * e.prior[l]
		total += post[l]
	}
	if total == 0 {
		return nil, fmt.Errorf("after %d responses: %w", len(responses), ErrDegenerate)
	}
	for l := range post {
		post[l] /= total
	}

	mlIdx, mlTies := argmax(lik)
	mapIdx, mapTies := argmax(post)

	eap, err := e.space.Marginals(post)
	if err != nil {
		return nil, err
	}
	mastery := make([]int, len(eap))
	for a, p := range eap {
		if p > MasteryThreshold {
			mastery[a] = 1
		}
	}

	return &Estimate{
		Posterior: post,
		MLIndex:   mlIdx,
		MLTies:    mlTies,
		MAPIndex:  mapIdx,
		MAPTies:   mapTies,
		MAPProb:   post[mapIdx],
		EAP:       eap,
		Mastery:   mastery,
	}, nil
}

// argmax returns the index of the maximum value and how many entries
// tie for the maximum. Ties resolve to the lowest index.
func argmax(xs []float64) (int, int) {
	best := 0
	ties := 1
	for i := 1; i < len(xs); i++ {
		switch {
		case xs[i] > xs[best]:
			best = i
			ties = 1
		case xs[i] == xs[best]:
			ties++
		}
	}
	return best, ties
}
