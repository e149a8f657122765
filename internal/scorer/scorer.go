// Package scorer ranks candidate items by expected diagnostic value
// under the current posterior. Each strategy is a Scorer; the set is
// closed and selected once at configuration time.
package scorer

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Scorer scores not-yet-administered items against the current
// posterior. probs[j][l] is the probability of a correct response to
// remaining item j under pattern l; post is the posterior over
// patterns. Higher score means more informative. Strategies with
// randomized behavior draw from rng; deterministic ones ignore it.
type Scorer interface {
	Name() string
	Score(probs [][]float64, post []float64, rng *rand.Rand) []float64
}

// Strategies lists the recognized strategy names.
var Strategies = []string{"GDI", "JSD", "PWKL", "MPWKL", "random"}

// New returns the scorer for a strategy name. Matching is
// case-insensitive.
func New(name string) (Scorer, error) {
	switch strings.ToUpper(name) {
	case "GDI":
		return &GDI{}, nil
	case "JSD":
		return &JSD{}, nil
	case "PWKL":
		return &PWKL{}, nil
	case "MPWKL":
		return &MPWKL{}, nil
	case "RANDOM":
		return &Random{}, nil
	}
	return nil, fmt.Errorf("scorer: unknown strategy %q (valid: %s)", name, strings.Join(Strategies, ", "))
}

// ArgMax returns the index of the highest score. Ties resolve to the
// lowest index, matching the stable order of the score vector.
func ArgMax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// probEps keeps Bernoulli probabilities away from 0 and 1 so the
// KL and entropy terms stay finite.
const probEps = 1e-10

func clampProb(p float64) float64 {
	if p < probEps {
		return probEps
	}
	if p > 1-probEps {
		return 1 - probEps
	}
	return p
}

// bernoulliKL is KL(Bern(p) || Bern(q)).
func bernoulliKL(p, q float64) float64 {
	p = clampProb(p)
	q = clampProb(q)
	return p*math.Log(p/q) + (1-p)*math.Log((1-p)/(1-q))
}

// bernoulliEntropy is the entropy of Bern(p) in nats.
func bernoulliEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}
