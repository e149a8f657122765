package scorer

import "math/rand"

// PWKL is the posterior-weighted Kullback–Leibler index. A reference
// point-estimate pattern is drawn uniformly at random from the pattern
// space on every call, and each item is scored by the posterior-
// weighted KL divergence between the reference pattern's response
// distribution and every other pattern's. The uniform draw (rather
// than the posterior mode) is a deliberate randomized tie-break,
// preserved for compatibility with the original procedure.
type PWKL struct{}

func (s *PWKL) Name() string { return "PWKL" }

func (s *PWKL) Score(probs [][]float64, post []float64, rng *rand.Rand) []float64 {
	scores := make([]float64, len(probs))
	if len(post) == 0 {
		return scores
	}
	ref := rng.Intn(len(post))
	for j, row := range probs {
		var sum float64
		for l, p := range row {
			sum += post[l] * bernoulliKL(row[ref], p)
		}
		scores[j] = sum
	}
	return scores
}

// MPWKL is the modified PWKL: instead of a single sampled reference
// pattern, every pattern serves as reference, weighted by its
// posterior mass. The result is deterministic given the posterior.
type MPWKL struct{}

func (s *MPWKL) Name() string { return "MPWKL" }

func (s *MPWKL) Score(probs [][]float64, post []float64, _ *rand.Rand) []float64 {
	scores := make([]float64, len(probs))
	for j, row := range probs {
		var sum float64
		for e, we := range post {
			if we == 0 {
				continue
			}
			var inner float64
			for l, p := range row {
				inner += post[l] * bernoulliKL(row[e], p)
			}
			sum += we * inner
		}
		scores[j] = sum
	}
	return scores
}
