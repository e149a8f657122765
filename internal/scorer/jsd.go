package scorer

import "math/rand"

// JSD scores each item by the Jensen–Shannon divergence of the
// response distributions it induces across posterior-weighted pattern
// groups: the entropy of the posterior-mixture response distribution
// minus the posterior-weighted mean of the per-pattern entropies. This
// equals the mutual information between the item response and the
// latent pattern under the current posterior.
type JSD struct{}

func (s *JSD) Name() string { return "JSD" }

func (s *JSD) Score(probs [][]float64, post []float64, _ *rand.Rand) []float64 {
	scores := make([]float64, len(probs))
	for j, row := range probs {
		var mix, inner float64
		for l, p := range row {
			mix += post[l] * p
			inner += post[l] * bernoulliEntropy(p)
		}
		scores[j] = bernoulliEntropy(mix) - inner
	}
	return scores
}
