package scorer

import "math/rand"

// Random assigns each item an independent uniform(0,1) score. It is
// the no-information baseline against which the informative strategies
// are compared in simulation studies.
type Random struct{}

func (s *Random) Name() string { return "random" }

func (s *Random) Score(probs [][]float64, _ []float64, rng *rand.Rand) []float64 {
	scores := make([]float64, len(probs))
	for j := range scores {
		scores[j] = rng.Float64()
	}
	return scores
}
