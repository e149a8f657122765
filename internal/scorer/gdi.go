package scorer

import "math/rand"

// GDI is the generalized discrimination index: for each item, the
// posterior-weighted variance of its per-pattern correct-response
// probabilities. Items whose response probability varies most across
// the plausible patterns score highest.
type GDI struct{}

func (s *GDI) Name() string { return "GDI" }

func (s *GDI) Score(probs [][]float64, post []float64, _ *rand.Rand) []float64 {
	scores := make([]float64, len(probs))
	for j, row := range probs {
		var mean float64
		for l, p := range row {
			mean += post[l] * p
		}
		var v float64
		for l, p := range row {
			d := p - mean
			v += post[l] * d * d
		}
		scores[j] = v
	}
	return scores
}
