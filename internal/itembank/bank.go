// Package itembank holds the calibrated item bank consumed by the
// adaptive loops: the Q-matrix, the per-item per-pattern correct-
// response probabilities, and the pre-collected response matrix.
package itembank

import "fmt"

// Bank is a calibrated item bank. Q is the J×K matrix of required
// attributes. Probs is the J×L matrix of correct-response
// probabilities per latent class; it is nil in nonparametric mode,
// which needs only the Q-matrix.
type Bank struct {
	Q     [][]int
	Probs [][]float64
}

// New validates and builds a bank. Probability entries are clamped to
// [0,1]; structural problems (ragged rows, non-binary Q entries, a
// probability column count that is not 2^K) are errors.
func New(q [][]int, probs [][]float64) (*Bank, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("itembank: empty Q-matrix")
	}
	k := len(q[0])
	if k == 0 {
		return nil, fmt.Errorf("itembank: Q-matrix has no attribute columns")
	}
	for j, row := range q {
		if len(row) != k {
			return nil, fmt.Errorf("itembank: Q-row %d has %d columns, want %d", j, len(row), k)
		}
		for a, v := range row {
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("itembank: Q[%d][%d] = %d, want 0 or 1", j, a, v)
			}
		}
	}

	b := &Bank{Q: q}
	if probs != nil {
		if len(probs) != len(q) {
			return nil, fmt.Errorf("itembank: %d probability rows for %d items", len(probs), len(q))
		}
		l := 1 << k
		clamped := make([][]float64, len(probs))
		for j, row := range probs {
			if len(row) != l {
				return nil, fmt.Errorf("itembank: probability row %d has %d latent classes, want 2^%d = %d", j, len(row), k, l)
			}
			cr := make([]float64, l)
			for i, p := range row {
				switch {
				case p < 0:
					cr[i] = 0
				case p > 1:
					cr[i] = 1
				default:
					cr[i] = p
				}
			}
			clamped[j] = cr
		}
		b.Probs = clamped
	}
	return b, nil
}

// J returns the number of items.
func (b *Bank) J() int {
	return len(b.Q)
}

// K returns the number of attributes.
func (b *Bank) K() int {
	return len(b.Q[0])
}

// L returns the number of latent classes, 2^K.
func (b *Bank) L() int {
	return 1 << b.K()
}

// Parametric reports whether the bank carries latent-class
// probabilities.
func (b *Bank) Parametric() bool {
	return b.Probs != nil
}

// ProbRows gathers the probability rows for a set of item indices, in
// order. Used to restrict the bank to administered or remaining items.
func (b *Bank) ProbRows(items []int) [][]float64 {
	rows := make([][]float64, len(items))
	for i, j := range items {
		rows[i] = b.Probs[j]
	}
	return rows
}

// QRows gathers Q-matrix rows for a set of item indices, in order.
func (b *Bank) QRows(items []int) [][]int {
	rows := make([][]int, len(items))
	for i, j := range items {
		rows[i] = b.Q[j]
	}
	return rows
}

// Responses is the N×J matrix of pre-collected 0/1 responses, one row
// per examinee. The adaptive loops replay sub-sequences of these
// responses; this is offline simulated CAT, not live administration.
type Responses [][]int

// NewResponses validates a response matrix against an item count.
func NewResponses(rows [][]int, j int) (Responses, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("itembank: empty response matrix")
	}
	for n, row := range rows {
		if len(row) != j {
			return nil, fmt.Errorf("itembank: response row %d has %d items, want %d", n, len(row), j)
		}
		for i, v := range row {
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("itembank: response[%d][%d] = %d, want 0 or 1", n, i, v)
			}
		}
	}
	return Responses(rows), nil
}

// N returns the number of examinees.
func (r Responses) N() int {
	return len(r)
}
