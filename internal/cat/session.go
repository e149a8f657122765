// Package cat orchestrates the adaptive-testing loops: per-examinee
// sessions (parametric and nonparametric) and the parallel batch
// runner over a response matrix.
package cat

import (
	"fmt"
	"math/rand"

	"github.com/abhisek/cdcat/internal/itembank"
	"github.com/abhisek/cdcat/internal/patterns"
	"github.com/abhisek/cdcat/internal/posterior"
	"github.com/abhisek/cdcat/internal/scorer"
)

// Session runs the parametric adaptive loop for one examinee. It owns
// the remaining-item pool, the administered sequence, the accumulated
// responses, and the step trace; nothing is shared with other
// sessions except the read-only bank.
type Session struct {
	bank     *itembank.Bank
	space    *patterns.Space
	engine   *posterior.Engine
	scorer   scorer.Scorer
	rng      *rand.Rand
	examinee int

	maxItems    int
	fixedLength bool
	cutoff      float64

	pool         []int
	administered []int
	responses    []int
	steps        []TraceStep
	done         bool

	// lastPosterior is the posterior after the most recent update;
	// nil before the first item, in which case scoring uses the prior.
	lastPosterior []float64
}

// NewSession builds a session for one examinee. rng must be the
// examinee-derived source so randomized strategies reproduce.
func NewSession(bank *itembank.Bank, cfg Config, examinee int, rng *rand.Rand) (*Session, error) {
	space, err := patterns.New(bank.K())
	if err != nil {
		return nil, err
	}
	engine, err := posterior.NewEngine(space, cfg.sessionPrior())
	if err != nil {
		return nil, err
	}
	sc, err := scorer.New(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	pool := make([]int, bank.J())
	for j := range pool {
		pool[j] = j
	}
	maxItems := cfg.MaxItems
	if maxItems > bank.J() {
		maxItems = bank.J()
	}

	return &Session{
		bank:        bank,
		space:       space,
		engine:      engine,
		scorer:      sc,
		rng:         rng,
		examinee:    examinee,
		maxItems:    maxItems,
		fixedLength: cfg.FixedLength,
		cutoff:      cfg.PrecisionCutoff,
		pool:        pool,
	}, nil
}

// Done reports whether the session has terminated.
func (s *Session) Done() bool {
	return s.done
}

// Administered returns the administered item indices (0-based, in
// administration order).
func (s *Session) Administered() []int {
	return s.administered
}

// Step administers one item: scores the remaining pool, selects the
// max-score item, records its response from the examinee's row,
// updates the posterior over all responses so far, appends a trace
// step, and evaluates termination.
func (s *Session) Step(row []int) error {
	if s.done {
		return fmt.Errorf("cat: step on terminated session")
	}
	if len(row) != s.bank.J() {
		return fmt.Errorf("cat: response row has %d items, bank has %d", len(row), s.bank.J())
	}

	scores := s.scorer.Score(s.bank.ProbRows(s.pool), s.currentPosterior(), s.rng)
	pick := scorer.ArgMax(scores)
	item := s.pool[pick]

	// Remove from pool; the pool keeps its stable order so the
	// lowest-index tie-break stays deterministic.
	s.pool = append(s.pool[:pick], s.pool[pick+1:]...)
	s.administered = append(s.administered, item)

	resp := row[item]
	if resp != 0 && resp != 1 {
		return fmt.Errorf("cat: item %d response is %d, want 0 or 1", item+1, resp)
	}
	s.responses = append(s.responses, resp)

	est, err := s.engine.Update(s.responses, s.bank.ProbRows(s.administered))
	if err != nil {
		return fmt.Errorf("step %d: %w", len(s.administered), err)
	}
	s.lastPosterior = est.Posterior

	s.steps = append(s.steps, TraceStep{
		Step:     len(s.administered),
		Item:     item + 1,
		QRow:     s.bank.Q[item],
		Response: resp,
		MLLabel:  s.space.Pattern(est.MLIndex).Label(),
		MLTies:   est.MLTies,
		MAPLabel: s.space.Pattern(est.MAPIndex).Label(),
		MAPTies:  est.MAPTies,
		MAPProb:  est.MAPProb,
		EAP:      est.EAP,
		Mastery:  est.Mastery,
	})

	if len(s.administered) >= s.maxItems {
		s.done = true
	} else if !s.fixedLength && est.MAPProb >= s.cutoff {
		s.done = true
	}
	return nil
}

func (s *Session) currentPosterior() []float64 {
	if s.lastPosterior == nil {
		return s.engine.Prior()
	}
	return s.lastPosterior
}

// Run drives the session to termination against the examinee's full
// response row and returns the result.
func (s *Session) Run(row []int) (*Result, error) {
	for !s.done {
		if err := s.Step(row); err != nil {
			return nil, err
		}
	}
	items := make([]int, len(s.administered))
	for i, j := range s.administered {
		items[i] = j + 1
	}
	return &Result{
		Examinee: s.examinee,
		Items:    items,
		Steps:    s.steps,
	}, nil
}
