package cat

import (
	"fmt"
	"math/rand"

	"github.com/abhisek/cdcat/internal/itembank"
	"github.com/abhisek/cdcat/internal/npc"
	"github.com/abhisek/cdcat/internal/patterns"
)

// NPSession runs the nonparametric adaptive loop for one examinee.
// Item selection works by progressive pool reduction: the first K
// steps target one attribute each, after which items are chosen to
// discriminate between the best and second-best candidate patterns
// from the Hamming-loss ranking.
type NPSession struct {
	bank       *itembank.Bank
	space      *patterns.Space
	classifier *npc.Classifier
	rng        *rand.Rand
	examinee   int

	maxItems    int
	fixedLength bool
	cutoff      float64
	pseudoPost  bool
	weighting   npc.Weighting

	pool         []int
	administered []int
	responses    []int
	steps        []TraceStep
	ranked       []npc.Ranked
	done         bool
}

// NewNPSession builds a nonparametric session for one examinee.
func NewNPSession(bank *itembank.Bank, cfg Config, examinee int, rng *rand.Rand) (*NPSession, error) {
	space, err := patterns.New(bank.K())
	if err != nil {
		return nil, err
	}
	classifier, err := npc.NewClassifier(space, cfg.NP.Gate)
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

	return &NPSession{
		bank:        bank,
		space:       space,
		classifier:  classifier,
		rng:         rng,
		examinee:    examinee,
		maxItems:    maxItems,
		fixedLength: cfg.FixedLength,
		cutoff:      cfg.PrecisionCutoff,
		pseudoPost:  cfg.NP.PseudoPosterior,
		weighting:   cfg.NP.Weighting,
		pool:        pool,
	}, nil
}

// Done reports whether the session has terminated.
func (s *NPSession) Done() bool {
	return s.done
}

// Step administers one item and reclassifies.
func (s *NPSession) Step(row []int) error {
	if s.done {
		return fmt.Errorf("cat: step on terminated session")
	}
	if len(row) != s.bank.J() {
		return fmt.Errorf("cat: response row has %d items, bank has %d", len(row), s.bank.J())
	}

	var pick int
	var err error
	step := len(s.administered)
	if step < s.bank.K() {
		pick, err = s.pickAttributeItem(step)
	} else {
		pick, err = s.pickDiscriminatingItem()
	}
	if err != nil {
		return fmt.Errorf("step %d: %w", step+1, err)
	}

	item := s.pool[pick]
	s.pool = append(s.pool[:pick], s.pool[pick+1:]...)
	s.administered = append(s.administered, item)

	resp := row[item]
	if resp != 0 && resp != 1 {
		return fmt.Errorf("cat: item %d response is %d, want 0 or 1", item+1, resp)
	}
	s.responses = append(s.responses, resp)

	s.ranked, err = s.classifier.Classify(s.responses, s.bank.QRows(s.administered), s.rng)
	if err != nil {
		return fmt.Errorf("step %d: %w", len(s.administered), err)
	}

	ts := TraceStep{
		Step:     len(s.administered),
		Item:     item + 1,
		QRow:     s.bank.Q[item],
		Response: resp,
	}
	best := s.ranked[0]
	ts.BestLabel = s.space.Pattern(best.Index).Label()
	ts.BestLoss = best.Loss
	ts.Mastery = append([]int(nil), s.space.Pattern(best.Index)...)
	if len(s.ranked) > 1 {
		second := s.ranked[1]
		ts.SecondLabel = s.space.Pattern(second.Index).Label()
		ts.SecondLoss = second.Loss
	}

	var pp []float64
	if s.pseudoPost {
		pp, err = s.classifier.PseudoPosterior(s.ranked, s.weighting)
		if err != nil {
			return fmt.Errorf("step %d: %w", len(s.administered), err)
		}
		ts.PseudoPost = pp
	}
	s.steps = append(s.steps, ts)

	if len(s.administered) >= s.maxItems {
		s.done = true
	} else if s.pseudoPost && !s.fixedLength && len(s.administered) >= s.bank.K() && s.allPrecise(pp) {
		s.done = true
	}
	return nil
}

// pickAttributeItem selects the step-th single-attribute item: an item
// whose Q-row is exactly the unit row for the targeted attribute, or,
// when the pool has none, an item requiring the attribute with as few
// extra attributes as possible. Ties break uniformly at random.
func (s *NPSession) pickAttributeItem(attr int) (int, error) {
	bestExtra := -1
	var candidates []int
	for i, j := range s.pool {
		qrow := s.bank.Q[j]
		if qrow[attr] != 1 {
			continue
		}
		extra := 0
		for a, v := range qrow {
			if a != attr && v == 1 {
				extra++
			}
		}
		switch {
		case bestExtra == -1 || extra < bestExtra:
			bestExtra = extra
			candidates = candidates[:0]
			candidates = append(candidates, i)
		case extra == bestExtra:
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no remaining item measures attribute %d", attr+1)
	}
	return candidates[s.rng.Intn(len(candidates))], nil
}

// pickDiscriminatingItem searches the pool in random order for an item
// whose gate evaluates differently under the best candidate pattern
// and the rank-r challenger, escalating r when no item separates the
// current pair.
func (s *NPSession) pickDiscriminatingItem() (int, error) {
	best := s.space.Pattern(s.ranked[0].Index)
	gate := s.classifier.Gate()

	order := s.rng.Perm(len(s.pool))
	for rank := 1; rank < len(s.ranked); rank++ {
		challenger := s.space.Pattern(s.ranked[rank].Index)
		for _, i := range order {
			qrow := s.bank.Q[s.pool[i]]
			if npc.IdealResponse(best, qrow, gate) != npc.IdealResponse(challenger, qrow, gate) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("no remaining item discriminates among %d candidate patterns", len(s.ranked))
}

// allPrecise reports whether every attribute's pseudo-posterior,
// reflected around 0.5 for below-chance values, meets the cutoff.
func (s *NPSession) allPrecise(pp []float64) bool {
	for _, p := range pp {
		if p < 0.5 {
			p = 1 - p
		}
		if p < s.cutoff {
			return false
		}
	}
	return true
}

// Run drives the session to termination and returns the result.
func (s *NPSession) Run(row []int) (*Result, error) {
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
