package cat

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cdcat/internal/itembank"
)

// Runner executes one independent session per examinee over a response
// matrix. Sessions run in parallel bounded by Config.Workers; results
// are collected in examinee order regardless of completion order. A
// per-examinee failure is recorded in that examinee's result and never
// aborts the batch.
type Runner struct {
	bank      *itembank.Bank
	responses itembank.Responses
	cfg       Config

	// Warn receives user-visible warnings (policy substitutions).
	// Defaults to stderr.
	Warn io.Writer
}

// NewRunner validates the configuration against the bank and response
// matrix. Validation failures abort before any session starts. The
// one policy substitution is applied here: fixed-precision
// nonparametric mode without pseudo-posterior probabilities is not
// supported, so pseudo-posterior mode is enabled with a warning.
func NewRunner(bank *itembank.Bank, responses itembank.Responses, cfg Config) (*Runner, error) {
	if err := cfg.Validate(bank); err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("cat: empty response matrix")
	}
	for n, row := range responses {
		if len(row) != bank.J() {
			return nil, fmt.Errorf("cat: response row %d has %d items, bank has %d", n, len(row), bank.J())
		}
	}

	r := &Runner{bank: bank, responses: responses, cfg: cfg, Warn: os.Stderr}
	if cfg.Mode == ModeNonparametric && !cfg.FixedLength && !cfg.NP.PseudoPosterior {
		fmt.Fprintln(r.Warn, "warning: fixed-precision nonparametric mode requires pseudo-posterior probabilities; enabling them")
		r.cfg.NP.PseudoPosterior = true
	}
	return r, nil
}

// Config returns the resolved configuration, including any policy
// substitution, for provenance.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes the batch. The returned error reflects only context
// cancellation; per-examinee failures live in the individual results.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	n := r.responses.N()
	results := make([]Result, n)

	var completed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.runOne(i)
			if r.cfg.Progress {
				done := completed.Add(1)
				fmt.Fprintf(r.Warn, "\rexaminee %d/%d", done, n)
				if done == int64(n) {
					fmt.Fprintln(r.Warn)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &RunResult{Config: r.cfg, Results: results}, nil
}

// runOne executes a single examinee's session with its derived seed.
func (r *Runner) runOne(i int) Result {
	rng := rand.New(rand.NewSource(r.cfg.Seed + int64(i)))
	row := r.responses[i]

	var res *Result
	var err error
	switch r.cfg.Mode {
	case ModeNonparametric:
		var s *NPSession
		s, err = NewNPSession(r.bank, r.cfg, i, rng)
		if err == nil {
			res, err = s.Run(row)
		}
	default:
		var s *Session
		s, err = NewSession(r.bank, r.cfg, i, rng)
		if err == nil {
			res, err = s.Run(row)
		}
	}
	if err != nil {
		return Result{Examinee: i, Err: fmt.Sprintf("examinee %d: %v", i+1, err)}
	}
	return *res
}
