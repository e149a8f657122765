package cat

import (
	"fmt"
	"math"
	"runtime"

	"github.com/abhisek/cdcat/internal/itembank"
	"github.com/abhisek/cdcat/internal/npc"
	"github.com/abhisek/cdcat/internal/scorer"
)

// Mode selects the adaptive procedure.
type Mode string

const (
	// ModeParametric runs the posterior-based loop over latent-class
	// probabilities.
	ModeParametric Mode = "parametric"
	// ModeNonparametric runs the Hamming-distance classification loop.
	ModeNonparametric Mode = "nonparametric"
)

// NPConfig is the nonparametric-mode sub-configuration.
type NPConfig struct {
	// Gate is the response rule: AND (conjunctive) or OR (disjunctive).
	Gate npc.Gate `yaml:"gate"`

	// PseudoPosterior enables per-attribute pseudo-posterior
	// probabilities from the ranked loss list.
	PseudoPosterior bool `yaml:"pseudo_posterior"`

	// Weighting is the rank-weight scheme: pow2 or exp.
	Weighting npc.Weighting `yaml:"weighting"`
}

// Config is the full simulation configuration. Zero values are filled
// by Default; Validate checks it against a bank before any session
// starts.
type Config struct {
	// Mode selects parametric or nonparametric operation.
	Mode Mode `yaml:"mode"`

	// Strategy names the item-selection scorer (parametric mode only).
	Strategy string `yaml:"strategy"`

	// MaxItems caps the number of administered items per examinee.
	// The cap applies in every stopping mode.
	MaxItems int `yaml:"max_items"`

	// FixedLength forces exactly MaxItems administrations. When false
	// the loop may stop early once PrecisionCutoff is met.
	FixedLength bool `yaml:"fixed_length"`

	// Prior is the distribution over the 2^K patterns used as the
	// Bayesian prior. Empty means uniform.
	Prior []float64 `yaml:"prior"`

	// InitialWeights optionally overrides Prior as the starting
	// distribution of each examinee's session.
	InitialWeights []float64 `yaml:"initial_weights"`

	// PrecisionCutoff is the MAP-probability (or reflected pseudo-
	// posterior) threshold for early stopping.
	PrecisionCutoff float64 `yaml:"precision_cutoff"`

	// Seed is the base random seed. Examinee i derives seed Seed+i so
	// results are reproducible regardless of worker scheduling.
	Seed int64 `yaml:"seed"`

	// Workers bounds batch parallelism. Must not exceed the available
	// execution units.
	Workers int `yaml:"workers"`

	// Progress enables a stderr progress counter during a batch run.
	Progress bool `yaml:"progress"`

	// NP holds the nonparametric-mode sub-configuration.
	NP NPConfig `yaml:"np"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Mode:            ModeParametric,
		Strategy:        "GDI",
		MaxItems:        20,
		FixedLength:     true,
		PrecisionCutoff: 0.8,
		Seed:            1,
		Workers:         1,
		NP: NPConfig{
			Gate:      npc.GateAND,
			Weighting: npc.WeightPow2,
		},
	}
}

// Validate checks the configuration against a bank. All configuration
// errors fail the invocation before any session starts.
func (c *Config) Validate(bank *itembank.Bank) error {
	switch c.Mode {
	case ModeParametric, ModeNonparametric:
	default:
		return fmt.Errorf("config: unknown mode %q", c.Mode)
	}

	if c.Mode == ModeParametric {
		if !bank.Parametric() {
			return fmt.Errorf("config: parametric mode requires latent-class probabilities in the bank")
		}
		if _, err := scorer.New(c.Strategy); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	} else {
		switch c.NP.Gate {
		case npc.GateAND, npc.GateOR:
		default:
			return fmt.Errorf("config: unknown gate %q", c.NP.Gate)
		}
		switch c.NP.Weighting {
		case npc.WeightPow2, npc.WeightExp:
		default:
			return fmt.Errorf("config: unknown weighting %q", c.NP.Weighting)
		}
		if c.MaxItems < bank.K() {
			return fmt.Errorf("config: nonparametric mode needs at least K=%d items, max_items is %d", bank.K(), c.MaxItems)
		}
	}

	if c.MaxItems < 1 {
		return fmt.Errorf("config: max_items must be positive, got %d", c.MaxItems)
	}

	dists := map[string][]float64{"prior": c.Prior, "initial_weights": c.InitialWeights}
	for name, dist := range dists {
		if dist == nil {
			continue
		}
		if len(dist) != bank.L() {
			return fmt.Errorf("config: %s has %d entries, bank has %d latent classes", name, len(dist), bank.L())
		}
		var sum float64
		for _, p := range dist {
			if p < 0 {
				return fmt.Errorf("config: %s entries must be non-negative", name)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-6 {
			return fmt.Errorf("config: %s sums to %g, want 1", name, sum)
		}
	}

	if !c.FixedLength && (c.PrecisionCutoff <= 0 || c.PrecisionCutoff > 1) {
		return fmt.Errorf("config: precision_cutoff %g outside (0,1]", c.PrecisionCutoff)
	}

	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.Workers > runtime.NumCPU() {
		return fmt.Errorf("config: %d workers exceeds %d available execution units", c.Workers, runtime.NumCPU())
	}
	return nil
}

// sessionPrior resolves the starting distribution for a session:
// InitialWeights when set, otherwise Prior (which may be nil for
// uniform).
func (c *Config) sessionPrior() []float64 {
	if c.InitialWeights != nil {
		return c.InitialWeights
	}
	return c.Prior
}
