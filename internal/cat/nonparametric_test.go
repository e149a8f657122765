package cat

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/abhisek/cdcat/internal/itembank"
	"github.com/abhisek/cdcat/internal/npc"
)

// npBank builds a K=3 Q-only bank: one single-attribute item per
// attribute followed by mixed items.
func npBank(t *testing.T) *itembank.Bank {
	t.Helper()
	q := [][]int{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 1},
	}
	b, err := itembank.New(q, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// npRow produces the response row an examinee with the given pattern
// would generate under a noiseless AND gate.
func npRow(bank *itembank.Bank, pattern []int) []int {
	row := make([]int, bank.J())
	for j, qrow := range bank.Q {
		row[j] = npc.IdealResponse(pattern, qrow, npc.GateAND)
	}
	return row
}

func npConfig() Config {
	cfg := Default()
	cfg.Mode = ModeNonparametric
	cfg.MaxItems = 7
	return cfg
}

func TestNPSession_ConsistentPatternRecovered(t *testing.T) {
	bank := npBank(t)
	truth := []int{1, 0, 1}
	s, err := NewNPSession(bank, npConfig(), 0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.Run(npRow(bank, truth))
	if err != nil {
		t.Fatal(err)
	}

	// After the first K single-attribute items the best candidate
	// must already be the true pattern at loss 0.
	atK := res.Steps[bank.K()-1]
	if atK.BestLabel != "101" {
		t.Errorf("best pattern after K items = %s, want 101", atK.BestLabel)
	}
	if atK.BestLoss != 0 {
		t.Errorf("best loss after K items = %d, want 0", atK.BestLoss)
	}

	final := res.Final()
	if final.BestLabel != "101" || final.BestLoss != 0 {
		t.Errorf("final best = %s loss %d, want 101 loss 0", final.BestLabel, final.BestLoss)
	}
	if final.Mastery[0] != 1 || final.Mastery[1] != 0 || final.Mastery[2] != 1 {
		t.Errorf("final mastery = %v, want [1 0 1]", final.Mastery)
	}
}

func TestNPSession_FirstKItemsTargetAttributes(t *testing.T) {
	bank := npBank(t)
	s, err := NewNPSession(bank, npConfig(), 0, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(npRow(bank, []int{0, 1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	for a := 0; a < bank.K(); a++ {
		qrow := res.Steps[a].QRow
		if qrow[a] != 1 {
			t.Errorf("step %d administered Q-row %v, want attribute %d required", a+1, qrow, a+1)
		}
		ones := 0
		for _, v := range qrow {
			ones += v
		}
		if ones != 1 {
			t.Errorf("step %d Q-row %v is not single-attribute despite available unit rows", a+1, qrow)
		}
	}
}

func TestNPSession_NoRepeatsAndPoolShrinks(t *testing.T) {
	bank := npBank(t)
	s, err := NewNPSession(bank, npConfig(), 0, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(npRow(bank, []int{1, 1, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 7 {
		t.Errorf("administered %d items, want all 7", len(res.Items))
	}
	seen := make(map[int]bool)
	for _, item := range res.Items {
		if seen[item] {
			t.Errorf("item %d administered twice", item)
		}
		seen[item] = true
	}
}

func TestNPSession_ReproducibleUnderSeed(t *testing.T) {
	bank := npBank(t)
	row := npRow(bank, []int{1, 1, 1})

	run := func() *Result {
		s, err := NewNPSession(bank, npConfig(), 0, rand.New(rand.NewSource(11)))
		if err != nil {
			t.Fatal(err)
		}
		res, err := s.Run(row)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	a, b := run(), run()
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			t.Fatalf("item order differs at step %d under identical seeds", i+1)
		}
	}
	for i := range a.Steps {
		if a.Steps[i].BestLabel != b.Steps[i].BestLabel {
			t.Fatalf("best pattern differs at step %d under identical seeds", i+1)
		}
	}
}

func TestNPSession_PseudoPosteriorStopping(t *testing.T) {
	bank := npBank(t)
	cfg := npConfig()
	cfg.FixedLength = false
	cfg.NP.PseudoPosterior = true
	cfg.PrecisionCutoff = 0.6

	s, err := NewNPSession(bank, cfg, 0, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(npRow(bank, []int{1, 0, 1}))
	if err != nil {
		t.Fatal(err)
	}
	final := res.Final()
	if final.PseudoPost == nil {
		t.Fatal("pseudo-posterior missing from trace")
	}
	if len(res.Items) < bank.K() {
		t.Errorf("stopped after %d items, precision stopping applies only from K on", len(res.Items))
	}
	for a, p := range final.PseudoPost {
		reflected := p
		if reflected < 0.5 {
			reflected = 1 - reflected
		}
		if len(res.Items) < cfg.MaxItems && reflected < cfg.PrecisionCutoff {
			t.Errorf("stopped early with attribute %d pseudo-posterior %f below cutoff", a+1, p)
		}
	}
}

func TestNPSession_SearchExhaustion(t *testing.T) {
	// After the two attribute items only an all-zero Q-row remains,
	// which evaluates identically under every pattern.
	q := [][]int{
		{1, 0},
		{0, 1},
		{0, 0},
	}
	bank, err := itembank.New(q, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := npConfig()
	cfg.MaxItems = 3

	s, err := NewNPSession(bank, cfg, 0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.Run([]int{1, 1, 1})
	if err == nil {
		t.Fatal("discrimination search over a non-discriminating pool should fail")
	}
	if !strings.Contains(err.Error(), "discriminates") {
		t.Errorf("error %q should mention discrimination exhaustion", err)
	}
}
