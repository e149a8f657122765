package npc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/abhisek/cdcat/internal/patterns"
)

func space3(t *testing.T) *patterns.Space {
	t.Helper()
	s, err := patterns.New(3)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIdealResponse_Gates(t *testing.T) {
	p := patterns.Pattern{1, 0, 1}
	tests := []struct {
		qrow    []int
		gate    Gate
		want    int
		comment string
	}{
		{[]int{1, 0, 0}, GateAND, 1, "single mastered attribute"},
		{[]int{0, 1, 0}, GateAND, 0, "single unmastered attribute"},
		{[]int{1, 1, 0}, GateAND, 0, "AND needs all"},
		{[]int{1, 1, 0}, GateOR, 1, "OR needs one"},
		{[]int{0, 1, 0}, GateOR, 0, "OR with none mastered"},
		{[]int{0, 0, 0}, GateAND, 1, "no requirements is trivially met"},
		{[]int{0, 0, 0}, GateOR, 0, "OR with empty requirement"},
	}
	for _, tc := range tests {
		if got := IdealResponse(p, tc.qrow, tc.gate); got != tc.want {
			t.Errorf("%s: IdealResponse(%v, %v, %s) = %d, want %d",
				tc.comment, p, tc.qrow, tc.gate, got, tc.want)
		}
	}
}

func TestNewClassifier_BadGate(t *testing.T) {
	if _, err := NewClassifier(space3(t), Gate("XOR")); err == nil {
		t.Error("unknown gate should fail")
	}
}

func TestClassify_ConsistentResponsesZeroLoss(t *testing.T) {
	s := space3(t)
	c, err := NewClassifier(s, GateAND)
	if err != nil {
		t.Fatal(err)
	}

	// One single-attribute item per attribute; responses consistent
	// with pattern [1,0,1].
	qrows := [][]int{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	responses := []int{1, 0, 1}

	ranked, err := c.Classify(responses, qrows, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	best := s.Pattern(ranked[0].Index)
	if !best.Equal(patterns.Pattern{1, 0, 1}) {
		t.Errorf("best pattern = %s, want 101", best.Label())
	}
	if ranked[0].Loss != 0 {
		t.Errorf("best loss = %d, want 0", ranked[0].Loss)
	}
	if ranked[1].Loss == 0 {
		t.Errorf("second-best loss = 0, expected unique zero-loss pattern")
	}
}

func TestRank_SeededTieBreakReproducible(t *testing.T) {
	s := space3(t)
	c, _ := NewClassifier(s, GateAND)

	// No administered items: every pattern ties at loss zero, so the
	// order is decided purely by the seeded column shuffle.
	losses := make([]int, s.Size())
	a := c.Rank(losses, rand.New(rand.NewSource(99)))
	b := c.Rank(losses, rand.New(rand.NewSource(99)))
	for i := range a {
		if a[i].Index != b[i].Index {
			t.Fatalf("rank %d differs between identical seeds", i)
		}
	}
}

func TestLosses_BadInputs(t *testing.T) {
	c, _ := NewClassifier(space3(t), GateAND)
	if _, err := c.Losses([]int{1}, [][]int{}); err == nil {
		t.Error("length mismatch should fail")
	}
	if _, err := c.Losses([]int{1}, [][]int{{1, 0}}); err == nil {
		t.Error("short Q-row should fail")
	}
	if _, err := c.Losses([]int{3}, [][]int{{1, 0, 0}}); err == nil {
		t.Error("non-binary response should fail")
	}
}

func TestPseudoPosterior_Weightings(t *testing.T) {
	s := space3(t)
	c, _ := NewClassifier(s, GateAND)

	qrows := [][]int{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	responses := []int{1, 0, 1}
	ranked, err := c.Classify(responses, qrows, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatal(err)
	}

	for _, w := range []Weighting{WeightPow2, WeightExp} {
		pp, err := c.PseudoPosterior(ranked, w)
		if err != nil {
			t.Fatalf("%s: %v", w, err)
		}
		if len(pp) != 3 {
			t.Fatalf("%s: got %d attributes, want 3", w, len(pp))
		}
		for a, p := range pp {
			if p < 0 || p > 1 {
				t.Errorf("%s: attribute %d probability %f outside [0,1]", w, a, p)
			}
		}
		// The zero-loss pattern is 101: mastered attributes should
		// carry more pseudo-posterior mass than the unmastered one.
		if pp[0] <= pp[1] || pp[2] <= pp[1] {
			t.Errorf("%s: pseudo-posterior %v should favor attributes 0 and 2", w, pp)
		}
	}
}

func TestPseudoPosterior_RankWeightsDecay(t *testing.T) {
	s, _ := patterns.New(1)
	c, _ := NewClassifier(s, GateAND)

	// Pattern 1 ranked first: mastery probability is w0/(w0+w1).
	ranked := []Ranked{{Index: 1, Loss: 0}, {Index: 0, Loss: 1}}

	pp, err := c.PseudoPosterior(ranked, WeightPow2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pp[0]-2.0/3.0) > 1e-12 {
		t.Errorf("pow2 mastery probability = %f, want 2/3", pp[0])
	}

	pp, err = c.PseudoPosterior(ranked, WeightExp)
	if err != nil {
		t.Fatal(err)
	}
	want := 1.0 / (1.0 + math.Exp(-1))
	if math.Abs(pp[0]-want) > 1e-12 {
		t.Errorf("exp mastery probability = %f, want %f", pp[0], want)
	}
}

func TestPseudoPosterior_UnknownWeighting(t *testing.T) {
	c, _ := NewClassifier(space3(t), GateAND)
	if _, err := c.PseudoPosterior([]Ranked{{Index: 0}}, Weighting("linear")); err == nil {
		t.Error("unknown weighting should fail")
	}
}
