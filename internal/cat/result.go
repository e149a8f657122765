package cat

// TraceStep is one row of a session's diagnostic trace, appended once
// per administered item. Item indices are 1-based in the trace,
// matching the bank's external numbering. Parametric and nonparametric
// sessions fill their respective estimate fields.
type TraceStep struct {
	// Step is the 1-based step counter.
	Step int `json:"step"`

	// Item is the 1-based index of the administered item.
	Item int `json:"item"`

	// QRow is the administered item's Q-matrix row.
	QRow []int `json:"q_row"`

	// Response is the examinee's observed response to the item.
	Response int `json:"response"`

	// Parametric estimates.
	MLLabel  string    `json:"ml,omitempty"`
	MLTies   int       `json:"ml_ties,omitempty"`
	MAPLabel string    `json:"map,omitempty"`
	MAPTies  int       `json:"map_ties,omitempty"`
	MAPProb  float64   `json:"map_prob,omitempty"`
	EAP      []float64 `json:"eap,omitempty"`

	// Mastery is the thresholded attribute-mastery call. Parametric
	// sessions threshold EAP; nonparametric sessions report the best
	// candidate pattern.
	Mastery []int `json:"mastery"`

	// Nonparametric estimates.
	BestLabel   string    `json:"best,omitempty"`
	BestLoss    int       `json:"best_loss,omitempty"`
	SecondLabel string    `json:"second,omitempty"`
	SecondLoss  int       `json:"second_loss,omitempty"`
	PseudoPost  []float64 `json:"pseudo_posterior,omitempty"`
}

// Result is the outcome of one examinee's session. Failed sessions
// carry the failure in Err with whatever trace accumulated before it;
// a failure never affects other examinees.
type Result struct {
	// Examinee is the 0-based row index into the response matrix.
	Examinee int `json:"examinee"`

	// Items lists administered items in order, 1-based, no repeats.
	Items []int `json:"items"`

	// Steps is the per-step diagnostic trace.
	Steps []TraceStep `json:"steps"`

	// Err describes a per-examinee failure, empty on success.
	Err string `json:"error,omitempty"`
}

// Final returns the last trace step, or nil for an empty trace.
func (r *Result) Final() *TraceStep {
	if len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}

// Failed reports whether the session ended in a per-examinee error.
func (r *Result) Failed() bool {
	return r.Err != ""
}

// RunResult aggregates a full batch run with the resolved
// configuration echoed for provenance.
type RunResult struct {
	Config  Config   `json:"config"`
	Results []Result `json:"results"`
}
