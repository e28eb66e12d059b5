package models

// Outcome is the reduced result of one or more judge trials.
type Outcome string

const (
	OutcomePass         Outcome = "pass"
	OutcomeFail         Outcome = "fail"
	OutcomeUndetermined Outcome = "undetermined"
)

// Verdict is one trial's answer for a comment.
type Verdict struct {
	Addressed bool   `json:"addressed" yaml:"addressed"`
	Reasoning string `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Err       string `json:"error,omitempty" yaml:"error,omitempty"` // non-empty when the trial produced no usable verdict
}

// Valid reports whether the trial produced a usable verdict.
func (v Verdict) Valid() bool { return v.Err == "" }

// Aggregate summarizes a set of trials.
type Aggregate struct {
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Passes  int     `json:"passes" yaml:"passes"`
	Valid   int     `json:"valid" yaml:"valid"`
	Trials  int     `json:"trials" yaml:"trials"`
	Score   float64 `json:"score" yaml:"score"` // percentage of valid trials that passed
}

// CommentResult holds the trials and aggregate for one review comment.
type CommentResult struct {
	Comment   string    `json:"comment" yaml:"comment"`
	Verdicts  []Verdict `json:"verdicts" yaml:"verdicts"`
	Aggregate Aggregate `json:"aggregate" yaml:"aggregate"`
}

// PairResult is the judge's outcome for one review/response pairing.
type PairResult struct {
	Key       string          `json:"key" yaml:"key"`
	Comments  []CommentResult `json:"comments" yaml:"comments"`
	Aggregate Aggregate       `json:"aggregate" yaml:"aggregate"`
	// Note is set when the judge had to degrade, e.g. comment extraction failed.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}
