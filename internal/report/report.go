// Package report assembles and renders the result of a check run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/rebuttal/internal/models"
	"github.com/joescharf/rebuttal/internal/reconcile"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format string. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, or yaml)", s)
	}
}

// Report is everything a check run found.
type Report struct {
	RunID     string              `json:"run_id" yaml:"run_id"`
	CreatedAt time.Time           `json:"created_at" yaml:"created_at"`
	Reviews   string              `json:"reviews" yaml:"reviews"`
	Responses string              `json:"responses" yaml:"responses"`
	Paper     string              `json:"paper,omitempty" yaml:"paper,omitempty"`
	Match     reconcile.MatchMode `json:"match" yaml:"match"`
	Reconcile reconcile.Result    `json:"reconcile" yaml:"reconcile"`
	Judged    bool                `json:"judged" yaml:"judged"`
	Model     string              `json:"model,omitempty" yaml:"model,omitempty"`
	Trials    int                 `json:"trials,omitempty" yaml:"trials,omitempty"`
	Pairs     []models.PairResult `json:"pairs,omitempty" yaml:"pairs,omitempty"`
}

// New creates an empty report with a fresh run ID.
func New() *Report {
	now := time.Now().UTC()
	return &Report{
		RunID:     newULID(now),
		CreatedAt: now,
	}
}

// newULID generates a new ULID string.
func newULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// Summary counts pair outcomes.
type Summary struct {
	Missing      int `json:"missing" yaml:"missing"`
	Pass         int `json:"pass" yaml:"pass"`
	Fail         int `json:"fail" yaml:"fail"`
	Undetermined int `json:"undetermined" yaml:"undetermined"`
}

// Summarize counts missing responses and pair outcomes.
func (r *Report) Summarize() Summary {
	s := Summary{Missing: len(r.Reconcile.Missing)}
	for _, p := range r.Pairs {
		switch p.Aggregate.Outcome {
		case models.OutcomePass:
			s.Pass++
		case models.OutcomeFail:
			s.Fail++
		default:
			s.Undetermined++
		}
	}
	return s
}

// OK reports whether the run passed: no missing responses and, when judging
// ran, every pair passed. Undetermined pairs do not pass.
func (r *Report) OK() bool {
	if !r.Reconcile.OK() {
		return false
	}
	if !r.Judged {
		return true
	}
	for _, p := range r.Pairs {
		if p.Aggregate.Outcome != models.OutcomePass {
			return false
		}
	}
	return true
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
