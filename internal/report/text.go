package report

import (
	"fmt"
	"strings"

	"github.com/joescharf/rebuttal/internal/models"
	"github.com/joescharf/rebuttal/internal/output"
)

const commentWidth = 60

// WriteText renders the report for a terminal.
func (r *Report) WriteText(ui *output.UI) error {
	for _, k := range r.Reconcile.Missing {
		ui.Error("No response for review %s", k)
	}
	for _, k := range r.Reconcile.Extra {
		ui.Warning("Response %s has no matching review", k)
	}

	for _, p := range r.Pairs {
		ui.Rule(displayKey(p.Key))
		if p.Note != "" {
			ui.Warning("%s", p.Note)
		}

		table := ui.Table([]string{"Comment", "Addressed (%)", "Trials", "Outcome"})
		for _, c := range p.Comments {
			table.Append([]string{
				truncate(c.Comment, commentWidth),
				addressed(c.Aggregate),
				fmt.Sprintf("%d/%d", c.Aggregate.Valid, c.Aggregate.Trials),
				output.OutcomeColor(string(c.Aggregate.Outcome)),
			})
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
		fmt.Fprintf(ui.Out, "Overall: %s (%s)\n", output.OutcomeColor(string(p.Aggregate.Outcome)), addressed(p.Aggregate))

		if ui.Verbose {
			for _, c := range p.Comments {
				for i, v := range c.Verdicts {
					switch {
					case !v.Valid():
						ui.VerboseLog("%s [%d] error: %s", truncate(c.Comment, 30), i+1, v.Err)
					default:
						ui.VerboseLog("%s [%d] %t: %s", truncate(c.Comment, 30), i+1, v.Addressed, v.Reasoning)
					}
				}
			}
		}
	}

	fmt.Fprintln(ui.Out)
	s := r.Summarize()
	matched := len(r.Reconcile.Matched)
	total := matched + s.Missing
	switch {
	case s.Missing > 0:
		ui.Error("%d of %d reviews have no response", s.Missing, total)
	default:
		ui.Success("All %d reviews have a response", total)
	}
	if r.Judged {
		msg := fmt.Sprintf("Judged %d pairs with %s (n=%d): %d pass, %d fail, %d undetermined",
			len(r.Pairs), r.Model, r.Trials, s.Pass, s.Fail, s.Undetermined)
		if s.Fail == 0 && s.Undetermined == 0 {
			ui.Success("%s", msg)
		} else {
			ui.Error("%s", msg)
		}
	}
	ui.VerboseLog("run %s", r.RunID)
	return nil
}

func addressed(a models.Aggregate) string {
	if a.Outcome == models.OutcomeUndetermined && a.Valid == 0 {
		return output.Yellow("?")
	}
	return output.ScoreColor(a.Score) + " " + output.ScoreIcon(a.Score)
}

// displayKey drops a .txt extension from a key for headings.
func displayKey(key string) string {
	return strings.TrimSuffix(key, ".txt")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
