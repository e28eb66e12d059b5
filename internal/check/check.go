// Package check runs a full reconcile-and-judge pass over two directories.
package check

import (
	"context"
	"fmt"

	"github.com/joescharf/rebuttal/internal/docs"
	"github.com/joescharf/rebuttal/internal/judge"
	"github.com/joescharf/rebuttal/internal/models"
	"github.com/joescharf/rebuttal/internal/reconcile"
	"github.com/joescharf/rebuttal/internal/report"
)

// Options names the inputs of a run.
type Options struct {
	Reviews   string
	Responses string
	Paper     string // optional; only read when judging
	Match     reconcile.MatchMode
}

// Reconcile loads both directories and reconciles them without judging.
func Reconcile(opts Options) (*report.Report, error) {
	rep, _, err := load(opts)
	return rep, err
}

// Run reconciles the directories and, when j is non-nil, judges every
// matched pairing. Reviews with no response are reported, never judged.
// Errors are limited to unreadable inputs and context cancellation.
func Run(ctx context.Context, opts Options, j *judge.Judge) (*report.Report, error) {
	rep, pairs, err := load(opts)
	if err != nil {
		return nil, err
	}
	if j == nil {
		return rep, nil
	}

	paper, err := docs.LoadPaper(opts.Paper)
	if err != nil {
		return nil, err
	}
	if paper != nil {
		rep.Paper = paper.Name
	}

	rep.Judged = true
	rep.Trials = j.Config().Trials
	rep.Model = j.ModelName()
	rep.Pairs, err = j.JudgeAll(ctx, pairs, paper)
	if err != nil {
		return rep, fmt.Errorf("judging interrupted: %w", err)
	}
	return rep, nil
}

func load(opts Options) (*report.Report, []models.Pairing, error) {
	reviews, err := docs.LoadDir(opts.Reviews, opts.Match)
	if err != nil {
		return nil, nil, fmt.Errorf("reviews: %w", err)
	}
	responses, err := docs.LoadDir(opts.Responses, opts.Match)
	if err != nil {
		return nil, nil, fmt.Errorf("responses: %w", err)
	}

	pairs, res := reconcile.Pair(reviews, responses, opts.Match)

	rep := report.New()
	rep.Reviews = opts.Reviews
	rep.Responses = opts.Responses
	rep.Match = opts.Match
	if rep.Match == "" {
		rep.Match = reconcile.MatchExact
	}
	rep.Reconcile = res
	return rep, pairs, nil
}
