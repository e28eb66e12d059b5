// Package judge scores review responses with repeated, independent model trials.
package judge

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/rebuttal/internal/llm"
	"github.com/joescharf/rebuttal/internal/models"
)

// Config controls how many trials run and how they are bounded.
type Config struct {
	Trials        int           // trials per comment
	Concurrency   int           // max in-flight model calls
	Timeout       time.Duration // per model call
	SplitComments bool          // extract individual comments before judging
}

// DefaultConfig returns the defaults used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		Trials:        1,
		Concurrency:   8,
		Timeout:       5 * time.Minute,
		SplitComments: true,
	}
}

// Judge runs trials against a model.
type Judge struct {
	model  llm.Model
	cfg    Config
	logger *zap.Logger
}

// New creates a Judge. Zero config fields fall back to DefaultConfig values.
// A nil logger discards log output.
func New(model llm.Model, cfg Config, logger *zap.Logger) *Judge {
	def := DefaultConfig()
	if cfg.Trials <= 0 {
		cfg.Trials = def.Trials
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{model: model, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (j *Judge) Config() Config { return j.cfg }

// ModelName names the model behind the judge.
func (j *Judge) ModelName() string { return j.model.Name() }

// JudgeAll judges pairings one after another, in the order given.
// It stops early only when ctx is cancelled.
func (j *Judge) JudgeAll(ctx context.Context, pairs []models.Pairing, paper *models.Paper) ([]models.PairResult, error) {
	results := make([]models.PairResult, 0, len(pairs))
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := j.JudgePair(ctx, p, paper)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// JudgePair judges every comment of one pairing. Individual trial failures
// are recorded, never returned; the only error is parent context cancellation.
func (j *Judge) JudgePair(ctx context.Context, pair models.Pairing, paper *models.Paper) (models.PairResult, error) {
	log := j.logger.With(zap.String("pair", pair.Key), zap.String("model", j.model.Name()))
	result := models.PairResult{Key: pair.Key}

	comments := []string{pair.Review.Text}
	if j.cfg.SplitComments {
		extracted, err := j.extract(ctx, pair.Review.Text)
		switch {
		case ctx.Err() != nil:
			return result, ctx.Err()
		case err != nil:
			log.Warn("comment extraction failed, judging whole review", zap.Error(err))
			result.Note = "comment extraction failed; judged the whole review"
		case len(extracted) == 0:
			result.Note = "no comments found in review; judged the whole review"
		default:
			comments = extracted
		}
	}

	start := time.Now()
	verdicts := make([][]models.Verdict, len(comments))
	for i := range verdicts {
		verdicts[i] = make([]models.Verdict, j.cfg.Trials)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Concurrency)
	for ci, comment := range comments {
		for ti := 0; ti < j.cfg.Trials; ti++ {
			g.Go(func() error {
				verdicts[ci][ti] = j.trial(gctx, log, comment, pair.Response.Text, paper)
				return nil
			})
		}
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Comments = make([]models.CommentResult, len(comments))
	for i, c := range comments {
		result.Comments[i] = models.CommentResult{
			Comment:   c,
			Verdicts:  verdicts[i],
			Aggregate: Aggregate(verdicts[i]),
		}
	}
	result.Aggregate = Combine(result.Comments)

	log.Debug("pair judged",
		zap.Int("comments", len(comments)),
		zap.Int("trials", result.Aggregate.Trials),
		zap.Int("valid", result.Aggregate.Valid),
		zap.String("outcome", string(result.Aggregate.Outcome)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (j *Judge) extract(ctx context.Context, review string) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()
	return llm.ExtractComments(cctx, j.model, review)
}

// trial runs one bounded model call. A timeout here aborts this trial only.
func (j *Judge) trial(ctx context.Context, log *zap.Logger, comment, response string, paper *models.Paper) models.Verdict {
	cctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	v, err := llm.CheckResponse(cctx, j.model, comment, response, paper)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "timed out after " + j.cfg.Timeout.String()
		}
		log.Warn("trial failed", zap.Error(err))
		return models.Verdict{Err: msg}
	}
	return v
}
