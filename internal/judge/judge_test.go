package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joescharf/rebuttal/internal/llm"
	"github.com/joescharf/rebuttal/internal/models"
)

// genai links opencensus, whose view worker starts in init.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const (
	verdictPass = `{"reasoning":"covered","comment_is_fully_addressed":true}`
	verdictFail = `{"reasoning":"not covered","comment_is_fully_addressed":false}`
)

func isExtract(req llm.Request) bool {
	return strings.Contains(req.System, `{"comments"`)
}

// scripted hands out answers in call order; ordering across parallel trials
// does not matter to the aggregate.
func scripted(answers ...string) (llm.Model, *atomic.Int32) {
	var calls atomic.Int32
	return llm.ModelFunc(func(_ context.Context, req llm.Request) (string, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(answers) {
			return "", fmt.Errorf("unexpected call %d", n)
		}
		return answers[n], nil
	}), &calls
}

func testPair() models.Pairing {
	return models.Pairing{
		Key:      "review1",
		Review:   models.Document{Name: "review1.txt", Key: "review1", Text: "The baseline is weak."},
		Response: models.Document{Name: "review1.txt", Key: "review1", Text: "We added two baselines."},
	}
}

func TestJudgePair_MajorityPass(t *testing.T) {
	m, calls := scripted(verdictPass, verdictPass, verdictFail)
	j := New(m, Config{Trials: 3}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "The baseline is weak.", res.Comments[0].Comment)
	assert.Len(t, res.Comments[0].Verdicts, 3)
	assert.Equal(t, models.OutcomePass, res.Comments[0].Aggregate.Outcome)
	assert.Equal(t, models.OutcomePass, res.Aggregate.Outcome)
	assert.Equal(t, "review1", res.Key)
}

func TestJudgePair_AllMalformedIsUndetermined(t *testing.T) {
	m, _ := scripted("sure!", "```\nnope\n```", `{"reasoning":"?"}`)
	j := New(m, Config{Trials: 3}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUndetermined, res.Aggregate.Outcome)
	assert.Equal(t, 3, res.Aggregate.Trials)
	assert.Equal(t, 0, res.Aggregate.Valid)
	for _, v := range res.Comments[0].Verdicts {
		assert.False(t, v.Valid())
		assert.Contains(t, v.Err, "malformed")
	}
}

func TestJudgePair_ServiceErrorsDropTrials(t *testing.T) {
	var calls atomic.Int32
	m := llm.ModelFunc(func(context.Context, llm.Request) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("connection refused")
		}
		return verdictFail, nil
	})
	j := New(m, Config{Trials: 2, Concurrency: 1}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFail, res.Aggregate.Outcome)
	assert.Equal(t, 1, res.Aggregate.Valid)
	assert.Equal(t, 2, res.Aggregate.Trials)
}

func TestJudgePair_TimeoutAbortsOnlyThatTrial(t *testing.T) {
	var calls atomic.Int32
	m := llm.ModelFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return verdictPass, nil
	})
	j := New(m, Config{Trials: 3, Concurrency: 1, Timeout: 50 * time.Millisecond}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePass, res.Aggregate.Outcome)
	assert.Equal(t, 2, res.Aggregate.Valid)

	var timedOut int
	for _, v := range res.Comments[0].Verdicts {
		if strings.Contains(v.Err, "timed out") {
			timedOut++
		}
	}
	assert.Equal(t, 1, timedOut)
}

func TestJudgePair_SplitComments(t *testing.T) {
	m := llm.ModelFunc(func(_ context.Context, req llm.Request) (string, error) {
		if isExtract(req) {
			return `{"comments":["weak baseline","no code"]}`, nil
		}
		if strings.Contains(req.User, "weak baseline") {
			return verdictPass, nil
		}
		return verdictFail, nil
	})
	j := New(m, Config{Trials: 2, SplitComments: true}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	require.Len(t, res.Comments, 2)
	assert.Equal(t, "weak baseline", res.Comments[0].Comment)
	assert.Equal(t, models.OutcomePass, res.Comments[0].Aggregate.Outcome)
	assert.Equal(t, "no code", res.Comments[1].Comment)
	assert.Equal(t, models.OutcomeFail, res.Comments[1].Aggregate.Outcome)
	assert.Equal(t, models.OutcomeFail, res.Aggregate.Outcome)
	assert.Equal(t, 4, res.Aggregate.Trials)
	assert.Empty(t, res.Note)
}

func TestJudgePair_ExtractionFailureFallsBack(t *testing.T) {
	m := llm.ModelFunc(func(_ context.Context, req llm.Request) (string, error) {
		if isExtract(req) {
			return "I could not find any comments.", nil
		}
		return verdictPass, nil
	})
	j := New(m, Config{Trials: 1, SplitComments: true}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "The baseline is weak.", res.Comments[0].Comment)
	assert.Contains(t, res.Note, "extraction failed")
	assert.Equal(t, models.OutcomePass, res.Aggregate.Outcome)
}

func TestJudgePair_PaperIsAttached(t *testing.T) {
	paper := &models.Paper{Name: "main.pdf", PDF: []byte("%PDF-1.7")}
	var withPDF atomic.Int32
	m := llm.ModelFunc(func(_ context.Context, req llm.Request) (string, error) {
		if len(req.PDF) > 0 {
			withPDF.Add(1)
		}
		return verdictPass, nil
	})
	j := New(m, Config{Trials: 4}, nil)

	_, err := j.JudgePair(context.Background(), testPair(), paper)
	require.NoError(t, err)
	assert.Equal(t, int32(4), withPDF.Load())
}

func TestJudgePair_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	m := llm.ModelFunc(func(context.Context, llm.Request) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return verdictPass, nil
	})
	j := New(m, Config{Trials: 12, Concurrency: 3}, nil)

	res, err := j.JudgePair(context.Background(), testPair(), nil)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Aggregate.Valid)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestJudgePair_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, _ := scripted(verdictPass)
	j := New(m, Config{Trials: 1}, nil)

	_, err := j.JudgePair(ctx, testPair(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJudgeAll(t *testing.T) {
	m := llm.ModelFunc(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.User, "good") {
			return verdictPass, nil
		}
		return verdictFail, nil
	})
	j := New(m, Config{Trials: 3}, nil)

	pairs := []models.Pairing{
		{Key: "a", Review: models.Document{Text: "r"}, Response: models.Document{Text: "good answer"}},
		{Key: "b", Review: models.Document{Text: "r"}, Response: models.Document{Text: "evasive answer"}},
	}
	results, err := j.JudgeAll(context.Background(), pairs, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Key)
	assert.Equal(t, models.OutcomePass, results[0].Aggregate.Outcome)
	assert.Equal(t, "b", results[1].Key)
	assert.Equal(t, models.OutcomeFail, results[1].Aggregate.Outcome)
}

func TestNew_Defaults(t *testing.T) {
	j := New(llm.ModelFunc(nil), Config{}, nil)
	cfg := j.Config()
	def := DefaultConfig()
	assert.Equal(t, def.Trials, cfg.Trials)
	assert.Equal(t, def.Concurrency, cfg.Concurrency)
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.False(t, cfg.SplitComments)
}
