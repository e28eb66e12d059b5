package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/rebuttal/internal/models"
)

// ErrMalformed marks a model answer that could not be parsed.
var ErrMalformed = errors.New("malformed model output")

// buildExtractPrompt constructs the prompts that split a review into comments.
func buildExtractPrompt(review string) (system string, user string) {
	system = `You are a research assistant helping with scientific peer review. Build a complete list of every question, weakness, limitation, and any other criticism raised in a review.

Return ONLY a JSON object of the form {"comments": ["...", "..."]}.

Rules:
- One entry per distinct point; keep each entry self-contained
- Preserve the reviewer's meaning; do not add criticism that is not in the review
- Skip praise and summaries of the paper
- Return valid JSON only, no markdown fencing or explanation`

	user = "Extract all comments (questions, weaknesses, limitations, etc.) from the following review.\n\nREVIEW:\n\n" + review
	return
}

// buildCheckPrompt constructs the prompts that ask whether a response fully
// addresses one comment.
func buildCheckPrompt(comment, response string, paper *models.Paper) (system string, user string) {
	var sb strings.Builder
	sb.WriteString("You are a research assistant helping with scientific peer review. ")
	sb.WriteString("Decide whether an author response fully addresses a given reviewer comment or criticism.\n\n")
	sb.WriteString("You will be given:\n")
	sb.WriteString("- The comment within <comment></comment> tags\n")
	sb.WriteString("- The response within <response></response> tags\n")
	switch {
	case paper.Empty():
	case len(paper.PDF) > 0:
		sb.WriteString("- The full paper as an attached PDF document\n")
	default:
		sb.WriteString("- The full paper within <paper></paper> tags\n")
	}
	sb.WriteString("\nReturn ONLY a JSON object with exactly two fields:\n")
	sb.WriteString(`- "reasoning": a short explanation of your decision` + "\n")
	sb.WriteString(`- "comment_is_fully_addressed": true or false` + "\n")
	sb.WriteString("\nReturn valid JSON only, no markdown fencing or explanation.")
	system = sb.String()

	var ub strings.Builder
	fmt.Fprintf(&ub, "<comment>\n%s\n</comment>\n\n<response>\n%s\n</response>\n\n", comment, response)
	if !paper.Empty() && len(paper.PDF) == 0 {
		fmt.Fprintf(&ub, "<paper>\n%s\n</paper>\n\n", paper.Text)
	}
	ub.WriteString("Does the response fully address the comment?")
	user = ub.String()
	return
}

// ParseComments decodes a {"comments": [...]} answer, dropping blank entries.
func ParseComments(text string) ([]string, error) {
	text = stripFences(text)

	var out struct {
		Comments []string `json:"comments"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: %v\nraw response: %s", ErrMalformed, err, text)
	}

	comments := make([]string, 0, len(out.Comments))
	for _, c := range out.Comments {
		if c = strings.TrimSpace(c); c != "" {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// ParseVerdict decodes a verdict answer. A missing decision field is malformed.
func ParseVerdict(text string) (models.Verdict, error) {
	text = stripFences(text)

	var out struct {
		Reasoning string `json:"reasoning"`
		Addressed *bool  `json:"comment_is_fully_addressed"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v\nraw response: %s", ErrMalformed, err, text)
	}
	if out.Addressed == nil {
		return models.Verdict{}, fmt.Errorf("%w: missing comment_is_fully_addressed\nraw response: %s", ErrMalformed, text)
	}
	return models.Verdict{Addressed: *out.Addressed, Reasoning: out.Reasoning}, nil
}

// ExtractComments asks the model to list the individual comments in a review.
func ExtractComments(ctx context.Context, m Model, review string) ([]string, error) {
	system, user := buildExtractPrompt(review)
	text, err := m.Complete(ctx, Request{System: system, User: user, MaxTokens: 4096})
	if err != nil {
		return nil, err
	}
	return ParseComments(text)
}

// CheckResponse asks the model whether response fully addresses comment.
func CheckResponse(ctx context.Context, m Model, comment, response string, paper *models.Paper) (models.Verdict, error) {
	system, user := buildCheckPrompt(comment, response, paper)
	req := Request{System: system, User: user, MaxTokens: 4096}
	if !paper.Empty() {
		req.PDF = paper.PDF
	}
	text, err := m.Complete(ctx, req)
	if err != nil {
		return models.Verdict{}, err
	}
	return ParseVerdict(text)
}
