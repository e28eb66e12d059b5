package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini implements Model with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini model.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

func (g *Gemini) Name() string { return "gemini/" + g.model }

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.User)}
	if len(req.PDF) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.PDF, "application/pdf"))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		generateConfig(req),
	)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return text, nil
}

// geminiThinkingBudget caps the reasoning tokens of thinking models. Thinking
// counts against MaxOutputTokens, so the answer budget is added on top.
const geminiThinkingBudget int32 = 8192

func generateConfig(req Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	budget := geminiThinkingBudget
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(maxTokens) + budget,
		ThinkingConfig:    &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
}
