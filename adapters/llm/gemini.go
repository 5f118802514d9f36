package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/clinicopilot/server/domain/repositories"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiDrafter implements the Drafter interface using Google's Gemini API
type GeminiDrafter struct {
	client *genai.Client
	logger *zap.Logger
	model  string
}

// NewGeminiDrafter creates a new Gemini drafter instance
func NewGeminiDrafter(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiDrafter{
		client: client,
		logger: logger,
		model:  model,
	}, nil
}

func (g *GeminiDrafter) generateConfig(req repositories.DraftRequest) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(draftTemperature)),
	}
}

// Draft implements repositories.Drafter
func (g *GeminiDrafter) Draft(ctx context.Context, req repositories.DraftRequest) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.generateConfig(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate draft: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return StripCodeFence(text.String()), nil
}

// DraftStream implements repositories.Drafter
func (g *GeminiDrafter) DraftStream(ctx context.Context, req repositories.DraftRequest) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)

	contents := []*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)}

	go func() {
		defer close(deltas)

		for response, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, g.generateConfig(req)) {
			if err != nil {
				g.logger.Error("Gemini stream failed", zap.Error(err))
				errs <- fmt.Errorf("draft stream failed: %w", err)
				return
			}
			if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
				continue
			}
			for _, part := range response.Candidates[0].Content.Parts {
				if part.Text == "" {
					continue
				}
				select {
				case deltas <- part.Text:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
		errs <- nil
	}()

	return deltas, errs
}
