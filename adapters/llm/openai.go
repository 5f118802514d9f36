package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/clinicopilot/server/domain/repositories"
)

const (
	defaultOpenAIModel = "gpt-4o"

	// Clinical drafting wants near-deterministic output.
	draftTemperature = 0.2
)

// OpenAIDrafter implements the Drafter interface using OpenAI chat completions
type OpenAIDrafter struct {
	client openai.Client
	logger *zap.Logger
	model  string
}

// NewOpenAIDrafter creates a new OpenAI drafter instance
func NewOpenAIDrafter(apiKey, model string, logger *zap.Logger) (*OpenAIDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIDrafter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
		model:  model,
	}, nil
}

func (o *OpenAIDrafter) params(req repositories.DraftRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(draftTemperature),
	}
}

// Draft implements repositories.Drafter
func (o *OpenAIDrafter) Draft(ctx context.Context, req repositories.DraftRequest) (string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, o.params(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate draft: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	return StripCodeFence(completion.Choices[0].Message.Content), nil
}

// DraftStream implements repositories.Drafter
func (o *OpenAIDrafter) DraftStream(ctx context.Context, req repositories.DraftRequest) (<-chan string, <-chan error) {
	deltas := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)

		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case deltas <- delta:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			o.logger.Error("OpenAI stream failed", zap.Error(err))
			errs <- fmt.Errorf("draft stream failed: %w", err)
			return
		}
		errs <- nil
	}()

	return deltas, errs
}

// StripCodeFence removes a surrounding markdown code fence, which models
// sometimes wrap HTML output in despite instructions.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		if !strings.ContainsAny(trimmed[:idx], " \t") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
