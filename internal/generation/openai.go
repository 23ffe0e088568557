package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Completer = (*OpenAI)(nil)

// ChatCompletionsService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real OpenAI API.
type ChatCompletionsService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAI implements Completer using OpenAI chat completions.
type OpenAI struct {
	completions ChatCompletionsService
	model       openai.ChatModel
	temperature float64
}

// NewOpenAI creates a new OpenAI completion service. SDK retries are disabled:
// callers bound the call with a deadline and fall back instead of waiting.
func NewOpenAI(apiKey, model string, temperature float64) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)
	return &OpenAI{
		completions: client.Chat.Completions,
		model:       openai.ChatModel(model),
		temperature: temperature,
	}
}

// Complete sends the system instruction and prompt and returns the text of
// the first choice.
func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		}),
		Model:       openai.F(o.model),
		Temperature: openai.F(o.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion failed: %w", ErrEmptyCompletion)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chat completion failed: %w", ErrEmptyCompletion)
	}
	return text, nil
}

// ModelName returns the chat model name
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
