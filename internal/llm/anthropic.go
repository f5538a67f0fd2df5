package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	anthropicMaxTokens    = 4096
)

// userNudge is the user turn sent by providers that take the prompt as a
// separate system instruction.
const userNudge = "Analyze the case above and reply in the requested format."

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
}

// NewAnthropic creates a client. Extra request options (base URL, retries)
// are passed through to the SDK.
func NewAnthropic(apiKey, model string, temperature float64, opts ...option.RequestOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w: ANTHROPIC_API_KEY not set", ErrAuth)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       anthropic.Model(model),
		temperature: temperature,
	}, nil
}

// Generate sends the prompt as the system instruction. The Messages API has
// no JSON mode, so the JSON instruction is appended for FormatJSON.
func (c *Anthropic) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	if format == FormatJSON {
		systemPrompt += jsonInstruction
	}
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(c.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userNudge)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", statusError("anthropic", apiErr.StatusCode, apiErr.Error())
		}
		return "", classify("anthropic", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w: no text content in response", ErrTransport)
	}
	return b.String(), nil
}
