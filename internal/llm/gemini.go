package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a client. baseURL overrides the API endpoint when set.
func NewGemini(ctx context.Context, apiKey, model, baseURL string, temperature float64) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: GEMINI_API_KEY not set", ErrAuth)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model, temperature: float32(temperature)}, nil
}

// Generate sends the prompt as the system instruction and asks for a JSON
// MIME type when format is FormatJSON.
func (c *Gemini) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	temperature := c.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
	}
	if format == FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userNudge), cfg)
	if err != nil {
		return "", classifyGemini(err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w: empty response", ErrTransport)
	}
	return text, nil
}

// classifyGemini sorts SDK errors by their message; the API reports auth
// failures as 401/403 or as UNAUTHENTICATED/PERMISSION_DENIED statuses.
func classifyGemini(err error) error {
	msg := err.Error()
	for _, marker := range []string{"Error 401", "Error 403", "UNAUTHENTICATED", "PERMISSION_DENIED", "API key not valid"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("gemini: %w: %v", ErrAuth, err)
		}
	}
	return classify("gemini", err)
}
