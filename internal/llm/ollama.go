package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama defaults, matching the "local" mode of the analysis workflow.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3"
)

// Ollama calls a local Ollama server.
type Ollama struct {
	Host  string
	Model string
	HTTP  *http.Client
}

// NewOllama creates a client. Empty values fall back to the defaults.
func NewOllama(host, model string) *Ollama {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{
		Host:  strings.TrimRight(host, "/"),
		Model: model,
		HTTP:  http.DefaultClient,
	}
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Format   string        `json:"format,omitempty"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Generate sends the prompt as a single user message. Local models follow
// the JSON instruction more reliably than a system role.
func (c *Ollama) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	body := ollamaChatRequest{
		Model:  c.Model,
		Stream: false,
	}
	prompt := systemPrompt
	if format == FormatJSON {
		body.Format = "json"
		prompt += jsonInstruction
	}
	body.Messages = []chatMessage{{Role: "user", Content: prompt}}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ollama: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+"/api/chat", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, err := c.do(req)
	if err != nil {
		return "", err
	}
	var out ollamaChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("ollama: %w: decode response: %v", ErrTransport, err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %w: %s", ErrTransport, out.Error)
	}
	return out.Message.Content, nil
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Ping checks that the server is reachable and the configured model is pulled.
func (c *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: build request: %w", err)
	}
	data, err := c.do(req)
	if err != nil {
		return err
	}
	var tags ollamaTags
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("ollama: %w: decode tags: %v", ErrTransport, err)
	}
	for _, m := range tags.Models {
		if m.Name == c.Model || strings.HasPrefix(m.Name, c.Model+":") {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %q is not pulled (run: ollama pull %s)", c.Model, c.Model)
}

func (c *Ollama) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, classify("ollama", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("ollama", resp.StatusCode, string(data))
	}
	return data, nil
}
