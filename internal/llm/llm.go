// Package llm is the model capability used by the analysis pipeline: a
// Generator turns an assembled system prompt into raw model text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrTransport covers network failures and non-auth error statuses.
	ErrTransport = errors.New("model transport error")
	// ErrAuth means the provider rejected the credentials.
	ErrAuth = errors.New("model authentication error")
	// ErrTimeout means the call ran past its deadline.
	ErrTimeout = errors.New("model call timed out")
	// ErrUnknownProvider means no provider is registered under a name.
	ErrUnknownProvider = errors.New("unknown model provider")
)

// Format is the response format requested from the model.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Generator produces raw text from a system prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, format Format) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt string, format Format) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt string, format Format) (string, error) {
	return f(ctx, systemPrompt, format)
}

// Pinger is implemented by providers that can check their backend is up.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend of g, or of a generator g wraps, when it is a
// Pinger. It reports false when no Pinger is found.
func Ping(ctx context.Context, g Generator) (bool, error) {
	for g != nil {
		if p, ok := g.(Pinger); ok {
			return true, p.Ping(ctx)
		}
		u, ok := g.(interface{ Unwrap() Generator })
		if !ok {
			break
		}
		g = u.Unwrap()
	}
	return false, nil
}

// jsonInstruction is appended for providers without a native JSON mode.
const jsonInstruction = "\n\nIMPORTANT: Reply ONLY with valid JSON. No markdown, no explanations."

// classify maps a call error onto ErrTimeout or ErrTransport.
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrTransport) || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrTransport, err)
}

// statusError maps a non-2xx HTTP status onto ErrAuth or ErrTransport.
func statusError(provider string, status int, body string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%s: %w: status %d: %s", provider, ErrAuth, status, body)
	}
	return fmt.Errorf("%s: %w: status %d: %s", provider, ErrTransport, status, body)
}
