package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// aliases keeps the cloud/local mode names working as provider names.
var aliases = map[string]string{
	"cloud": ProviderOpenAI,
	"local": ProviderOllama,
}

// Router resolves a provider name to a registered Generator.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Generator
	fallback  string
}

// NewRouter creates a router whose empty-name lookups go to defaultName.
func NewRouter(defaultName string) *Router {
	return &Router{
		providers: make(map[string]Generator),
		fallback:  canonical(defaultName),
	}
}

// Register adds or replaces a provider.
func (r *Router) Register(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[canonical(name)] = g
}

// Resolve returns the provider registered under name, or the default when
// name is empty.
func (r *Router) Resolve(name string) (Generator, error) {
	key := canonical(name)
	if key == "" {
		key = r.fallback
	}
	r.mu.RLock()
	g, ok := r.providers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, name, strings.Join(r.Names(), ", "))
	}
	return g, nil
}

// Default returns the name used for empty lookups.
func (r *Router) Default() string {
	return r.fallback
}

// Names lists the registered providers in sorted order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if target, ok := aliases[name]; ok {
		return target
	}
	return name
}
