package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/llm"
	"github.com/diegoturueno/provokers-tool/internal/pipeline"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// openStore opens the case database and makes sure the schema exists.
func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, a.cfg.DB.Path, a.cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// buildRouter registers every configured provider. Providers that cannot be
// constructed, usually for a missing API key, are still registered and fail
// on use with the construction error.
func (a *app) buildRouter(ctx context.Context) *llm.Router {
	cfg := a.cfg
	log := a.logger.Named("llm")
	router := llm.NewRouter(cfg.Model.Provider)

	register := func(name string, g llm.Generator, err error) {
		if err != nil {
			log.Debug("provider unavailable", zap.String("provider", name), zap.Error(err))
			g = unavailable(err)
		}
		g = llm.WithRetry(g, cfg.Model.MaxRetries)
		router.Register(name, llm.Instrument(g, name, a.logger))
	}

	p := cfg.Providers
	register(llm.ProviderOpenAI, llm.NewOpenAI(p.OpenAI.APIKey, p.OpenAI.Model, p.OpenAI.BaseURL, cfg.Model.Temperature), nil)
	register(llm.ProviderOllama, llm.NewOllama(p.Ollama.Host, p.Ollama.Model), nil)

	anthropicClient, err := llm.NewAnthropic(p.Anthropic.APIKey, p.Anthropic.Model, cfg.Model.Temperature)
	register(llm.ProviderAnthropic, anthropicClient, err)

	geminiClient, err := llm.NewGemini(ctx, p.Gemini.APIKey, p.Gemini.Model, p.Gemini.BaseURL, cfg.Model.Temperature)
	register(llm.ProviderGemini, geminiClient, err)

	return router
}

// unavailable is a provider that always fails with err.
func unavailable(err error) llm.Generator {
	return llm.GeneratorFunc(func(context.Context, string, llm.Format) (string, error) {
		return "", err
	})
}

// newEngine builds the phase engine on top of store.
func (a *app) newEngine(ctx context.Context, store *storage.Store) *pipeline.Engine {
	return pipeline.New(store, prompt.NewLoader(a.cfg.Prompts.Dir), a.buildRouter(ctx),
		pipeline.WithLogger(a.logger))
}

// withTimeout applies model.timeout to a phase run.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Model.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Model.Timeout)
}

// findCase resolves a case id or identifier given on the command line.
func findCase(ctx context.Context, store *storage.Store, ref string) (string, error) {
	c, err := store.FindCase(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("find case: %w", err)
	}
	return c.ID, nil
}
