package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/diegoturueno/provokers-tool/internal/llm"
	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
)

const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// doctorCheck is one line of the doctor report.
type doctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // statusOK, statusWarning, or statusError
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Fix     string `json:"fix,omitempty"`
}

type doctorReport struct {
	OK     bool          `json:"ok"`
	Config string        `json:"config,omitempty"`
	Checks []doctorCheck `json:"checks"`
}

func (a *app) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the database, prompt templates and model providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := a.runDoctor(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
}

// runDoctor runs every check concurrently. A failed check never stops the
// others.
func (a *app) runDoctor(ctx context.Context) doctorReport {
	providers := []string{llm.ProviderOpenAI, llm.ProviderOllama, llm.ProviderAnthropic, llm.ProviderGemini}
	checks := make([]doctorCheck, 2+len(providers))
	router := a.buildRouter(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks[0] = a.checkDatabase(gctx)
		return nil
	})
	g.Go(func() error {
		checks[1] = a.checkTemplates()
		return nil
	})
	for i, name := range providers {
		g.Go(func() error {
			checks[2+i] = a.checkProvider(gctx, router, name)
			return nil
		})
	}
	_ = g.Wait()

	report := doctorReport{OK: true, Config: a.cfg.File, Checks: checks}
	for _, c := range checks {
		if c.Status == statusError {
			report.OK = false
		}
	}
	return report
}

func (a *app) checkDatabase(ctx context.Context) doctorCheck {
	c := doctorCheck{Name: "database", Detail: fmt.Sprintf("%s (%s)", a.cfg.DB.Path, a.cfg.DB.Driver)}
	store, err := a.openStore(ctx)
	if err != nil {
		c.Status, c.Message = statusError, err.Error()
		c.Fix = "check db.path is writable and db.driver is ncruces or modernc"
		return c
	}
	defer store.Close()

	cases, err := store.ListCases(ctx)
	if err != nil {
		c.Status, c.Message = statusError, err.Error()
		return c
	}
	c.Status, c.Message = statusOK, fmt.Sprintf("%d cases", len(cases))
	return c
}

func (a *app) checkTemplates() doctorCheck {
	c := doctorCheck{Name: "templates", Detail: "built-in"}
	if a.cfg.Prompts.Dir != "" {
		c.Detail = a.cfg.Prompts.Dir + " over built-in"
	}
	loader := prompt.NewLoader(a.cfg.Prompts.Dir)

	var missing []models.Phase
	for _, phase := range models.Phases {
		tmpl, err := loader.Load(phase)
		if err != nil {
			c.Status, c.Message = statusError, err.Error()
			return c
		}
		if !prompt.HasPlaceholder(tmpl, phase) {
			missing = append(missing, phase)
		}
	}
	if len(missing) > 0 {
		c.Status = statusWarning
		c.Message = fmt.Sprintf("templates without their context placeholder: %v", missing)
		c.Fix = "add the placeholder so the case context reaches the model"
		return c
	}
	c.Status, c.Message = statusOK, fmt.Sprintf("%d phase templates", len(models.Phases))
	return c
}

// checkProvider pings providers that support it. Problems with the default
// provider are errors; with the others, warnings.
func (a *app) checkProvider(ctx context.Context, router *llm.Router, name string) doctorCheck {
	c := doctorCheck{Name: "provider:" + name}
	severity := statusWarning
	if name == router.Default() {
		c.Detail = "default provider"
		severity = statusError
	}

	if missing := a.missingKey(name); missing != "" {
		c.Status, c.Message = severity, "API key not set"
		c.Fix = "set " + missing
		return c
	}

	g, err := router.Resolve(name)
	if err != nil {
		c.Status, c.Message = severity, err.Error()
		return c
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pinged, err := llm.Ping(pingCtx, g)
	switch {
	case err != nil:
		c.Status, c.Message = severity, err.Error()
	case pinged:
		c.Status, c.Message = statusOK, "reachable"
	default:
		c.Status, c.Message = statusOK, "configured"
	}
	return c
}

// missingKey names the variable to set when a provider needs an API key
// that is not configured.
func (a *app) missingKey(name string) string {
	p := a.cfg.Providers
	switch name {
	case llm.ProviderOpenAI:
		if p.OpenAI.APIKey == "" {
			return "OPENAI_API_KEY"
		}
	case llm.ProviderAnthropic:
		if p.Anthropic.APIKey == "" {
			return "ANTHROPIC_API_KEY"
		}
	case llm.ProviderGemini:
		if p.Gemini.APIKey == "" {
			return "GEMINI_API_KEY"
		}
	}
	return ""
}
