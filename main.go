// Command provokers analyses behavioural cases with a language model, phase
// by phase, and serves the workflow over MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/config"
	"github.com/diegoturueno/provokers-tool/internal/logging"
	"github.com/diegoturueno/provokers-tool/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries what every command needs once the root pre-run has loaded
// the configuration.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
	shutdown   telemetry.Shutdown
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "provokers",
		Short: "LLM-driven behavioural case analysis",
		Long: `provokers records observations about a case and runs them through a
six-phase analysis: pattern detection, axis linking, axis classification,
tension detection, threshold evaluation and archetype assignment.

Each phase reads what the earlier phases stored, asks a language model for a
JSON answer and persists the normalized result in SQLite.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "config file (default ./provokers.yaml or ~/.config/provokers/provokers.yaml)")
	f.String("db", "", "path to the case database")
	f.String("driver", "", "sqlite driver: ncruces or modernc")
	f.String("prompts", "", "directory with prompt template overrides")
	f.String("provider", "", "default model provider: openai, ollama, anthropic, gemini (or cloud, local)")
	f.Duration("timeout", 0, "per-phase model timeout")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: console or json")
	for key, name := range map[string]string{
		config.KeyDBPath:        "db",
		config.KeyDBDriver:      "driver",
		config.KeyPromptsDir:    "prompts",
		config.KeyModelProvider: "provider",
		config.KeyModelTimeout:  "timeout",
		config.KeyLogLevel:      "log-level",
		config.KeyLogFormat:     "log-format",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}

	root.AddCommand(
		a.serveCmd(),
		a.caseCmd(),
		a.inputCmd(),
		a.analyzeCmd(),
		a.statusCmd(),
		a.doctorCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration and starts logging and telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Stdout:       cfg.Telemetry.Stdout,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	}, "provokers", version)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown

	if cfg.File != "" {
		logger.Debug("config loaded", zap.String("file", cfg.File))
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	var err error
	if a.shutdown != nil {
		err = a.shutdown(context.WithoutCancel(ctx))
	}
	_ = a.logger.Sync()
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "provokers", version)
			return err
		},
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
