package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/pipeline"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

func (a *app) analyzeCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "analyze <phase|next|all> <case>",
		Short: "Run an analysis phase against a case",
		Long: `Runs one phase of the analysis against a case and prints the saved records.

Phases, in order:
  pattern_detection     inputs -> patterns
  axis_linking          patterns -> axis assignments
  axis_classification   axis assignments -> axis states
  tension_detection     axis states -> tensions
  threshold_evaluation  axis states -> threshold evaluation
  archetype_assignment  threshold evaluation -> archetype

"next" runs the next ready phase. "all" runs every phase from the next one to
the end, stopping at the first failure.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			caseID, err := findCase(ctx, store, args[1])
			if err != nil {
				return err
			}

			phases, err := a.plan(ctx, store, args[0], caseID)
			if err != nil {
				return err
			}

			engine := a.newEngine(ctx, store)
			results := make([]*pipeline.Result, 0, len(phases))
			var failed *pipeline.Result
			for _, phase := range phases {
				runCtx, cancel := a.withTimeout(ctx)
				res := engine.Run(runCtx, phase, caseID, pipeline.RunOptions{Provider: provider})
				cancel()
				results = append(results, res)
				if !res.OK() {
					failed = res
					break
				}
			}

			var out any = results
			if len(results) == 1 {
				out = results[0]
			}
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if failed != nil {
				return failed.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "use", "u", "", "model provider for this run (overrides --provider)")
	return cmd
}

// plan turns the phase argument into the phases to run.
func (a *app) plan(ctx context.Context, store *storage.Store, arg, caseID string) ([]models.Phase, error) {
	switch strings.ToLower(arg) {
	case "next", "all":
	default:
		phase, err := models.ParsePhase(arg)
		if err != nil {
			return nil, err
		}
		return []models.Phase{phase}, nil
	}

	st, err := pipeline.Status(ctx, store, caseID)
	if err != nil {
		return nil, err
	}
	if st.NextPhase == "" {
		if st.Complete {
			return nil, errors.New("the analysis is complete; run a phase by name to redo it")
		}
		return nil, errors.New("no phase is ready; add inputs to the case first")
	}
	if strings.EqualFold(arg, "next") {
		return []models.Phase{st.NextPhase}, nil
	}

	var phases []models.Phase
	started := false
	for _, s := range pipeline.Sequence {
		if s.Phase == st.NextPhase {
			started = true
		}
		if started {
			phases = append(phases, s.Phase)
		}
	}
	a.logger.Debug("running remaining phases", zap.Int("phases", len(phases)))
	return phases, nil
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <case>",
		Short: "Show which phases are done and ready for a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			id, err := findCase(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			st, err := pipeline.Status(cmd.Context(), store, id)
			if err != nil {
				return fmt.Errorf("case status: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}
