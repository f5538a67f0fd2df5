package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

func (a *app) caseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Create, inspect, export and delete cases",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <identifier>",
		Short: "Create a new case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			c, err := store.CreateCase(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "case description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cases, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			cases, err := store.ListCases(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cases)
		},
	}

	show := &cobra.Command{
		Use:   "show <case>",
		Short: "Show a case by id or identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			c, err := store.FindCase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}

	del := &cobra.Command{
		Use:   "delete <case>",
		Short: "Permanently delete a case and everything recorded for it",
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
			if err := store.DeleteCase(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Case %q permanently deleted.\n", args[0])
			return err
		},
	}

	var format, output string
	export := &cobra.Command{
		Use:   "export <case>",
		Short: "Export the full analysis report of a case as JSON or YAML",
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
			report, err := store.Report(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return writeReport(w, report, format)
		},
	}
	export.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	export.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	cmd.AddCommand(create, list, show, del, export)
	return cmd
}

func (a *app) inputCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "input",
		Short: "Record, list and search case inputs",
	}

	var inputType, metadata string
	add := &cobra.Command{
		Use:   "add <case> <content>",
		Short: "Add an observed phrase, speech, narrative or situation to a case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := models.ParseInputType(inputType)
			if err != nil {
				return err
			}
			var meta map[string]any
			if metadata != "" {
				if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
					return fmt.Errorf("parse --metadata: %w", err)
				}
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			id, err := findCase(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			in, err := store.AddInput(cmd.Context(), id, args[1], typ, meta)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), in)
		},
	}
	add.Flags().StringVarP(&inputType, "type", "t", "phrase", "input type: phrase, speech, narrative or situation")
	add.Flags().StringVar(&metadata, "metadata", "", "metadata as a JSON object")

	list := &cobra.Command{
		Use:   "list <case>",
		Short: "List the inputs of a case",
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
			inputs, err := store.ListInputs(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inputs)
		},
	}

	search := &cobra.Command{
		Use:   "search <case> <query>",
		Short: "Full-text search over the inputs of a case",
		Args:  cobra.ExactArgs(2),
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
			inputs, err := store.SearchInputs(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inputs)
		},
	}

	cmd.AddCommand(add, list, search)
	return cmd
}

// writeReport encodes a case report in the requested format.
func writeReport(w io.Writer, report *models.CaseReport, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		return printJSON(w, report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (use json or yaml)", format)
	}
}
