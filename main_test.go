package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/pipeline"
)

// cliEnv points the CLI at a fresh database and keeps it away from any
// provokers.yaml or provider keys on the host.
func cliEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("PROVOKERS_DB_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("PROVOKERS_LOG_LEVEL", "error")
	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(key, "")
	}
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("provokers %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLI_CaseAndInputs(t *testing.T) {
	cliEnv(t)

	var c models.Case
	if err := json.Unmarshal([]byte(mustRun(t, "case", "create", "warehouse-lead", "-d", "night shift")), &c); err != nil {
		t.Fatalf("parse case create: %v", err)
	}
	if c.Identifier != "warehouse-lead" || c.Description != "night shift" {
		t.Errorf("case = %+v", c)
	}

	mustRun(t, "input", "add", "warehouse-lead", "Nobody else can do it right", "--type", "narrativa")
	mustRun(t, "input", "add", c.ID, "I'll cover the weekend too", "--metadata", `{"source":"interview"}`)

	var inputs []models.Input
	if err := json.Unmarshal([]byte(mustRun(t, "input", "list", "warehouse-lead")), &inputs); err != nil {
		t.Fatalf("parse input list: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("got %d inputs, want 2", len(inputs))
	}
	if inputs[0].InputType != models.InputNarrative {
		t.Errorf("input type = %q, want narrative", inputs[0].InputType)
	}
	if inputs[1].Metadata["source"] != "interview" {
		t.Errorf("metadata = %v", inputs[1].Metadata)
	}
	if err := json.Unmarshal([]byte(mustRun(t, "input", "search", "warehouse-lead", "weekend")), &inputs); err != nil {
		t.Fatalf("parse input search: %v", err)
	}
	if len(inputs) != 1 || inputs[0].ID == "" || inputs[0].Content != "I'll cover the weekend too" {
		t.Errorf("search = %+v", inputs)
	}

	var st pipeline.CaseStatus
	if err := json.Unmarshal([]byte(mustRun(t, "status", "warehouse-lead")), &st); err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if st.NextPhase != models.PhasePatternDetection || st.State.Inputs != 2 {
		t.Errorf("status = %+v", st)
	}

	var report models.CaseReport
	if err := yaml.Unmarshal([]byte(mustRun(t, "case", "export", "warehouse-lead", "--format", "yaml")), &report); err != nil {
		t.Fatalf("parse yaml export: %v", err)
	}
	if report.Case.ID != c.ID || len(report.Inputs) != 2 || report.Threshold != nil {
		t.Errorf("report = %+v", report)
	}

	mustRun(t, "case", "delete", "warehouse-lead")
	if _, err := runCLI(t, "case", "show", c.ID); err == nil {
		t.Error("case show after delete should fail")
	}
}

func TestCLI_AnalyzeReportsPhaseErrors(t *testing.T) {
	cliEnv(t)
	mustRun(t, "case", "create", "quiet")

	out, err := runCLI(t, "analyze", "pattern-detection", "quiet")
	if err == nil {
		t.Fatal("analyze without inputs should fail")
	}
	var res pipeline.Result
	if jerr := json.Unmarshal([]byte(out), &res); jerr != nil {
		t.Fatalf("parse analyze output: %v\n%s", jerr, out)
	}
	if res.Err == nil || res.Err.Kind != pipeline.KindPreconditionFailed {
		t.Errorf("result error = %+v, want precondition_failed", res.Err)
	}

	if _, err := runCLI(t, "analyze", "next", "quiet"); err == nil {
		t.Error("analyze next with no ready phase should fail")
	}
	if _, err := runCLI(t, "analyze", "phase-nine", "quiet"); err == nil {
		t.Error("unknown phase should fail")
	}

	// Without an API key the default provider fails as a model error.
	mustRun(t, "input", "add", "quiet", "I keep my head down")
	out, err = runCLI(t, "analyze", "next", "quiet")
	if err == nil {
		t.Fatal("analyze without an API key should fail")
	}
	if jerr := json.Unmarshal([]byte(out), &res); jerr != nil {
		t.Fatalf("parse analyze output: %v\n%s", jerr, out)
	}
	if res.Err == nil || res.Err.Kind != pipeline.KindModelInvocationFailed {
		t.Errorf("result error = %+v, want model_invocation_failed", res.Err)
	}
}

func TestCLI_ConfigValidation(t *testing.T) {
	cliEnv(t)
	if _, err := runCLI(t, "case", "list", "--driver", "postgres"); err == nil {
		t.Error("unknown driver should be rejected")
	}
	out := mustRun(t, "case", "list", "--driver", "modernc")
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("case list = %q, want []", out)
	}
}

func TestCLI_Doctor(t *testing.T) {
	cliEnv(t)
	t.Setenv("PROVOKERS_PROVIDERS_OLLAMA_HOST", "http://127.0.0.1:1")

	out, err := runCLI(t, "doctor")
	if err == nil {
		t.Error("doctor should fail when the default provider has no API key")
	}
	var report doctorReport
	if jerr := json.Unmarshal([]byte(out), &report); jerr != nil {
		t.Fatalf("parse doctor output: %v\n%s", jerr, out)
	}

	byName := map[string]doctorCheck{}
	for _, c := range report.Checks {
		byName[c.Name] = c
	}
	if byName["database"].Status != statusOK {
		t.Errorf("database check = %+v", byName["database"])
	}
	if byName["templates"].Status != statusOK {
		t.Errorf("templates check = %+v", byName["templates"])
	}
	if c := byName["provider:openai"]; c.Status != statusError || c.Fix != "set OPENAI_API_KEY" {
		t.Errorf("openai check = %+v", c)
	}
	if c := byName["provider:ollama"]; c.Status != statusWarning {
		t.Errorf("unreachable non-default ollama should warn, got %+v", c)
	}
}
