package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "provokers-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// setupStore opens a fresh case DB in a temp directory with the schema applied.
func setupStore(t *testing.T) *Store {
	t.Helper()
	return setupStoreWithDriver(t, DriverNcruces)
}

func setupStoreWithDriver(t *testing.T, driver string) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(tempDir(t), "cases.db"), driver)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return s
}

// setupCase creates a case to hang child records on.
func setupCase(t *testing.T, s *Store) *models.Case {
	t.Helper()
	c, err := s.CreateCase(context.Background(), "case-1", "test case")
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	return c
}

func TestOpenCreatesDir(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "nested", "data", "cases.db")
	s, err := Open(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected db file at %s: %v", path, err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(tempDir(t), "x.db"), "postgres")
	if err == nil {
		t.Fatal("Expected error for unknown driver")
	}
}

func TestInitSchemaIdempotent(t *testing.T) {
	s := setupStore(t)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}
}

func TestDrivers(t *testing.T) {
	for _, driver := range []string{DriverNcruces, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := setupStoreWithDriver(t, driver)
			c := setupCase(t, s)

			if _, err := s.AddInput(ctx, c.ID, "hello", models.InputPhrase, map[string]any{"source": "test"}); err != nil {
				t.Fatalf("AddInput: %v", err)
			}
			inputs, err := s.ListInputs(ctx, c.ID)
			if err != nil {
				t.Fatalf("ListInputs: %v", err)
			}
			if len(inputs) != 1 || inputs[0].Metadata["source"] != "test" {
				t.Errorf("inputs = %+v", inputs)
			}
		})
	}
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	c := setupCase(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.AddPattern(ctx, models.Pattern{CaseID: c.ID, Description: "rolled back", Recurrence: models.RecurrenceLow}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}

	patterns, err := s.ListPatterns(ctx, c.ID)
	if err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("Expected 0 patterns after rollback, got %d", len(patterns))
	}
}

func TestWithTxNested(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	c := setupCase(t, s)

	err := s.WithTx(ctx, func(tx *Store) error {
		// UpsertAxisState opens its own WithTx; it must join the outer one.
		if _, err := tx.UpsertAxisState(ctx, models.AxisState{CaseID: c.ID, AxisName: "Power", Status: models.AxisDefined}); err != nil {
			return err
		}
		return tx.UpdateCaseStatus(ctx, c.ID, "axis_classification")
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	got, err := s.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if got.Status != "axis_classification" {
		t.Errorf("Status = %q, want axis_classification", got.Status)
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	s := setupStore(t)
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }
	a := s.timestamp()
	s.now = func() time.Time { return base.Add(1500 * time.Microsecond) }
	b := s.timestamp()
	if len(a) != len(b) || a >= b {
		t.Errorf("timestamps %q and %q do not sort", a, b)
	}
}
