package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTargets(t *testing.T) {
	targets := DefaultTargets()
	if len(targets) != 3 {
		t.Fatalf("expected 3 default targets, got %d", len(targets))
	}
	names := []string{"totals", "standard", "8Columns"}
	for i, want := range names {
		if targets[i].Name != want {
			t.Fatalf("target %d: expected %q, got %q", i, want, targets[i].Name)
		}
		if targets[i].Path == "" || targets[i].Destination == "" {
			t.Fatalf("target %q incomplete: %+v", want, targets[i])
		}
	}
}

func TestLoadTargetsFileEmptyPathUsesDefaults(t *testing.T) {
	targets, err := LoadTargetsFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected defaults, got %d targets", len(targets))
	}
}

func TestLoadTargetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `targets:
  - name: totals
    path: /accounting/balanceSheet/totals
    destination: balance_totals
  - name: standard
    path: /accounting/balanceSheet/standard
    destination: balance_standard
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	targets, err := LoadTargetsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(targets))
	}
	if targets[1].Destination != "balance_standard" {
		t.Fatalf("unexpected destination %q", targets[1].Destination)
	}
}

func TestLoadTargetsFileRejectsIncompleteTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `targets:
  - name: totals
    path: /accounting/balanceSheet/totals
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadTargetsFile(path); err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestLoadTargetsFileRejectsDuplicateNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := `targets:
  - name: totals
    path: /a
    destination: x
  - name: totals
    path: /b
    destination: y
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadTargetsFile(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected a duplicate-name error, got %v", err)
	}
}
