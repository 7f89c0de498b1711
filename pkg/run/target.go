package run

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Target is one report variant to fetch and store during a run.
// Constructed once at startup and immutable afterwards.
type Target struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Destination string `yaml:"destination"`
}

// Status is the mutable per-target run state, owned exclusively by the
// orchestrator. Completed implies the document was durably upserted in
// the primary store for this run's target date.
type Status struct {
	Completed bool
	Attempts  int
	LastError string
}

// DefaultTargets returns the three balance-sheet variants served by the
// Laudus API.
func DefaultTargets() []Target {
	return []Target{
		{Name: "totals", Path: "/accounting/balanceSheet/totals", Destination: "balance_totals"},
		{Name: "standard", Path: "/accounting/balanceSheet/standard", Destination: "balance_standard"},
		{Name: "8Columns", Path: "/accounting/balanceSheet/8Columns", Destination: "balance_8columns"},
	}
}

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargetsFile reads the target list from a YAML file. An empty path
// yields the compiled-in defaults.
func LoadTargetsFile(path string) ([]Target, error) {
	if path == "" {
		return DefaultTargets(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing targets file: %w", err)
	}
	if len(tf.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s lists no targets", path)
	}
	seen := make(map[string]bool, len(tf.Targets))
	for i, t := range tf.Targets {
		if t.Name == "" || t.Path == "" || t.Destination == "" {
			return nil, fmt.Errorf("target %d: name, path and destination are required", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate target name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return tf.Targets, nil
}
