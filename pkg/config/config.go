// Package config loads UnDAG's optional ambient configuration file,
// undag.yml: a handful of knobs (entry point override, step budget, trace
// sink) that shape how a run is driven without touching the language's
// semantics. A repository with no undag.yml runs under sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the parsed, validated contents of undag.yml.
type Config struct {
	// Entry overrides which tag the driver starts from. Empty means the
	// driver uses _start, per spec §3.
	Entry string

	// MaxSteps bounds how many instructions a run may execute before the
	// driver gives up rather than loop forever on a malformed graft. Zero
	// means unbounded.
	MaxSteps int

	// Trace, when true, tells the CLI to write a commit-by-commit trace
	// to stderr as the driver runs.
	Trace bool
}

// ValidationError aggregates every problem found in undag.yml, so a
// malformed file is reported in one pass rather than field-by-field.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid undag.yml"
	}
	var b strings.Builder
	b.WriteString("undag.yml validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type configFile struct {
	Entry    string `yaml:"entry"`
	MaxSteps *int   `yaml:"max_steps"`
	Trace    bool   `yaml:"trace"`
}

// Default returns the configuration a repository with no undag.yml runs
// under: no entry override, no step budget (unbounded), no trace.
func Default() Config {
	return Config{}
}

// Load reads undag.yml from dir if present. A missing file is not an
// error — it yields Default(). A present-but-malformed file is.
func Load(dir string) (Config, error) {
	path := filepath.Join(dir, "undag.yml")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := Config{
		Entry:    strings.TrimSpace(raw.Entry),
		MaxSteps: Default().MaxSteps,
		Trace:    raw.Trace,
	}
	if raw.MaxSteps != nil {
		cfg.MaxSteps = *raw.MaxSteps
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs ValidationError
	if c.MaxSteps < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}
