// Package config loads coselect.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"coselect/internal/asyncrt"
	"coselect/internal/bench"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "coselect.toml"

// DefaultIterations is used when [run].iterations is absent.
const DefaultIterations = 1000

// Config is the resolved benchmark configuration.
type Config struct {
	Path      string // empty when built from defaults
	Root      string
	Run       Run
	Scenarios []bench.Scenario
}

// Run holds the [run] section.
type Run struct {
	Iterations int
	Jobs       int
	Clock      asyncrt.ClockMode
	Fuzz       bool
	Seed       uint64
	MaxPolls   uint64
	Baseline   string // absolute, or empty
}

type fileConfig struct {
	Run       runSection        `toml:"run"`
	Scenarios []scenarioSection `toml:"scenario"`
}

type runSection struct {
	Iterations int    `toml:"iterations"`
	Jobs       int    `toml:"jobs"`
	Clock      string `toml:"clock"`
	Fuzz       bool   `toml:"fuzz"`
	Seed       uint64 `toml:"seed"`
	MaxPolls   uint64 `toml:"max_polls"`
	Baseline   string `toml:"baseline"`
}

type scenarioSection struct {
	Name      string  `toml:"name"`
	Branches  int     `toml:"branches"`
	Cycles    *int    `toml:"cycles"`
	Threshold *uint32 `toml:"threshold"`
	Latency   *string `toml:"latency"`
	Order     string  `toml:"order"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Run:       Run{Iterations: DefaultIterations, Clock: asyncrt.ClockVirtual},
		Scenarios: bench.DefaultScenarios(),
	}
}

// Find walks up from startDir looking for coselect.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest coselect.toml, falling back to Default when
// none exists. The boolean reports whether a file was found.
func Discover(startDir string) (*Config, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return Default(), false, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// Load parses and validates the file at path.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(abs, &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", abs, strings.Join(keys, ", "))
	}
	cfg, err := resolve(raw, meta, filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", abs, err)
	}
	cfg.Path = abs
	return cfg, nil
}

func resolve(raw fileConfig, meta toml.MetaData, root string) (*Config, error) {
	cfg := Default()
	cfg.Root = root

	run := raw.Run
	if meta.IsDefined("run", "iterations") {
		if run.Iterations < 1 {
			return nil, fmt.Errorf("[run].iterations must be positive, got %d", run.Iterations)
		}
		cfg.Run.Iterations = run.Iterations
	}
	if run.Jobs < 0 {
		return nil, fmt.Errorf("[run].jobs must not be negative, got %d", run.Jobs)
	}
	cfg.Run.Jobs = run.Jobs
	clock, err := asyncrt.ParseClockMode(run.Clock)
	if err != nil {
		return nil, fmt.Errorf("[run].clock: %w", err)
	}
	cfg.Run.Clock = clock
	cfg.Run.Fuzz = run.Fuzz
	cfg.Run.Seed = run.Seed
	cfg.Run.MaxPolls = run.MaxPolls
	if b := strings.TrimSpace(run.Baseline); b != "" {
		if !filepath.IsAbs(b) {
			b = filepath.Join(root, filepath.FromSlash(b))
		}
		cfg.Run.Baseline = b
	}

	if !meta.IsDefined("scenario") {
		return cfg, nil
	}
	cfg.Scenarios = cfg.Scenarios[:0]
	seen := make(map[string]int, len(raw.Scenarios))
	for i, s := range raw.Scenarios {
		sc, err := s.scenario()
		if err != nil {
			return nil, fmt.Errorf("[[scenario]] #%d: %w", i+1, err)
		}
		if prev, dup := seen[sc.Key()]; dup {
			return nil, fmt.Errorf("[[scenario]] #%d: duplicate name %q (first defined in #%d)", i+1, sc.Key(), prev)
		}
		seen[sc.Key()] = i + 1
		cfg.Scenarios = append(cfg.Scenarios, sc)
	}
	return cfg, nil
}

func (s scenarioSection) scenario() (bench.Scenario, error) {
	sc := bench.Scenario{
		Name:      norm.NFC.String(strings.TrimSpace(s.Name)),
		Branches:  s.Branches,
		Cycles:    bench.DefaultCycles,
		Threshold: bench.DefaultThreshold,
		Latency:   bench.DefaultLatency,
	}
	if s.Cycles != nil {
		sc.Cycles = *s.Cycles
	}
	if s.Threshold != nil {
		sc.Threshold = *s.Threshold
	}
	if s.Latency != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*s.Latency))
		if err != nil {
			return bench.Scenario{}, fmt.Errorf("latency: %w", err)
		}
		sc.Latency = d
	}
	order, err := asyncrt.ParseScanOrder(s.Order)
	if err != nil {
		return bench.Scenario{}, err
	}
	sc.Order = order
	if err := sc.Validate(); err != nil {
		return bench.Scenario{}, err
	}
	return sc, nil
}

// Select returns the scenarios named in names, in the order given. All
// scenarios are returned when names is empty.
func (c *Config) Select(names []string) ([]bench.Scenario, error) {
	if len(names) == 0 {
		return append([]bench.Scenario(nil), c.Scenarios...), nil
	}
	byKey := make(map[string]bench.Scenario, len(c.Scenarios))
	for _, sc := range c.Scenarios {
		byKey[sc.Key()] = sc
	}
	out := make([]bench.Scenario, 0, len(names))
	for _, name := range names {
		key := norm.NFC.String(strings.TrimSpace(name))
		sc, ok := byKey[key]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, sc)
	}
	return out, nil
}

// Options converts the [run] section into runner options.
func (r Run) Options() bench.Options {
	return bench.Options{
		Iterations: r.Iterations,
		Jobs:       r.Jobs,
		Clock:      r.Clock,
		Fuzz:       r.Fuzz,
		Seed:       r.Seed,
		MaxPolls:   r.MaxPolls,
	}
}
