package bench

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Baseline format changes.
const baselineSchemaVersion uint16 = 1

// BaselineEntry is the stored measurement of one scenario.
type BaselineEntry struct {
	Scenario   string `msgpack:"scenario"`
	Branches   int    `msgpack:"branches"`
	Order      string `msgpack:"order"`
	Iterations int    `msgpack:"iterations"`
	NsPerIter  int64  `msgpack:"ns_per_iter"`
	Passes     int    `msgpack:"passes"`
	Drives     int    `msgpack:"drives"`
}

// Baseline is a saved benchmark run used for comparison.
type Baseline struct {
	Schema  uint16          `msgpack:"schema"`
	Created time.Time       `msgpack:"created"`
	Clock   string          `msgpack:"clock"`
	Entries []BaselineEntry `msgpack:"entries"`
}

// NewBaseline builds a baseline from reports.
func NewBaseline(clock string, reports []Report) *Baseline {
	b := &Baseline{Schema: baselineSchemaVersion, Created: time.Now().UTC(), Clock: clock}
	for _, r := range reports {
		b.Entries = append(b.Entries, BaselineEntry{
			Scenario:   r.Scenario,
			Branches:   r.Branches,
			Order:      r.Order,
			Iterations: r.Iterations,
			NsPerIter:  r.NsPerIter,
			Passes:     r.Passes,
			Drives:     r.Drives,
		})
	}
	sort.Slice(b.Entries, func(i, j int) bool { return b.Entries[i].Scenario < b.Entries[j].Scenario })
	return b
}

// Lookup returns the entry recorded for scenario.
func (b *Baseline) Lookup(scenario string) (BaselineEntry, bool) {
	if b == nil {
		return BaselineEntry{}, false
	}
	for _, e := range b.Entries {
		if e.Scenario == scenario {
			return e, true
		}
	}
	return BaselineEntry{}, false
}

// SaveBaseline writes b to path atomically.
func SaveBaseline(path string, b *Baseline) (err error) {
	if b == nil {
		return errors.New("nil baseline")
	}
	if b.Schema == 0 {
		b.Schema = baselineSchemaVersion
	}
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".baseline-*")
	if err != nil {
		return fmt.Errorf("create baseline: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(b); err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close baseline: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace baseline: %w", err)
	}
	return nil
}

// LoadBaseline reads a baseline. It reports false when the file does not exist.
func LoadBaseline(path string) (*Baseline, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var b Baseline
	if err := msgpack.NewDecoder(f).Decode(&b); err != nil {
		return nil, false, fmt.Errorf("decode baseline %s: %w", path, err)
	}
	if b.Schema != baselineSchemaVersion {
		return nil, false, fmt.Errorf("baseline %s: unsupported schema %d (want %d)", path, b.Schema, baselineSchemaVersion)
	}
	return &b, true, nil
}

// Delta compares one report against its baseline entry.
type Delta struct {
	Scenario   string
	Before     int64
	After      int64
	Percent    float64 // negative means faster
	Comparable bool
}

// Compare matches reports measured under clock to baseline entries by
// scenario name. Nothing is comparable across clock modes, and scenarios with
// a different shape (branches or scan order) are not comparable either.
func Compare(b *Baseline, clock string, reports []Report) []Delta {
	sameClock := b != nil && b.Clock == clock
	out := make([]Delta, 0, len(reports))
	for _, r := range reports {
		d := Delta{Scenario: r.Scenario, After: r.NsPerIter}
		e, ok := b.Lookup(r.Scenario)
		if ok && sameClock && e.Branches == r.Branches && e.Order == r.Order && e.NsPerIter > 0 {
			d.Before = e.NsPerIter
			d.Percent = float64(r.NsPerIter-e.NsPerIter) * 100 / float64(e.NsPerIter)
			d.Comparable = true
		}
		out = append(out, d)
	}
	return out
}
