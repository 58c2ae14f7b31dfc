package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestBaselineSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "baseline.msgpack")
	reports := []Report{
		{Scenario: "select_many", Branches: 8, Order: "fixed", Iterations: 10, NsPerIter: 2000},
		{Scenario: "select_some", Branches: 2, Order: "fixed", Iterations: 10, NsPerIter: 500},
	}
	if err := SaveBaseline(path, NewBaseline("virtual", reports)); err != nil {
		t.Fatalf("SaveBaseline: %v", err)
	}
	b, ok, err := LoadBaseline(path)
	if err != nil || !ok {
		t.Fatalf("LoadBaseline = %v, %v", ok, err)
	}
	if b.Clock != "virtual" || len(b.Entries) != 2 {
		t.Fatalf("unexpected baseline: %+v", b)
	}
	e, ok := b.Lookup("select_some")
	if !ok || e.NsPerIter != 500 || e.Branches != 2 {
		t.Fatalf("Lookup = %+v, %v", e, ok)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}

func TestLoadBaselineMissing(t *testing.T) {
	b, ok, err := LoadBaseline(filepath.Join(t.TempDir(), "none.msgpack"))
	if err != nil || ok || b != nil {
		t.Fatalf("missing baseline: %v, %v, %v", b, ok, err)
	}
}

func TestLoadBaselineRejectsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.msgpack")
	data, err := msgpack.Marshal(&Baseline{Schema: 99})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := LoadBaseline(path); err == nil {
		t.Fatalf("expected schema error")
	}
}

func TestCompare(t *testing.T) {
	b := NewBaseline("real", []Report{
		{Scenario: "a", Branches: 2, Order: "fixed", NsPerIter: 1000},
		{Scenario: "b", Branches: 8, Order: "fixed", NsPerIter: 1000},
	})
	deltas := Compare(b, "real", []Report{
		{Scenario: "a", Branches: 2, Order: "fixed", NsPerIter: 750},
		{Scenario: "b", Branches: 8, Order: "random", NsPerIter: 900},
		{Scenario: "c", Branches: 2, Order: "fixed", NsPerIter: 10},
	})
	if !deltas[0].Comparable || deltas[0].Percent != -25 {
		t.Fatalf("a: %+v", deltas[0])
	}
	if deltas[1].Comparable || deltas[2].Comparable {
		t.Fatalf("shape change or missing entry must not compare: %+v", deltas)
	}
	if got := Compare(nil, "real", []Report{{Scenario: "a"}}); got[0].Comparable {
		t.Fatalf("nil baseline must not compare")
	}
}

func TestCompareRejectsOtherClock(t *testing.T) {
	b := NewBaseline("virtual", []Report{{Scenario: "select_some", Branches: 2, Order: "fixed", NsPerIter: 400}})
	run := []Report{{Scenario: "select_some", Branches: 2, Order: "fixed", NsPerIter: 1_049_572}}
	if d := Compare(b, "real", run)[0]; d.Comparable || d.Percent != 0 || d.Before != 0 {
		t.Fatalf("real run must not compare against a virtual baseline: %+v", d)
	}
	if d := Compare(b, "virtual", run)[0]; !d.Comparable {
		t.Fatalf("same clock must compare: %+v", d)
	}
}
