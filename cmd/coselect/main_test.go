package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"coselect/internal/bench"
	"coselect/internal/config"
	"coselect/internal/version"
)

func plainColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, "on": uiModeOn, " off ": uiModeOff} {
		got, err := readUIMode(in)
		if err != nil || got != want {
			t.Fatalf("readUIMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readUIMode("fancy"); err == nil {
		t.Fatalf("expected error")
	}
	if !shouldUseTUI(uiModeOn, true) || shouldUseTUI(uiModeOff, false) {
		t.Fatalf("explicit modes must win")
	}
}

func TestFormatDelta(t *testing.T) {
	plainColor(t)
	pct := func(v float64) *float64 { return &v }
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "n/a"},
		{pct(-25), "-25.0% faster"},
		{pct(10), "+10.0% slower"},
		{pct(0.5), "+0.5% unchanged"},
	}
	for _, tt := range tests {
		if got := formatDelta(tt.in); got != tt.want {
			t.Fatalf("formatDelta = %q, want %q", got, tt.want)
		}
	}
}

func TestRenderReport(t *testing.T) {
	plainColor(t)
	reports := []bench.Report{
		{Scenario: "select_some", Branches: 2, Order: "fixed", Iterations: 5, Cycles: 50, Passes: 550, NsPerIter: 1500},
		{Scenario: "select_many", Branches: 8, Order: "fixed", Iterations: 5, Cycles: 50, Passes: 550, NsPerIter: 3000},
	}
	deltas := []bench.Delta{{Scenario: "select_some", Before: 2000, After: 1500, Percent: -25, Comparable: true}, {Scenario: "select_many"}}
	rows := buildRows(reports, deltas)

	var pretty bytes.Buffer
	renderReportPretty(&pretty, rows)
	text := pretty.String()
	if !strings.Contains(text, "1.5µs") || !strings.Contains(text, "-25.0% faster") || !strings.Contains(text, "n/a") {
		t.Fatalf("unexpected report:\n%s", text)
	}

	var out bytes.Buffer
	if err := renderReportJSON(&out, rows); err != nil {
		t.Fatalf("renderReportJSON: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded[0]["passes_per_cycle"] != 11.0 || decoded[0]["delta_percent"] != -25.0 {
		t.Fatalf("unexpected json row: %v", decoded[0])
	}
	if _, ok := decoded[1]["delta_percent"]; ok {
		t.Fatalf("missing baseline must omit delta: %v", decoded[1])
	}
}

func TestSelectScenariosOverridesOrder(t *testing.T) {
	scenarios, err := selectScenarios(config.Default(), runFlags{order: "random", scenarios: []string{"select_many"}})
	if err != nil {
		t.Fatalf("selectScenarios: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Order.String() != "random" {
		t.Fatalf("unexpected selection: %+v", scenarios)
	}
	if _, err := selectScenarios(config.Default(), runFlags{order: "lifo"}); err == nil {
		t.Fatalf("expected invalid order error")
	}
}

func TestRenderScenarios(t *testing.T) {
	var buf bytes.Buffer
	renderScenarios(&buf, config.Default().Scenarios)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[2], "select_many") || !strings.Contains(lines[2], "50µs") {
		t.Fatalf("unexpected listing:\n%s", buf.String())
	}
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, version.Current()); err != nil {
		t.Fatalf("renderVersionJSON: %v", err)
	}
	var info version.Info
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil || info.Version != version.Version {
		t.Fatalf("decoded %+v, %v", info, err)
	}
}
