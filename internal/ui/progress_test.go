package ui

import (
	"strings"
	"testing"

	"coselect/internal/bench"
)

func TestApplyEventTracksScenario(t *testing.T) {
	m := NewProgressModel("bench", []string{"select_some", "select_many"}, nil).(*progressModel)
	m.applyEvent(bench.Event{Scenario: "select_some", Status: bench.StatusWorking, Iteration: 50, Total: 100})
	m.applyEvent(bench.Event{Scenario: "unknown", Status: bench.StatusDone})
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("fraction = %v, want 0.25", got)
	}
	m.applyEvent(bench.Event{Scenario: "select_many", Status: bench.StatusDone, Iteration: 100, Total: 100})
	if got := m.fraction(); got != 0.75 {
		t.Fatalf("fraction = %v, want 0.75", got)
	}
	view := m.View()
	if !strings.Contains(view, "50/100") || !strings.Contains(view, "select_many") {
		t.Fatalf("view misses progress:\n%s", view)
	}
}

func TestErrorMarksRunFailed(t *testing.T) {
	m := NewProgressModel("bench", []string{"a"}, nil).(*progressModel)
	m.applyEvent(bench.Event{Scenario: "a", Status: bench.StatusError})
	m.done = true
	if !strings.Contains(m.View(), "failed: bench") {
		t.Fatalf("failed run must be labelled:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"select_many", 20, "select_many"},
		{"select_many", 8, "selec..."},
		{"select_many", 2, "se"},
		{"スケジューラ", 7, "スケ..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
