package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"off", LevelOff, false},
		{"PHASE", LevelPhase, false},
		{" detail ", LevelDetail, false},
		{"debug", LevelDebug, false},
		{"loud", LevelOff, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestShouldEmitByScope(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeCycle) {
		t.Fatalf("phase level must not emit cycle events")
	}
	if !LevelDetail.ShouldEmit(ScopeCycle) || LevelDetail.ShouldEmit(ScopeTask) {
		t.Fatalf("detail level must emit cycles but not tasks")
	}
	if !LevelDebug.ShouldEmit(ScopeTask) {
		t.Fatalf("debug level must emit task events")
	}
	if LevelError.ShouldEmit(ScopeRun) {
		t.Fatalf("error level must not stream events")
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		ring.Emit(&Event{Kind: KindPoint, Scope: ScopeTask, Name: name})
	}
	snap := ring.Snapshot()
	if len(snap) != 3 || ring.Len() != 3 {
		t.Fatalf("want 3 events, got %d", len(snap))
	}
	var names []string
	for _, ev := range snap {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "c,d,e" {
		t.Fatalf("snapshot order mismatch: got %s", got)
	}
	if ring.Dropped() != 2 {
		t.Fatalf("want 2 dropped events, got %d", ring.Dropped())
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDetail, FormatNDJSON)
	Point(st, ScopeCycle, "cycle", "winner=0")
	Point(st, ScopeTask, "spawn", "filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want 1 line, got %d: %q", len(lines), buf.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["scope"] != "cycle" || decoded["detail"] != "winner=0" {
		t.Fatalf("unexpected event: %v", decoded)
	}
}

func TestSpanTextOutput(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatText)
	span := Begin(st, ScopeScenario, "select_some", 0)
	span.WithExtra("iters", "3").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ scenario:select_some") {
		t.Fatalf("missing begin line: %q", out)
	}
	if !strings.Contains(out, "← scenario:select_some (ok) {iters=3}") {
		t.Fatalf("missing end line: %q", out)
	}
}

func TestSpanFailMarksExtra(t *testing.T) {
	ring := NewRingTracer(4, LevelPhase)
	Begin(ring, ScopeScenario, "select_many", 0).Fail(errors.New("poll budget of 5 exhausted"))
	snap := ring.Snapshot()
	end := snap[len(snap)-1]
	if end.Kind != KindSpanEnd || end.Detail != "poll budget of 5 exhausted" || end.Extra["failed"] != "true" {
		t.Fatalf("unexpected end event: %+v", end)
	}
}

func TestHeartbeatReportsProgress(t *testing.T) {
	ring := NewRingTracer(8, LevelError)
	progress := []string{"", "select_many polls=10", "select_many polls=25", "select_many polls=25"}
	next := 0
	h := newHeartbeat(ring, time.Second, func() string {
		cur := progress[next]
		next++
		return cur
	})
	for range progress {
		h.beat()
	}
	var details []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind != KindHeartbeat {
			t.Fatalf("unexpected event kind %v", ev.Kind)
		}
		details = append(details, ev.Detail)
	}
	want := []string{
		"#1 idle",
		"#2 select_many polls=10",
		"#3 select_many polls=25",
		"#4 stalled select_many polls=25",
	}
	if strings.Join(details, "|") != strings.Join(want, "|") {
		t.Fatalf("heartbeat details = %q, want %q", details, want)
	}
}

func TestHeartbeatStopIsIdempotent(t *testing.T) {
	if StartHeartbeat(Nop, time.Millisecond, nil) != nil {
		t.Fatalf("disabled tracer must not start a heartbeat")
	}
	ring := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond, nil)
	deadline := time.Now().Add(2 * time.Second)
	for ring.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	n := ring.Len()
	if n == 0 {
		t.Fatalf("no heartbeat emitted")
	}
	time.Sleep(5 * time.Millisecond)
	if ring.Len() != n {
		t.Fatalf("heartbeat kept running after Stop")
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	a := NewRingTracer(8, LevelDebug)
	b := NewRingTracer(8, LevelDebug)
	m := NewMultiTracer(LevelDebug, a, b)
	Point(m, ScopeTask, "wake", "")
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("fan-out mismatch: %d %d", a.Len(), b.Len())
	}
	if RingOf(m) != a {
		t.Fatalf("RingOf should return the first ring")
	}
}

func TestContextPropagation(t *testing.T) {
	ring := NewRingTracer(8, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer not propagated")
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer should fall back to Nop")
	}
	span := Begin(ring, ScopeRun, "run", 0)
	ctx = WithSpan(ctx, span)
	if ParentSpan(ctx) != span.ID() {
		t.Fatalf("parent span = %d, want %d", ParentSpan(ctx), span.ID())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("off tracer must be disabled")
	}
}
