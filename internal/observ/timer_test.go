package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("config")
	tm.End(idx, "defaults")
	tm.Record("select_many", 3*time.Millisecond, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("want 2 phases, got %d", len(r.Phases))
	}
	if r.Phases[0].Note != "defaults" || r.Phases[1].DurationMS != 3 {
		t.Fatalf("unexpected phases: %+v", r.Phases)
	}
	if r.TotalMS < 3 {
		t.Fatalf("total %v must include recorded phase", r.TotalMS)
	}
}

func TestTimerTrackNotesFailure(t *testing.T) {
	tm := NewTimer()
	boom := errors.New("boom")
	if err := tm.Track("baseline", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Track must return fn error, got %v", err)
	}
	if !strings.Contains(tm.Summary(), "// failed: boom") {
		t.Fatalf("summary should carry the failure:\n%s", tm.Summary())
	}
}

func TestNilTimerIsInert(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	if len(tm.Report().Phases) != 0 {
		t.Fatalf("nil timer must report nothing")
	}
}
