package asyncrt

import (
	"strings"
	"testing"
)

func TestSlotFulfillEmptyIsNoop(t *testing.T) {
	var s Slot
	if s.Fulfill() {
		t.Fatalf("fulfilling an empty slot must report false")
	}
	var nilSlot *Slot
	if nilSlot.Fulfill() || nilSlot.Pending() {
		t.Fatalf("nil slot must behave as empty")
	}
}

func TestSlotLastRegistrationWins(t *testing.T) {
	exec := NewExecutor(Config{})
	var shared Slot
	parked := func(cx *Context) Poll[int] {
		shared.Register(cx.Waker())
		return Pending[int]()
	}
	first := Spawn[int](exec, "first", FutureFunc[int](parked))
	second := Spawn[int](exec, "second", FutureFunc[int](parked))
	for i := 0; i < 2; i++ {
		if _, err := exec.RunOnce(); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}
	if shared.Registered() != 2 {
		t.Fatalf("want 2 registrations, got %d", shared.Registered())
	}
	if !shared.Fulfill() {
		t.Fatalf("slot should hold a waker")
	}
	if got := exec.Task(first.ID()).Status; got != TaskWaiting {
		t.Fatalf("first task must stay parked, got %s", got)
	}
	if got := exec.Task(second.ID()).Status; got != TaskReady {
		t.Fatalf("second task must be runnable, got %s", got)
	}
	if shared.Pending() || shared.Fulfill() {
		t.Fatalf("fulfill must leave the slot empty")
	}
	if shared.Fulfilled() != 1 {
		t.Fatalf("want 1 fulfilled registration, got %d", shared.Fulfilled())
	}
}

func TestSlotCancelOnlyCurrentToken(t *testing.T) {
	var s Slot
	old := s.Register(Waker{})
	cur := s.Register(Waker{})
	if s.Cancel(old) {
		t.Fatalf("stale token must not clear the slot")
	}
	if !s.Cancel(cur) || s.Pending() {
		t.Fatalf("current token must clear the slot")
	}
}

func TestWakeOnlyFirstAfterSuspensionCounts(t *testing.T) {
	exec := NewExecutor(Config{})
	var captured Waker
	drives := 0
	h := Spawn[int](exec, "parked", FutureFunc[int](func(cx *Context) Poll[int] {
		drives++
		if drives == 3 {
			return Ready(drives)
		}
		captured = cx.Waker()
		return Pending[int]()
	}))
	if _, err := exec.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	first := captured
	first.Wake()
	first.Wake()
	if got := exec.Stats().Wakes; got != 1 {
		t.Fatalf("want 1 effective wake, got %d", got)
	}
	if _, err := exec.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	// The task was driven again, so the first waker is stale now.
	first.Wake()
	if got := exec.Task(h.ID()).Status; got != TaskWaiting {
		t.Fatalf("stale waker resumed the task: status %s", got)
	}
	if got := exec.Stats().StaleWakes; got != 1 {
		t.Fatalf("want 1 stale wake, got %d", got)
	}
	captured.Wake()
	got, err := Run(exec, h)
	if err != nil || got != 3 {
		t.Fatalf("Run = %d, %v", got, err)
	}
	captured.Wake()
	if got := exec.Stats().StaleWakes; got != 2 {
		t.Fatalf("waking a finished task must be a no-op, stale=%d", got)
	}
}

func TestCheckpointYieldsOnce(t *testing.T) {
	exec := NewExecutor(Config{})
	var order []string
	mk := func(name string) Future[struct{}] {
		cp := Yield()
		return FutureFunc[struct{}](func(cx *Context) Poll[struct{}] {
			order = append(order, name)
			return cp.Poll(cx)
		})
	}
	a := Spawn(exec, "a", mk("a"))
	Spawn(exec, "b", mk("b"))
	if _, err := Run(exec, a); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(order, ","); got != "a,b,a" {
		t.Fatalf("FIFO yield order mismatch: %s", got)
	}
}

func TestCurrentTracksDrivenTask(t *testing.T) {
	exec := NewExecutor(Config{})
	var seen []TaskID
	record := FutureFunc[int](func(cx *Context) Poll[int] {
		seen = append(seen, exec.Current())
		return Ready(0)
	})
	a := Spawn[int](exec, "a", record)
	b := Spawn[int](exec, "b", record)
	if _, err := Run(exec, b); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 2 || seen[0] != a.ID() || seen[1] != b.ID() {
		t.Fatalf("want current ids [%d %d], got %v", a.ID(), b.ID(), seen)
	}
	if exec.Current() != 0 {
		t.Fatalf("no task is driven outside RunOnce, got %d", exec.Current())
	}
}

func TestRunReportsDeadlock(t *testing.T) {
	exec := NewExecutor(Config{})
	var nobody Slot
	_, err := BlockOn[int](exec, "stuck", FutureFunc[int](func(cx *Context) Poll[int] {
		nobody.Register(cx.Waker())
		return Pending[int]()
	}))
	if !HasCode(err, PanicDeadlock) {
		t.Fatalf("want %s, got %v", PanicDeadlock, err)
	}
	if !strings.Contains(err.Error(), "1:stuck") {
		t.Fatalf("diagnostic should list the waiting task: %v", err)
	}
}

func TestRunPollBudget(t *testing.T) {
	exec := NewExecutor(Config{MaxPolls: 10})
	_, err := BlockOn[int](exec, "spinner", FutureFunc[int](func(cx *Context) Poll[int] {
		cx.Waker().Wake()
		return Pending[int]()
	}))
	if !HasCode(err, PanicPollBudget) {
		t.Fatalf("want %s, got %v", PanicPollBudget, err)
	}
	if exec.Stats().Polls != 10 {
		t.Fatalf("want 10 polls, got %d", exec.Stats().Polls)
	}
}

func TestGuardFailsLoudlyOnRepoll(t *testing.T) {
	g := Guard[int]("branch 3", FutureFunc[int](func(*Context) Poll[int] { return Ready(1) }))
	exec := NewExecutor(Config{})
	_, err := BlockOn[int](exec, "misuse", FutureFunc[int](func(cx *Context) Poll[int] {
		g.Poll(cx)
		return g.Poll(cx)
	}))
	if !HasCode(err, PanicPollAfterDone) {
		t.Fatalf("want %s, got %v", PanicPollAfterDone, err)
	}
	if !strings.Contains(err.Error(), "branch 3 polled after completion") {
		t.Fatalf("diagnostic should name the branch: %v", err)
	}
	if exec.Live() != 0 {
		t.Fatalf("failed task must be removed from the scheduler")
	}
}

func TestRunRejectsForeignHandle(t *testing.T) {
	a := NewExecutor(Config{})
	b := NewExecutor(Config{})
	h := Spawn[int](a, "x", FutureFunc[int](func(*Context) Poll[int] { return Ready(1) }))
	if _, err := Run(b, h); !HasCode(err, PanicInvalidHandle) {
		t.Fatalf("want %s, got %v", PanicInvalidHandle, err)
	}
}

func TestDoneTaskLeavesScheduler(t *testing.T) {
	exec := NewExecutor(Config{})
	h := Spawn[string](exec, "once", FutureFunc[string](func(*Context) Poll[string] { return Ready("ok") }))
	got, err := Run(exec, h)
	if err != nil || got != "ok" {
		t.Fatalf("Run = %q, %v", got, err)
	}
	if exec.Task(h.ID()) != nil || exec.Live() != 0 {
		t.Fatalf("done task must be removed")
	}
	if v, ok := h.Result(); !ok || v != "ok" {
		t.Fatalf("handle result = %q, %v", v, ok)
	}
	st := exec.Stats()
	if st.Spawned != 1 || st.Completed != 1 || st.Polls != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestFuzzSchedulingIsReproducible(t *testing.T) {
	record := func(seed uint64) string {
		exec := NewExecutor(Config{Fuzz: true, Seed: seed})
		var order []string
		var handles []JoinHandle[struct{}]
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			name := name
			left := 3
			handles = append(handles, Spawn[struct{}](exec, name, FutureFunc[struct{}](func(cx *Context) Poll[struct{}] {
				order = append(order, name)
				left--
				if left == 0 {
					return Ready(struct{}{})
				}
				cx.Waker().Wake()
				return Pending[struct{}]()
			})))
		}
		for _, h := range handles {
			if _, err := Run(exec, h); err != nil {
				t.Fatalf("Run: %v", err)
			}
		}
		return strings.Join(order, "")
	}
	a, b := record(99), record(99)
	if a != b {
		t.Fatalf("same seed gave different schedules: %s vs %s", a, b)
	}
	if len(a) != 15 {
		t.Fatalf("want 15 drives, got %d", len(a))
	}
}

func TestClockModes(t *testing.T) {
	vc := &VirtualClock{}
	vc.SleepMicros(50)
	vc.SleepMicros(50)
	if vc.NowMicros() != 100 {
		t.Fatalf("virtual clock = %d, want 100", vc.NowMicros())
	}
	rc := &RealClock{NowFunc: func() uint64 { return 7 }}
	if rc.NowMicros() != 7 {
		t.Fatalf("NowFunc override ignored")
	}
	rc.SleepMicros(0)

	mode, err := ParseClockMode("REAL")
	if err != nil || mode != ClockReal {
		t.Fatalf("ParseClockMode = %v, %v", mode, err)
	}
	if _, ok := NewClock(ClockVirtual).(*VirtualClock); !ok {
		t.Fatalf("virtual mode must yield VirtualClock")
	}
	if _, err := ParseClockMode("wall"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRuntimeErrorFormat(t *testing.T) {
	err := &RuntimeError{Code: PanicDeadlock, Message: "x"}
	if err.Error() != "panic RT2101: x" {
		t.Fatalf("unexpected format: %q", err.Error())
	}
	err.TaskID, err.TaskName = 2, "cycles"
	if err.Error() != "panic RT2101 in task 2 (cycles): x" {
		t.Fatalf("unexpected format: %q", err.Error())
	}
}
