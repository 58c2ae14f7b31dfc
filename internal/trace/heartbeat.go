package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a periodic liveness event carrying the progress reported by
// the run. A beat whose progress did not move since the previous one is
// marked stalled: a hung run stalls while a livelocked one keeps counting.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	progress func() string

	seq  uint64
	last string

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartHeartbeat starts emitting beats every interval until Stop. progress
// may be nil. It returns nil when tracing is off.
func StartHeartbeat(tracer Tracer, interval time.Duration, progress func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := newHeartbeat(tracer, interval, progress)
	go h.run()
	return h
}

func newHeartbeat(tracer Tracer, interval time.Duration, progress func() string) *Heartbeat {
	return &Heartbeat{
		tracer:   tracer,
		interval: interval,
		progress: progress,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (h *Heartbeat) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.beat()
		case <-h.stop:
			return
		}
	}
}

// beat emits one heartbeat. Only the heartbeat goroutine calls it.
func (h *Heartbeat) beat() {
	h.seq++
	detail := fmt.Sprintf("#%d", h.seq)
	if h.progress != nil {
		cur := h.progress()
		switch {
		case cur == "":
			detail += " idle"
		case h.seq > 1 && cur == h.last:
			detail += " stalled " + cur
		default:
			detail += " " + cur
		}
		h.last = cur
	}
	h.tracer.Emit(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeRun,
		GID:    getGoroutineID(),
		Name:   "heartbeat",
		Detail: detail,
	})
}

// Stop ends the heartbeat goroutine and waits for it. Safe on nil and safe to
// call twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
