package bench

import (
	"fmt"

	"coselect/internal/asyncrt"
	"coselect/internal/trace"
)

// Cycle is the observable outcome of one select call.
type Cycle struct {
	Index  int
	Winner int
	Value  Result
	Passes int
	Drives []int
}

// CycleSink receives every finished cycle. It keeps results observable so the
// work behind them cannot be elided.
type CycleSink interface {
	Cycle(c Cycle)
}

// CycleSinkFunc adapts a function to CycleSink.
type CycleSinkFunc func(c Cycle)

// Cycle calls f.
func (f CycleSinkFunc) Cycle(c Cycle) { f(c) }

// Tally is a CycleSink that folds cycles into totals.
type Tally struct {
	Cycles    int
	Passes    int
	Drives    int
	ValueSum  uint64
	WinnerSum int
}

// Cycle adds c to the totals.
func (t *Tally) Cycle(c Cycle) {
	t.Cycles++
	t.Passes += c.Passes
	for _, d := range c.Drives {
		t.Drives += d
	}
	t.ValueSum += uint64(c.Value.Count)
	t.WinnerSum += c.Winner
}

// IterationSummary is the value an entry task completes with.
type IterationSummary struct {
	Cycles int
	Passes int
	Drives int
}

// cycleLoop is the entry task body: Cycles select calls back to back, each
// over a fresh rendezvous and fresh probes.
type cycleLoop struct {
	sc      Scenario
	clock   asyncrt.Clock
	labels  []string
	sink    CycleSink
	latency uint64

	index   int
	sel     *asyncrt.SelectFuture[Result]
	summary IterationSummary
}

func newCycleLoop(sc Scenario, clock asyncrt.Clock, sink CycleSink) *cycleLoop {
	labels := make([]string, sc.Branches)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s branch %d", sc.Key(), i)
	}
	return &cycleLoop{
		sc:      sc,
		clock:   clock,
		labels:  labels,
		sink:    sink,
		latency: sc.latencyMicros(),
	}
}

func (l *cycleLoop) build() *asyncrt.SelectFuture[Result] {
	rv := &Rendezvous{Threshold: l.sc.Threshold}
	branches := make([]asyncrt.Branch[Result], l.sc.Branches)
	for i := range branches {
		// Branches is validated to fit in uint32.
		probe := NewProbe(uint32(i), rv, l.clock, l.latency) //nolint:gosec
		branches[i] = asyncrt.Branch[Result]{Tag: i, Future: asyncrt.Guard[Result](l.labels[i], probe)}
	}
	return asyncrt.SelectWith(asyncrt.SelectOptions{Order: l.sc.Order}, branches...)
}

func (l *cycleLoop) Poll(cx *asyncrt.Context) asyncrt.Poll[IterationSummary] {
	for l.index < l.sc.Cycles {
		if l.sel == nil {
			l.sel = l.build()
		}
		p := l.sel.Poll(cx)
		if !p.Ready {
			return asyncrt.Pending[IterationSummary]()
		}
		c := Cycle{
			Index:  l.index,
			Winner: p.Value.Tag,
			Value:  p.Value.Value,
			Passes: l.sel.Passes(),
			Drives: l.sel.Drives(),
		}
		l.summary.Cycles++
		l.summary.Passes += c.Passes
		for _, d := range c.Drives {
			l.summary.Drives += d
		}
		if l.sink != nil {
			l.sink.Cycle(c)
		}
		if tr := cx.Tracer(); tr.Enabled() && tr.Level().ShouldEmit(trace.ScopeCycle) {
			trace.Point(tr, trace.ScopeCycle, "cycle",
				fmt.Sprintf("%s #%d winner=%d value=%d passes=%d", l.sc.Key(), c.Index, c.Winner, c.Value.Count, c.Passes))
		}
		l.sel = nil
		l.index++
	}
	return asyncrt.Ready(l.summary)
}
