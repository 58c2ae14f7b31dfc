package bench

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"golang.org/x/sync/errgroup"

	"coselect/internal/asyncrt"
	"coselect/internal/trace"
)

// progressEvery bounds how often a scenario reports iteration progress.
const progressEvery = 64

// Options controls a benchmark run.
type Options struct {
	Iterations int
	Jobs       int
	Clock      asyncrt.ClockMode
	Fuzz       bool
	Seed       uint64
	MaxPolls   uint64 // per iteration, 0 = unlimited
	Progress   ProgressSink
	Monitor    *Monitor // receives live poll counts, may be nil
	// NewSink builds the cycle sink for a scenario. A Tally is used when nil.
	NewSink func(Scenario) CycleSink
}

// Report summarizes one scenario run.
type Report struct {
	Scenario      string
	Branches      int
	Order         string
	Iterations    int
	Cycles        int
	Elapsed       time.Duration
	NsPerIter     int64
	Passes        int
	Drives        int
	Polls         uint64
	Wakes         uint64
	StaleWakes    uint64
	VirtualMicros uint64
}

// PassesPerCycle returns the mean number of select passes per cycle.
func (r Report) PassesPerCycle() float64 {
	if r.Cycles == 0 {
		return 0
	}
	return float64(r.Passes) / float64(r.Cycles)
}

// RunScenario runs Iterations iterations of sc on a fresh executor. A single
// companion task serves every iteration.
func RunScenario(ctx context.Context, sc Scenario, opts Options) (Report, error) {
	if err := sc.Validate(); err != nil {
		return Report{}, err
	}
	iterations := max(opts.Iterations, 1)
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeScenario, sc.Key(), trace.ParentSpan(ctx))

	clock := asyncrt.NewClock(opts.Clock)
	exec := asyncrt.NewExecutor(asyncrt.Config{Fuzz: opts.Fuzz, Seed: opts.Seed, Tracer: tracer})
	comp := &companion{}
	live := opts.Monitor.counter(sc.Key())
	defer opts.Monitor.finish(sc.Key())
	asyncrt.Spawn[struct{}](exec, sc.Key()+" companion", comp)

	var sink CycleSink
	if opts.NewSink != nil {
		sink = opts.NewSink(sc)
	}
	if sink == nil {
		sink = &Tally{}
	}

	report := Report{
		Scenario:   sc.Key(),
		Branches:   sc.Branches,
		Order:      sc.Order.String(),
		Iterations: iterations,
	}
	notify(opts.Progress, Event{Scenario: report.Scenario, Status: StatusWorking, Total: iterations})

	startVirtual := clock.NowMicros()
	start := time.Now()
	var budgetBase uint64
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return report, err
		}
		iterSpan := trace.Begin(tracer, trace.ScopeCycle, fmt.Sprintf("iteration %d", i), span.ID())
		entry := asyncrt.Spawn[IterationSummary](exec, sc.Key(), newCycleLoop(sc, clock, sink))
		comp.target = entry.Slot()
		summary, err := runIteration(exec, entry, budgetBase, opts.MaxPolls, live)
		iterSpan.Fail(err)
		if err != nil {
			err = fmt.Errorf("scenario %s iteration %d: %w", sc.Key(), i, err)
			notify(opts.Progress, Event{Scenario: report.Scenario, Status: StatusError, Iteration: i, Total: iterations, Err: err})
			span.Fail(err)
			return report, err
		}
		budgetBase = exec.Stats().Polls
		report.Cycles += summary.Cycles
		report.Passes += summary.Passes
		report.Drives += summary.Drives
		if (i+1)%progressEvery == 0 {
			notify(opts.Progress, Event{Scenario: report.Scenario, Status: StatusWorking, Iteration: i + 1, Total: iterations, Elapsed: time.Since(start)})
		}
	}
	report.Elapsed = time.Since(start)
	report.VirtualMicros = clock.NowMicros() - startVirtual
	if n, err := safecast.Conv[int64](iterations); err == nil && n > 0 {
		report.NsPerIter = report.Elapsed.Nanoseconds() / n
	}
	st := exec.Stats()
	report.Polls = st.Polls
	report.Wakes = st.Wakes
	report.StaleWakes = st.StaleWakes

	span.WithExtra("iterations", fmt.Sprint(iterations)).WithExtra("passes", fmt.Sprint(report.Passes))
	span.End(fmt.Sprintf("%d ns/iter", report.NsPerIter))
	notify(opts.Progress, Event{Scenario: report.Scenario, Status: StatusDone, Iteration: iterations, Total: iterations, Elapsed: report.Elapsed})
	return report, nil
}

// runIteration runs entry to completion, failing once the executor has driven
// more than budget tasks since base. The poll count is published to live
// while it runs so a spinning iteration stays visible.
func runIteration(exec *asyncrt.Executor, entry asyncrt.JoinHandle[IterationSummary], base, budget uint64, live *atomic.Uint64) (IterationSummary, error) {
	defer publish(exec, live)
	for steps := 1; !entry.Done(); steps++ {
		if budget > 0 && exec.Stats().Polls-base >= budget {
			return IterationSummary{}, &asyncrt.RuntimeError{
				Code:     asyncrt.PanicPollBudget,
				TaskID:   entry.ID(),
				Message:  fmt.Sprintf("poll budget of %d exhausted", budget),
				TaskName: "iteration",
			}
		}
		ran, err := exec.RunOnce()
		if err != nil {
			return IterationSummary{}, err
		}
		if !ran {
			break
		}
		if steps%publishEvery == 0 {
			publish(exec, live)
		}
	}
	// Reports the deadlock when the loop ran dry.
	return asyncrt.Run(exec, entry)
}

func publish(exec *asyncrt.Executor, live *atomic.Uint64) {
	if live != nil {
		live.Store(exec.Stats().Polls)
	}
}

// RunAll runs the scenarios in parallel, each on its own executor, at most
// Jobs at a time. Reports keep the order of scenarios.
func RunAll(ctx context.Context, scenarios []Scenario, opts Options) ([]Report, error) {
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
	}
	if len(scenarios) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, sc := range scenarios {
		notify(opts.Progress, Event{Scenario: sc.Key(), Status: StatusQueued, Total: max(opts.Iterations, 1)})
	}

	reports := make([]Report, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(scenarios)))
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			r, err := RunScenario(gctx, sc, opts)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func notify(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
