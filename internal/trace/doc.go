// Package trace provides the tracing subsystem used as the structured log of
// coselect runs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	coselect run --trace=- --trace-level=detail
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr), text or NDJSON
//   - RingTracer: circular buffer dumped when a run fails
//   - MultiTracer: combines multiple tracers
//
// # Levels and scopes
//
// LevelPhase records ScopeRun and ScopeScenario, LevelDetail adds ScopeCycle
// (iterations and select cycles), LevelDebug adds ScopeTask (spawn and
// completion of every scheduler task).
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeScenario, "scenario:select_many", parentID)
//	defer span.End("")
package trace
