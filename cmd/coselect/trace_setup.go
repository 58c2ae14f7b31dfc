package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"coselect/internal/trace"
)

// tracing owns the tracer attached to the command context.
type tracing struct {
	tracer    trace.Tracer
	heartbeat *trace.Heartbeat
	errOut    io.Writer
}

// setupTracing inspects trace-related flags and initializes the tracer.
// Heartbeats report progress when it is non-nil.
func setupTracing(cmd *cobra.Command, progress func() string) (*tracing, error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	t := &tracing{tracer: trace.Nop, errOut: cmd.ErrOrStderr()}

	// An output path without an explicit level still traces phases.
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return t, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	if traceOutput != "" && mode == trace.ModeRing {
		mode = trace.ModeBoth
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	t.tracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	if heartbeatInterval > 0 {
		t.heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval, progress)
	}
	return t, nil
}

// dumpRing writes the buffered events after a failed run.
func (t *tracing) dumpRing() {
	ring := trace.RingOf(t.tracer)
	if ring == nil || ring.Len() == 0 {
		return
	}
	if dropped := ring.Dropped(); dropped > 0 {
		fmt.Fprintf(t.errOut, "trace: last %d events (%d earlier events dropped):\n", ring.Len(), dropped)
	} else {
		fmt.Fprintf(t.errOut, "trace: last %d events:\n", ring.Len())
	}
	if err := ring.Dump(t.errOut, trace.FormatText); err != nil {
		fmt.Fprintf(t.errOut, "trace: dump error: %v\n", err)
	}
}

func (t *tracing) close() {
	if t == nil {
		return
	}
	t.heartbeat.Stop()
	if err := t.tracer.Flush(); err != nil {
		fmt.Fprintf(t.errOut, "trace: flush error: %v\n", err)
	}
	if err := t.tracer.Close(); err != nil {
		fmt.Fprintf(t.errOut, "trace: close error: %v\n", err)
	}
}
