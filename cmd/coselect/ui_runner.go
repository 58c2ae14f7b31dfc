package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"coselect/internal/bench"
	"coselect/internal/ui"
)

type runOutcome struct {
	reports []bench.Report
	err     error
}

// runWithUI runs the scenarios while a progress view consumes their events.
func runWithUI(ctx context.Context, title string, scenarios []bench.Scenario, opts bench.Options) ([]bench.Report, error) {
	events := make(chan bench.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		runOpts := opts
		runOpts.Progress = bench.ChannelSink{Ch: events}
		reports, err := bench.RunAll(ctx, scenarios, runOpts)
		outcomeCh <- runOutcome{reports: reports, err: err}
		close(events)
	}()

	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Key()
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// Keep the runner from blocking on a full channel once nobody reads it.
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.reports, uiErr
	}
	return outcome.reports, outcome.err
}
