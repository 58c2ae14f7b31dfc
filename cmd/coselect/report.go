package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"coselect/internal/bench"
)

// deltaNoise is the change below which a comparison is reported as unchanged.
const deltaNoise = 2.0

type reportRow struct {
	Scenario       string   `json:"scenario"`
	Branches       int      `json:"branches"`
	Order          string   `json:"order"`
	Iterations     int      `json:"iterations"`
	NsPerIter      int64    `json:"ns_per_iter"`
	PassesPerCycle float64  `json:"passes_per_cycle"`
	Drives         int      `json:"drives"`
	Polls          uint64   `json:"polls"`
	Wakes          uint64   `json:"wakes"`
	StaleWakes     uint64   `json:"stale_wakes"`
	VirtualMicros  uint64   `json:"virtual_us,omitempty"`
	BaselineNs     int64    `json:"baseline_ns_per_iter,omitempty"`
	DeltaPercent   *float64 `json:"delta_percent,omitempty"`
}

func buildRows(reports []bench.Report, deltas []bench.Delta) []reportRow {
	rows := make([]reportRow, len(reports))
	for i, r := range reports {
		rows[i] = reportRow{
			Scenario:       r.Scenario,
			Branches:       r.Branches,
			Order:          r.Order,
			Iterations:     r.Iterations,
			NsPerIter:      r.NsPerIter,
			PassesPerCycle: r.PassesPerCycle(),
			Drives:         r.Drives,
			Polls:          r.Polls,
			Wakes:          r.Wakes,
			StaleWakes:     r.StaleWakes,
			VirtualMicros:  r.VirtualMicros,
		}
		if i < len(deltas) && deltas[i].Comparable {
			pct := deltas[i].Percent
			rows[i].BaselineNs = deltas[i].Before
			rows[i].DeltaPercent = &pct
		}
	}
	return rows
}

func renderReportJSON(out io.Writer, rows []reportRow) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderReportPretty(out io.Writer, rows []reportRow) {
	nameWidth := len("scenario")
	for _, r := range rows {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.Scenario))
	}
	header := color.New(color.Bold)
	fmt.Fprintln(out, header.Sprintf("%s  %8s  %6s  %10s  %14s  %12s  %s",
		runewidth.FillRight("scenario", nameWidth), "branches", "order", "iterations", "time/iter", "passes/cycle", "vs baseline"))
	for _, r := range rows {
		fmt.Fprintf(out, "%s  %8d  %6s  %10d  %14s  %12.1f  %s\n",
			runewidth.FillRight(r.Scenario, nameWidth),
			r.Branches,
			r.Order,
			r.Iterations,
			time.Duration(r.NsPerIter).String(),
			r.PassesPerCycle,
			formatDelta(r.DeltaPercent),
		)
	}
}

func formatDelta(pct *float64) string {
	if pct == nil {
		return color.New(color.Faint).Sprint("n/a")
	}
	text := fmt.Sprintf("%+.1f%%", *pct)
	switch {
	case *pct <= -deltaNoise:
		return color.GreenString("%s faster", text)
	case *pct >= deltaNoise:
		return color.RedString("%s slower", text)
	default:
		return text + " unchanged"
	}
}
