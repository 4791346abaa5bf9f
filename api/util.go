package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LevelTrace is the level of per-instruction log records.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs at LevelTrace on the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintResult writes the measurement results as a table.
func PrintResult(w io.Writer, result *RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Session %s: %d instructions, %d cycles",
		result.SessionID, result.Dispatched, result.Cycles))
	t.AppendHeader(table.Row{"Qubit", "Value", "Raw", "P(1)", "Samples"})

	for _, q := range result.Qubits {
		raw := "null"
		if q.Raw != nil {
			raw = fmt.Sprintf("%d", *q.Raw)
		}
		avg := "-"
		if q.Average != nil {
			avg = fmt.Sprintf("%.6f", *q.Average)
		}
		t.AppendRow(table.Row{q.Qubit, q.Value, raw, avg, q.Samples})
	}

	t.Render()
}
