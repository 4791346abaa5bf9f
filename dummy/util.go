package dummy

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

// LevelTrace is the level of per-operation log records.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs at LevelTrace on the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// PrintTrace writes the records of a host as a table.
func PrintTrace(w io.Writer, records []Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Host Trace")
	t.AppendHeader(table.Row{"Cycle", "Time (ns)", "Event", "Op", "Host Gate", "Qubits", "Params", "Result"})

	for _, r := range records {
		result := ""
		if r.Kind == MeasureRecord {
			result = r.Value.String()
		}
		hostGate := r.HostGate
		if r.Controls > 0 {
			hostGate = fmt.Sprintf("C%d-%s", r.Controls, r.HostGate)
		}
		t.AppendRow(table.Row{
			r.Cycle,
			fmt.Sprintf("%.3f", float64(r.Time)*1e9),
			r.EventID,
			r.Name,
			hostGate,
			fmt.Sprint(r.Qubits),
			fmt.Sprint(r.Params),
			result,
		})
	}

	t.Render()
}
