package verify

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/program"
)

// VerificationReport represents a complete verification report
type VerificationReport struct {
	NumQubits    int
	Instructions int
	Cycles       uint64
	LintIssues   []Issue
	StructIssues []Issue
	UsageIssues  []Issue
	Result       *api.RunResult
	RunErr       error
}

// GenerateReport lints the stream and attaches the outcome of a run. Either
// result or runErr may be nil when the program was not run.
func GenerateReport(
	stream *program.Stream,
	result *api.RunResult,
	runErr error,
) *VerificationReport {
	report := &VerificationReport{
		NumQubits:    stream.NumQubits(),
		Instructions: stream.Len(),
		Cycles:       stream.Cycles(),
		Result:       result,
		RunErr:       runErr,
	}

	report.LintIssues = RunLint(stream)

	for _, issue := range report.LintIssues {
		if issue.Type == IssueStruct {
			report.StructIssues = append(report.StructIssues, issue)
		} else {
			report.UsageIssues = append(report.UsageIssues, issue)
		}
	}

	return report
}

// Passed reports whether the program has no STRUCT issues and ran without
// an error.
func (r *VerificationReport) Passed() bool {
	return len(r.StructIssues) == 0 && r.RunErr == nil
}

// WriteReport writes a formatted report to a writer
func (r *VerificationReport) WriteReport(w io.Writer) {
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetTitle("Program")
	summary.AppendRows([]table.Row{
		{"Qubits", r.NumQubits},
		{"Instructions", r.Instructions},
		{"Cycles", r.Cycles},
	})
	summary.Render()

	r.writeLint(w)
	r.writeRun(w)

	fmt.Fprintf(w, "\nLint Result: %d issues detected (%d STRUCT, %d USAGE)\n",
		len(r.LintIssues), len(r.StructIssues), len(r.UsageIssues))
	if r.Passed() {
		fmt.Fprintln(w, "PROGRAM PASSED ALL CHECKS")
	} else {
		fmt.Fprintln(w, "PROGRAM FAILED")
	}
}

func (r *VerificationReport) writeLint(w io.Writer) {
	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "\nNo lint issues found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Lint Issues")
	t.AppendHeader(table.Row{"Type", "Inst", "Cycle", "Qubit", "Message"})

	for _, issue := range r.LintIssues {
		inst, cycle := "-", "-"
		if issue.Index >= 0 {
			inst = fmt.Sprint(issue.Index)
			cycle = fmt.Sprint(issue.Cycle)
		}
		t.AppendRow(table.Row{issue.Type, inst, cycle, issue.Qubit, issue.Message})
	}

	t.Render()
}

func (r *VerificationReport) writeRun(w io.Writer) {
	switch {
	case r.RunErr != nil:
		fmt.Fprintf(w, "\nRun failed: %v\n", r.RunErr)
	case r.Result != nil:
		api.PrintResult(w, r.Result)
	default:
		fmt.Fprintln(w, "\nNot run")
	}
}

// SaveReportToFile saves the report to a file
func (r *VerificationReport) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create report file")
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
