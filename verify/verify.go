// Package verify provides debugging tools for compiled cQASM programs.
//
// It has two stages:
//
// 1. Static Lint (lint.go): checks on the instruction stream alone
//   - STRUCT checks: instructions that use the same qubit in one cycle
//   - USAGE checks: unused qubits, gates on measured qubits that were not
//     prepared again
//
// 2. Run Report (report.go): lint findings and run outcome as tables.
//
// # Usage Example
//
//	stream, err := cqasm.CompileFile("bell.cq")
//	...
//	result, runErr := api.RunSession(ctx, stream, host)
//	report := verify.GenerateReport(stream, result, runErr)
//	report.WriteReport(os.Stdout)
package verify

import "fmt"

// IssueType categorizes lint issues
type IssueType string

const (
	IssueStruct IssueType = "STRUCT" // Scheduling error (qubit used twice in a cycle)
	IssueUsage  IssueType = "USAGE"  // Suspicious use of the register
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType
	Cycle   int // -1 if not applicable
	Index   int // instruction index, -1 if not applicable
	Qubit   int
	Message string
}

func (i Issue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("%s q[%d]: %s", i.Type, i.Qubit, i.Message)
	}
	return fmt.Sprintf("%s #%d (cycle %d) q[%d]: %s",
		i.Type, i.Index, i.Cycle, i.Qubit, i.Message)
}
