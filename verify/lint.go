package verify

import (
	"fmt"

	"github.com/sarchlab/cqasmfe/program"
)

// RunLint performs static lint checks on an instruction stream.
// Returns a list of issues found, or empty list if no issues.
func RunLint(stream *program.Stream) []Issue {
	var issues []Issue

	issues = append(issues, checkCycleConflicts(stream)...)
	issues = append(issues, checkMeasuredReuse(stream)...)
	issues = append(issues, checkUnusedQubits(stream)...)

	return issues
}

// checkCycleConflicts reports instructions that share a qubit with an
// earlier instruction of the same cycle. Directives take no time and are
// skipped.
func checkCycleConflicts(stream *program.Stream) []Issue {
	var issues []Issue

	cycle := uint64(0)
	users := make(map[int]int) // qubit → instruction index

	for i, inst := range stream.Instructions() {
		if inst.IsDirective() {
			continue
		}
		if inst.Cycle != cycle {
			cycle = inst.Cycle
			users = make(map[int]int)
		}

		for _, q := range inst.Qubits {
			if prev, ok := users[q]; ok {
				issues = append(issues, Issue{
					Type:  IssueStruct,
					Cycle: int(inst.Cycle),
					Index: i,
					Qubit: q,
					Message: fmt.Sprintf(
						"q[%d] used by instruction %d and %d in cycle %d",
						q, prev, i, inst.Cycle),
				})
				continue
			}
			users[q] = i
		}
	}

	return issues
}

// checkMeasuredReuse reports gates applied to a measured qubit before it is
// prepared again. Each measurement is reported at most once.
func checkMeasuredReuse(stream *program.Stream) []Issue {
	var issues []Issue

	measured := make(map[int]int) // qubit → measuring instruction

	for i, inst := range stream.Instructions() {
		if inst.IsDirective() {
			continue
		}
		if inst.IsMeasure() {
			for _, q := range inst.Qubits {
				measured[q] = i
			}
			continue
		}

		desc, ok := program.Lookup(inst.Name)
		if ok && desc.Kind == program.Prep {
			for _, q := range inst.Qubits {
				delete(measured, q)
			}
			continue
		}

		for _, q := range inst.Qubits {
			m, ok := measured[q]
			if !ok {
				continue
			}

			issues = append(issues, Issue{
				Type:  IssueUsage,
				Cycle: int(inst.Cycle),
				Index: i,
				Qubit: q,
				Message: fmt.Sprintf(
					"%s on q[%d] after measurement %d without prep",
					inst.Name, q, m),
			})
			delete(measured, q)
		}
	}

	return issues
}

func checkUnusedQubits(stream *program.Stream) []Issue {
	var issues []Issue

	used := make([]bool, stream.NumQubits())
	for _, inst := range stream.Instructions() {
		if inst.IsDirective() {
			continue
		}
		for _, q := range inst.Qubits {
			if q >= 0 && q < len(used) {
				used[q] = true
			}
		}
	}

	for q, ok := range used {
		if ok {
			continue
		}
		issues = append(issues, Issue{
			Type:    IssueUsage,
			Cycle:   -1,
			Index:   -1,
			Qubit:   q,
			Message: fmt.Sprintf("q[%d] declared but never used", q),
		})
	}

	return issues
}
