package sat

import (
	"fmt"
	"strings"
)

// SATSolution holds one signed literal per variable of a satisfied instance
type SATSolution []int64

type SAT struct {
	Variables uint64
	Clauses   [][]int64
	// Preferred literals are decided first (and set to true) by solvers that accept decision hints.
	// They are not part of the DIMACS rendering, so external solvers ignore them
	Preferred []int64
}

func (s SAT) ToDIMACS() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "p cnf %d %d\n", s.Variables, len(s.Clauses))
	for _, clause := range s.Clauses {
		for _, literal := range clause {
			fmt.Fprintf(&builder, "%d ", literal)
		}
		builder.WriteString("0\n")
	}
	return builder.String()
}
