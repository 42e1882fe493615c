package sat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Parses the "v ..." value lines of a competition-format solver output
func parseSolution(solverOutput string) (SATSolution, error) {
	fields := lo.FlatMap(
		lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool {
			return len(line) > 0 && line[0] == 'v'
		}),
		func(line string, _ int) []string {
			return strings.Fields(line[1:])
		},
	)
	return parseLiterals(fields)
}

// Parses literals up to the terminating 0
func parseLiterals(fields []string) (SATSolution, error) {
	solution := make(SATSolution, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal in solver output: %w", err)
		} else if value == 0 {
			break
		}
		solution = append(solution, value)
	}
	return solution, nil
}

var solverNames = []string{"dpll", "kissat", "cadical", "minisat", "glucose-simp", "slime"}

// SolverNames lists the values accepted by NewSolver
func SolverNames() []string {
	return solverNames
}

// NewSolver builds a solver by name. External solvers look their executable up in paths ("<name>Path" keys, as in config.json),
// falling back to the bare executable name
func NewSolver(name string, paths map[string]string) (SATSolver, error) {
	name = strings.ToLower(name)
	path, ok := paths[name+"Path"]
	if !ok || path == "" {
		path = name
	}

	switch name {
	case "", "dpll":
		return NewDPLLSolver(), nil
	case "kissat":
		return NewKissatSolver(path), nil
	case "cadical":
		return NewCadicalSolver(path), nil
	case "minisat":
		return NewMinisatSolver(path), nil
	case "glucose-simp":
		return NewGlucoseSimpSolver(path), nil
	case "slime":
		return NewSlimeSolver(path), nil
	}
	return nil, fmt.Errorf("%v is not a valid solver, allowed values are: %v", name, strings.Join(solverNames, ", "))
}
