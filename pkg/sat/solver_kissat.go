package sat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type kissatSolver struct {
	path string
}

func NewKissatSolver(path string) SATSolver {
	return &kissatSolver{path: path}
}

func (solver *kissatSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	dimacs := sat.ToDIMACS() // Transform SAT into DIMACS-CNF string format

	cmd := exec.CommandContext(ctx, solver.path, "-q", "--relaxed")
	cmd.Stdin = strings.NewReader(dimacs) // Feed dimacs into kissat's standard input

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during kissat execution: %v : %v", err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	return parseSolution(stdOut.String())
}
