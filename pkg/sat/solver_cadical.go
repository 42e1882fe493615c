package sat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type cadicalSolver struct {
	path string
}

func NewCadicalSolver(path string) SATSolver {
	return &cadicalSolver{path: path}
}

func (solver *cadicalSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	dimacs := sat.ToDIMACS()

	cmd := exec.CommandContext(ctx, solver.path, "-q")
	cmd.Stdin = strings.NewReader(dimacs)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during cadical execution: %v : %v", err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	return parseSolution(stdOut.String())
}
