package sat

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

type slimeSolver struct {
	path string
}

func NewSlimeSolver(path string) SATSolver {
	return &slimeSolver{path: path}
}

func (solver *slimeSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	// Slime only reads instances from a file
	tmpFile, err := os.CreateTemp("", "dimacs-*.cnf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(sat.ToDIMACS()); err != nil {
		return nil, fmt.Errorf("failed to write DIMACS to temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	cmd := exec.CommandContext(ctx, solver.path, tmpFile.Name())

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during slime execution: %v : %v", err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	return parseSolution(stdOut.String())
}
