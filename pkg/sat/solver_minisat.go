package sat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type minisatSolver struct {
	path string
}

func NewMinisatSolver(path string) SATSolver {
	return &minisatSolver{path: path}
}

func (solver *minisatSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	dimacs := sat.ToDIMACS()

	// Create a temporary file to hold the DIMACS content
	inputTempFile, err := os.CreateTemp("", "dimacs-*.cnf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(inputTempFile.Name())

	outputTempFile, err := os.CreateTemp("", "minisat_output-*.cnf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(outputTempFile.Name())
	defer outputTempFile.Close()

	if _, err := inputTempFile.WriteString(dimacs); err != nil {
		return nil, fmt.Errorf("failed to write DIMACS to temporary file: %w", err)
	}
	if err := inputTempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	cmd := exec.CommandContext(ctx, solver.path, "-verb=0", inputTempFile.Name(), outputTempFile.Name())

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during minisat execution: %v : %v", err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	output, err := io.ReadAll(outputTempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}
	return solver.parseSolution(string(output))
}

// Minisat writes "SAT" on the first line and the model on the second one
func (solver *minisatSolver) parseSolution(solverOutput string) (SATSolution, error) {
	lines := strings.Split(solverOutput, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "SAT" {
		return nil, fmt.Errorf("unexpected minisat output: %q", solverOutput)
	}
	return parseLiterals(strings.Fields(lines[1]))
}
