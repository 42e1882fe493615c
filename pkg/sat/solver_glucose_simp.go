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

type glucoseSimpSolver struct {
	path string
}

func NewGlucoseSimpSolver(path string) SATSolver {
	return &glucoseSimpSolver{path: path}
}

func (solver *glucoseSimpSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	inputTempFile, err := os.CreateTemp("", "dimacs-*.cnf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(inputTempFile.Name())

	outputTempFile, err := os.CreateTemp("", "glucose_simp_output-*.cnf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(outputTempFile.Name())
	defer outputTempFile.Close()

	if _, err := inputTempFile.WriteString(sat.ToDIMACS()); err != nil {
		return nil, fmt.Errorf("failed to write DIMACS to temporary file: %w", err)
	}
	if err := inputTempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	cmd := exec.CommandContext(ctx, solver.path, "-verb=0", inputTempFile.Name(), outputTempFile.Name())

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during glucose-simp execution: %v : %v", err.Error(), stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	output, err := io.ReadAll(outputTempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read output file: %w", err)
	}
	return solver.parseSolution(string(output))
}

// Same result file as minisat: "SAT" and then the model
func (solver *glucoseSimpSolver) parseSolution(solverOutput string) (SATSolution, error) {
	lines := strings.Split(solverOutput, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "SAT" {
		return nil, fmt.Errorf("unexpected glucose-simp output: %q", solverOutput)
	}
	return parseLiterals(strings.Fields(lines[1]))
}
