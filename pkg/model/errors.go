package model

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusSuccess         Status = "SUCCESS"
	StatusPartial         Status = "PARTIAL"
	StatusCapacityError   Status = "CAPACITY_ERROR"
	StatusInfeasible      Status = "INFEASIBLE"
	StatusSolverError     Status = "SOLVER_ERROR"
	StatusValidationError Status = "VALIDATION_ERROR"
	StatusSkipped         Status = "SKIPPED"
)

var (
	// ErrInfeasible reports that no seating satisfies the hard constraints of a room
	ErrInfeasible = errors.New("infeasible")
	// ErrSolverTimeout reports that the time budget ran out before a seating was found
	ErrSolverTimeout = errors.New("solver time budget exhausted")
)

// CapacityError is returned when a chunk holds more students than the seats offered to it
type CapacityError struct {
	Students int
	Seats    int
}

func (err *CapacityError) Error() string {
	return fmt.Sprintf("capacity error: %d students > %d seats", err.Students, err.Seats)
}

type ValidationError struct {
	Reasons []string
}

func (err *ValidationError) Error() string {
	return "invalid input: " + strings.Join(err.Reasons, "; ")
}

// SolverError wraps an internal fault of the solving machinery
type SolverError struct {
	Err error
}

func (err *SolverError) Error() string {
	return fmt.Sprintf("solver error: %v", err.Err)
}

func (err *SolverError) Unwrap() error {
	return err.Err
}

// StatusOf maps an error returned by an Assigner to its status
func StatusOf(err error) Status {
	var capacityErr *CapacityError
	var validationErr *ValidationError

	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &capacityErr):
		return StatusCapacityError
	case errors.As(err, &validationErr):
		return StatusValidationError
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	}
	return StatusSolverError
}
