package model

import (
	"context"
	"time"
)

// Wall-clock bound of a room solve when the problem does not set one
const DefaultBudget = 30 * time.Second

// RoomProblem is the input of a single-room solve. Seats and students are the free candidates only:
// seats and students covered by manual placements must be left out by the caller
type RoomProblem struct {
	Exam     string
	Room     string
	Seats    []Seat    `validate:"dive"`
	Students []Student `validate:"dive"`
	// Built from Seats when nil
	Adjacency Adjacency
	// Computed from Students when left as the zero value
	Conflicts ConflictSet
	// Seats a student must not take, by student and seat identity
	Forbidden map[string]map[string]bool
	Mode      Mode
	// Seed of the random objective weights
	Seed uint64
	// Time budget of the solve, DefaultBudget when zero
	Budget time.Duration
}

type AssignmentResult struct {
	Status      Status           `json:"status"`
	Assignments []SeatAssignment `json:"assignments"`
	Message     string           `json:"message"`
	// Value of the soft objective reached by the assignments
	Objective int64 `json:"objective"`
}

type Assigner interface {
	// Seats every student of the problem or fails with a *CapacityError, *ValidationError, *SolverError or an error wrapping ErrInfeasible.
	// The returned result carries the status in both cases
	Solve(ctx context.Context, problem RoomProblem) (AssignmentResult, error)

	// Checks the assignments against every hard constraint of the problem
	Verify(result AssignmentResult, problem RoomProblem) bool
}
