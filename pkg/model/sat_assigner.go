package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/limaJavier/seating/pkg/sat"

	"github.com/samber/lo"
)

type satAssigner struct {
	solver sat.SATSolver
}

func NewSATAssigner(solver sat.SATSolver) Assigner {
	return &satAssigner{
		solver: solver,
	}
}

func (assigner *satAssigner) Solve(ctx context.Context, problem RoomProblem) (AssignmentResult, error) {
	//** Validate input
	if err := validateProblem(problem); err != nil {
		return failure(err), err
	}
	if len(problem.Students) > len(problem.Seats) {
		err := &CapacityError{Students: len(problem.Students), Seats: len(problem.Seats)}
		return failure(err), err
	}
	if len(problem.Students) == 0 {
		return AssignmentResult{
			Status:      StatusSuccess,
			Assignments: []SeatAssignment{},
			Message:     "no students to seat",
		}, nil
	}

	budget := lo.Ternary(problem.Budget > 0, problem.Budget, DefaultBudget)
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	//** Initialize dependencies
	state := newRoomState(problem)

	// Without a perfect student-seat matching over eligible pairs the instance is unsatisfiable
	if state.restricted {
		unmatched, err := state.unmatched()
		if err != nil {
			err = &SolverError{Err: err}
			return failure(err), err
		} else if unmatched > 0 {
			err = fmt.Errorf("%w: %d of %d students cannot get an eligible seat", ErrInfeasible, unmatched, len(problem.Students))
			return failure(err), err
		}
	}

	//** Seat constructively, the SAT solver settles the rooms it cannot seat
	placement, err := place(ctx, state)
	if err != nil {
		err = solveError(err)
		return failure(err), err
	} else if placement == nil {
		if placement, err = assigner.solveSat(ctx, state); err != nil {
			return failure(err), err
		}
	}

	//** Improve the objective with the remaining budget
	exhausted := improve(ctx, state, placement)

	result := state.result(placement)
	if exhausted {
		result.Message = "seating allocation complete, time budget exhausted while improving"
	}

	if !assigner.Verify(result, problem) {
		err = &SolverError{Err: errors.New("solver output violates the seating constraints")}
		return failure(err), err
	}
	return result, nil
}

func (assigner *satAssigner) solveSat(ctx context.Context, state *roomState) ([]int, error) {
	//** Build SAT instance
	satInstance := buildSat(state)

	//** Solve SAT instance
	solution, err := assigner.solver.Solve(ctx, satInstance)
	if err != nil {
		return nil, solveError(err)
	} else if solution == nil {
		return nil, fmt.Errorf("%w: no seating keeps every conflicting pair apart", ErrInfeasible)
	}

	placement, err := decode(solution, state)
	if err != nil {
		return nil, &SolverError{Err: err}
	}
	return placement, nil
}

func (assigner *satAssigner) Verify(result AssignmentResult, problem RoomProblem) bool {
	return verify(result, problem)
}

// A deadline without a model makes the room infeasible within the budget, anything else is a solver fault
func solveError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrInfeasible, ErrSolverTimeout)
	}
	return &SolverError{Err: err}
}

func failure(err error) AssignmentResult {
	return AssignmentResult{
		Status:      StatusOf(err),
		Assignments: []SeatAssignment{},
		Message:     err.Error(),
	}
}
