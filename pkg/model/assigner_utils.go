package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/limaJavier/seating/pkg/sat"

	"github.com/samber/lo"
)

func verify(result AssignmentResult, problem RoomProblem) bool {
	//** Preprocess input
	adjacency, conflicts := resolveProblem(problem)

	//** Initialize dependencies
	evaluator := newPredicateEvaluator(problem.Students, problem.Seats, adjacency, conflicts, problem.Forbidden)

	studentIndices := lo.SliceToMap(lo.Range(len(problem.Students)), func(i int) (string, int) { return problem.Students[i].Id, i })
	seatIndices := lo.SliceToMap(lo.Range(len(problem.Seats)), func(i int) (string, int) { return problem.Seats[i].Id, i })

	if len(result.Assignments) != len(problem.Students) {
		return false
	}

	placement := lo.Map(problem.Students, func(Student, int) int { return -1 })
	occupied := make([]bool, len(problem.Seats))

	for _, assignment := range result.Assignments {
		student, studentOk := studentIndices[assignment.Student]
		seat, seatOk := seatIndices[assignment.Seat]
		// Check that:
		// - Student and seat belong to the problem
		// - Assignment lies in the room of the problem
		// - Student is not already seated
		// - Seat is not already taken
		// - Student is eligible for the seat
		if !studentOk || !seatOk ||
			(problem.Room != "" && assignment.Room != problem.Room) ||
			placement[student] >= 0 ||
			occupied[seat] ||
			!evaluator.Eligible(uint64(student), uint64(seat)) {
			return false
		}

		placement[student] = seat // Store student seat
		occupied[seat] = true     // Store seat occupation
	}

	// Check no conflicting pair sits on adjacent seats
	for student1 := range len(placement) - 1 {
		for student2 := student1 + 1; student2 < len(placement); student2++ {
			if evaluator.Conflicting(uint64(student1), uint64(student2)) &&
				evaluator.Adjacent(uint64(placement[student1]), uint64(placement[student2])) {
				return false
			}
		}
	}
	return true
}

func buildSat(state *roomState) sat.SAT {
	constraints := []func(state constraintState) [][]int64{
		completenessConstraints,
		uniquenessConstraints,
		seatConstraints,
		separationConstraints,
		eligibilityConstraints,
	}

	// Execute constraints functions on different goroutines, every one writing its own slot so the clause order is stable
	clauses := make([][][]int64, len(constraints))
	constraintState := state.constraintState()

	var wg sync.WaitGroup
	for i, constraint := range constraints {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clauses[i] = constraint(constraintState)
		}()
	}
	wg.Wait()

	return sat.SAT{
		Variables: state.indexer.Variables(),
		Clauses:   lo.Flatten(clauses),
		Preferred: state.preferred(),
	}
}

// Reads the seat of every student off a model, a student holding more than one seat keeps the first
func decode(solution sat.SATSolution, state *roomState) ([]int, error) {
	placement := lo.Map(state.problem.Students, func(Student, int) int { return -1 })

	for _, variable := range solution {
		if variable <= 0 || uint64(variable) > state.indexer.Variables() {
			continue
		}
		student, seat := state.indexer.Attributes(uint64(variable))
		if placement[student] < 0 {
			placement[student] = int(seat)
		}
	}

	if missing := lo.IndexOf(placement, -1); missing >= 0 {
		return nil, fmt.Errorf("student %v has no seat in the solver output", state.problem.Students[missing].Id)
	}
	return placement, nil
}

// Hill climbs the objective by moving students to free seats and swapping pairs of students,
// accepting strictly improving moves that keep every hard constraint. Returns whether the context stopped it
func improve(ctx context.Context, state *roomState, placement []int) bool {
	occupants := lo.Map(state.problem.Seats, func(Seat, int) int { return -1 })
	for student, seat := range placement {
		occupants[seat] = student
	}

	weight := func(student, seat int) int64 {
		return state.weights[student][seat]
	}

	for {
		improved := false
		for student := range placement {
			if ctx.Err() != nil {
				return true
			}

			for seat := range occupants {
				current, other := placement[student], occupants[seat]
				if seat == current || !state.evaluator.Eligible(uint64(student), uint64(seat)) {
					continue
				}

				var delta int64
				if other < 0 {
					delta = weight(student, seat) - weight(student, current)
				} else if state.evaluator.Eligible(uint64(other), uint64(current)) {
					delta = weight(student, seat) + weight(other, current) - weight(student, current) - weight(other, seat)
				} else {
					continue
				}
				if delta <= 0 {
					continue
				}

				// Apply the move and keep it only if both students stay apart from their conflicts
				occupants[seat], occupants[current] = student, other
				placement[student] = seat
				if other >= 0 {
					placement[other] = current
				}
				if state.separated(student, placement, occupants) && (other < 0 || state.separated(other, placement, occupants)) {
					improved = true
					continue
				}

				occupants[seat], occupants[current] = other, student
				placement[student] = current
				if other >= 0 {
					placement[other] = seat
				}
			}
		}

		if !improved {
			return false
		}
	}
}
