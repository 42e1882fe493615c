package model

import (
	"cmp"
	"slices"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// roomState is a room problem translated to dense student and seat indices
type roomState struct {
	problem   RoomProblem
	evaluator predicateEvaluator
	indexer   indexer
	neighbors [][]int     // Adjacent seats of every seat
	pairs     [][2]uint64 // Unordered adjacent seats, first < second
	weights   [][]int64
	// Whether some student cannot take some seat
	restricted bool
}

// Fills the adjacency and conflicts the caller left out
func resolveProblem(problem RoomProblem) (Adjacency, ConflictSet) {
	adjacency, conflicts := problem.Adjacency, problem.Conflicts
	if adjacency == nil {
		adjacency = BuildAdjacency(problem.Seats)
	}
	if !conflicts.computed() {
		conflicts = Conflicts(problem.Students)
	}
	return adjacency, conflicts
}

func newRoomState(problem RoomProblem) *roomState {
	adjacency, conflicts := resolveProblem(problem)
	students, seats := uint64(len(problem.Students)), uint64(len(problem.Seats))

	state := &roomState{
		problem:   problem,
		evaluator: newPredicateEvaluator(problem.Students, problem.Seats, adjacency, conflicts, problem.Forbidden),
		indexer:   newIndexer(students, seats),
		neighbors: make([][]int, seats),
		weights:   objectiveWeights(problem.Students, problem.Seats, problem.Mode, problem.Seed),
	}

	for seat1 := range seats {
		for seat2 := seat1 + 1; seat2 < seats; seat2++ {
			if state.evaluator.Adjacent(seat1, seat2) {
				state.pairs = append(state.pairs, [2]uint64{seat1, seat2})
				state.neighbors[seat1] = append(state.neighbors[seat1], int(seat2))
				state.neighbors[seat2] = append(state.neighbors[seat2], int(seat1))
			}
		}
	}

	for student := range students {
		for seat := range seats {
			if !state.evaluator.Eligible(student, seat) {
				state.restricted = true
			}
		}
	}

	return state
}

func (state *roomState) constraintState() constraintState {
	return constraintState{
		evaluator: state.evaluator,
		indexer:   state.indexer,
		students:  uint64(len(state.problem.Students)),
		seats:     uint64(len(state.problem.Seats)),
		pairs:     state.pairs,
	}
}

// Counts the students a maximum student-seat matching over eligible pairs leaves out
func (state *roomState) unmatched() (int, error) {
	students := lo.Map(lo.Range(len(state.problem.Students)), func(student int, _ int) any { return uint64(student) })
	seats := lo.Map(lo.Range(len(state.problem.Seats)), func(seat int, _ int) any { return uint64(seat) })

	neighbors := func(studentAny any, seatAny any) (bool, error) {
		return state.evaluator.Eligible(studentAny.(uint64), seatAny.(uint64)), nil
	}

	graph, err := bipartitegraph.NewBipartiteGraph(students, seats, neighbors)
	if err != nil {
		return 0, err
	}
	return len(students) - len(graph.LargestMatching()), nil
}

// Eligible student-seat variables by decreasing weight, ties by student and then seat
func (state *roomState) preferred() []int64 {
	type candidate struct {
		variable int64
		weight   int64
	}

	candidates := make([]candidate, 0, len(state.problem.Students)*len(state.problem.Seats))
	for student := range uint64(len(state.problem.Students)) {
		for seat := range uint64(len(state.problem.Seats)) {
			if state.evaluator.Eligible(student, seat) {
				candidates = append(candidates, candidate{
					variable: int64(state.indexer.Index(student, seat)),
					weight:   state.weights[student][seat],
				})
			}
		}
	}
	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(b.weight, a.weight)
	})

	return lo.Map(candidates, func(c candidate, _ int) int64 { return c.variable })
}

// Checks the student, sitting where placement says, has no conflicting neighbor
func (state *roomState) separated(student int, placement []int, occupants []int) bool {
	for _, neighbor := range state.neighbors[placement[student]] {
		if occupant := occupants[neighbor]; occupant >= 0 && state.evaluator.Conflicting(uint64(student), uint64(occupant)) {
			return false
		}
	}
	return true
}

func (state *roomState) result(placement []int) AssignmentResult {
	assignments := lo.Map(placement, func(seat int, student int) SeatAssignment {
		return SeatAssignment{
			Exam:    state.problem.Exam,
			Student: state.problem.Students[student].Id,
			Room:    lo.Ternary(state.problem.Room != "", state.problem.Room, state.problem.Seats[seat].Room),
			Seat:    state.problem.Seats[seat].Id,
		}
	})

	return AssignmentResult{
		Status:      StatusSuccess,
		Assignments: assignments,
		Message:     "seating allocation complete",
		Objective:   objectiveValue(state.weights, placement),
	}
}
