package model

type predicateEvaluatorStandard struct {
	eligible  [][]bool // Eligibility matrix, student by seat
	conflicts [][]bool // Conflict matrix, student by student
	adjacent  map[[2]uint64]bool
}

func newPredicateEvaluator(students []Student, seats []Seat, adjacency Adjacency, conflicts ConflictSet, forbidden map[string]map[string]bool) predicateEvaluator {
	evaluator := predicateEvaluatorStandard{
		eligible:  make([][]bool, len(students)),
		conflicts: make([][]bool, len(students)),
		adjacent:  make(map[[2]uint64]bool),
	}

	for i, student := range students {
		evaluator.eligible[i] = make([]bool, len(seats))
		for j, seat := range seats {
			evaluator.eligible[i][j] = (!student.NeedsAccessibleSeat || seat.Accessible) && !forbidden[student.Id][seat.Id]
		}

		evaluator.conflicts[i] = make([]bool, len(students))
		for j, other := range students {
			evaluator.conflicts[i][j] = i != j && conflicts.Conflicting(student.Id, other.Id)
		}
	}

	seatIndices := make(map[string]uint64, len(seats))
	for i, seat := range seats {
		seatIndices[seat.Id] = uint64(i)
	}
	for i, seat := range seats {
		for _, neighbor := range adjacency[seat.Id] {
			// Neighbors outside of the candidate seats are irrelevant
			if j, ok := seatIndices[neighbor]; ok && j != uint64(i) {
				evaluator.adjacent[[2]uint64{uint64(i), j}] = true
				evaluator.adjacent[[2]uint64{j, uint64(i)}] = true
			}
		}
	}

	return &evaluator
}

func (evaluator *predicateEvaluatorStandard) Eligible(student, seat uint64) bool {
	return evaluator.eligible[student][seat]
}

func (evaluator *predicateEvaluatorStandard) Conflicting(student1, student2 uint64) bool {
	return evaluator.conflicts[student1][student2]
}

func (evaluator *predicateEvaluatorStandard) Adjacent(seat1, seat2 uint64) bool {
	return evaluator.adjacent[[2]uint64{seat1, seat2}]
}
