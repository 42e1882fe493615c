package model

type constraintState struct {
	evaluator predicateEvaluator
	indexer   indexer

	students,
	seats uint64

	// Unordered pairs of adjacent seats, first < second
	pairs [][2]uint64
}

func (state constraintState) variable(student, seat uint64) int64 {
	return int64(state.indexer.Index(student, seat))
}

// Every seat holds at most one student
func seatConstraints(state constraintState) [][]int64 {
	clauses := make([][]int64, 0)
	for seat := range state.seats {
		for student1 := uint64(0); student1 < state.students; student1++ {
			if !state.evaluator.Eligible(student1, seat) {
				continue
			}
			for student2 := student1 + 1; student2 < state.students; student2++ {
				if state.evaluator.Eligible(student2, seat) {
					clauses = append(clauses, []int64{-state.variable(student1, seat), -state.variable(student2, seat)})
				}
			}
		}
	}
	return clauses
}

// Every student takes at least one seat
func completenessConstraints(state constraintState) [][]int64 {
	clauses := make([][]int64, 0, state.students)
	for student := range state.students {
		clause := make([]int64, 0, state.seats)
		for seat := range state.seats {
			if state.evaluator.Eligible(student, seat) {
				clause = append(clause, state.variable(student, seat))
			}
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

// Every student takes at most one seat
func uniquenessConstraints(state constraintState) [][]int64 {
	clauses := make([][]int64, 0)
	for student := range state.students {
		for seat1 := uint64(0); seat1 < state.seats; seat1++ {
			if !state.evaluator.Eligible(student, seat1) {
				continue
			}
			for seat2 := seat1 + 1; seat2 < state.seats; seat2++ {
				if state.evaluator.Eligible(student, seat2) {
					clauses = append(clauses, []int64{-state.variable(student, seat1), -state.variable(student, seat2)})
				}
			}
		}
	}
	return clauses
}

// Conflicting students never take adjacent seats, whichever of them sits on which seat
func separationConstraints(state constraintState) [][]int64 {
	clauses := make([][]int64, 0)
	for student1 := uint64(0); student1 < state.students; student1++ {
		for student2 := student1 + 1; student2 < state.students; student2++ {
			if !state.evaluator.Conflicting(student1, student2) {
				continue
			}
			for _, pair := range state.pairs {
				seat1, seat2 := pair[0], pair[1]
				if state.evaluator.Eligible(student1, seat1) && state.evaluator.Eligible(student2, seat2) {
					clauses = append(clauses, []int64{-state.variable(student1, seat1), -state.variable(student2, seat2)})
				}
				if state.evaluator.Eligible(student1, seat2) && state.evaluator.Eligible(student2, seat1) {
					clauses = append(clauses, []int64{-state.variable(student1, seat2), -state.variable(student2, seat1)})
				}
			}
		}
	}
	return clauses
}

// Students never take seats they are not eligible for
func eligibilityConstraints(state constraintState) [][]int64 {
	clauses := make([][]int64, 0)
	for student := range state.students {
		for seat := range state.seats {
			if !state.evaluator.Eligible(student, seat) {
				clauses = append(clauses, []int64{-state.variable(student, seat)})
			}
		}
	}
	return clauses
}
