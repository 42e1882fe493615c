package model

type predicateEvaluator interface {
	// Checks whether the student may take the seat (accessibility and forbidden placements)
	Eligible(student, seat uint64) bool

	// Checks whether the two students must not sit on adjacent seats
	Conflicting(student1, student2 uint64) bool

	// Checks whether the two seats share an edge of the room grid
	Adjacent(seat1, seat2 uint64) bool
}
