package model

// indexer interface is design to give a unique index to a student-seat variable and vice versa
type indexer interface {
	// Returns a unique index (starting at 1) to the variable "student sits on seat"
	Index(student, seat uint64) uint64
	// Returns the student and seat of a unique index
	Attributes(index uint64) (student uint64, seat uint64)
	// Total number of variables
	Variables() uint64
}

func newIndexer(students, seats uint64) indexer {
	return &indexerImplementation{
		students: students,
		seats:    seats,
	}
}
