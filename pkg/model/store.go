package model

import "context"

// AssignmentStore persists the SeatAssignments of exams
type AssignmentStore interface {
	// Removes every assignment of the exam whose manual override flag is unset
	DeleteAutomatic(ctx context.Context, exam string) error
	ManualAssignments(ctx context.Context, exam string) ([]SeatAssignment, error)
	// Writes the assignments of one room atomically
	SaveAssignments(ctx context.Context, exam string, assignments []SeatAssignment) error
}

// Observer is notified of the outcome of every room of an allocation run
type Observer interface {
	ObserveRoom(exam string, outcome RoomOutcome)
}
