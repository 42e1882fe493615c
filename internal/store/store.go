// Package store persists the seat assignments of exams, in memory or in a SQL database
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/limaJavier/seating/pkg/model"

	"github.com/go-playground/validator/v10"
)

// ErrTaken reports a seat or a student already holding an assignment of the exam
var ErrTaken = errors.New("already assigned")

var validate = validator.New()

// Store extends the assignment store of the allocator with the operator side: manual overrides and listings
type Store interface {
	model.AssignmentStore

	// UpsertManual places the student on the seat as a manual assignment. When the seat is taken its row goes to the student,
	// who loses any other seat of the exam; otherwise a seated student moves and an unseated one is inserted
	UpsertManual(ctx context.Context, assignment model.SeatAssignment) (model.SeatAssignment, error)

	// Assignments lists the assignments of the exam ordered by room and seat, only those of room unless it is empty
	Assignments(ctx context.Context, exam, room string) ([]model.SeatAssignment, error)

	Close() error
}

// Open picks the store from the data source name: empty for memory, "sqlite://<path>" or a postgres URL
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unsupported database %q", dsn)
}

func validateManual(assignment model.SeatAssignment) error {
	if assignment.Exam == "" {
		return errors.New("manual assignment without exam")
	}
	if err := validate.Struct(assignment); err != nil {
		return fmt.Errorf("invalid manual assignment: %w", err)
	}
	return nil
}
