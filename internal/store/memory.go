package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/limaJavier/seating/pkg/model"

	"github.com/samber/lo"
)

type MemoryStore struct {
	mutex sync.RWMutex
	exams map[string][]model.SeatAssignment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams: make(map[string][]model.SeatAssignment),
	}
}

func (store *MemoryStore) DeleteAutomatic(_ context.Context, exam string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.exams[exam] = lo.Filter(store.exams[exam], func(row model.SeatAssignment, _ int) bool { return row.ManualOverride })
	return nil
}

func (store *MemoryStore) ManualAssignments(_ context.Context, exam string) ([]model.SeatAssignment, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	return sorted(lo.Filter(store.exams[exam], func(row model.SeatAssignment, _ int) bool { return row.ManualOverride })), nil
}

func (store *MemoryStore) SaveAssignments(_ context.Context, exam string, assignments []model.SeatAssignment) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	rows := store.exams[exam]
	seats := lo.SliceToMap(rows, func(row model.SeatAssignment) (string, bool) { return row.Seat, true })
	students := lo.SliceToMap(rows, func(row model.SeatAssignment) (string, bool) { return row.Student, true })

	// Nothing is written unless every assignment fits
	for _, assignment := range assignments {
		if seats[assignment.Seat] {
			return fmt.Errorf("seat %v of exam %v: %w", assignment.Seat, exam, ErrTaken)
		} else if students[assignment.Student] {
			return fmt.Errorf("student %v of exam %v: %w", assignment.Student, exam, ErrTaken)
		}
		seats[assignment.Seat], students[assignment.Student] = true, true
	}

	for _, assignment := range assignments {
		assignment.Exam = exam
		rows = append(rows, assignment)
	}
	store.exams[exam] = rows
	return nil
}

func (store *MemoryStore) UpsertManual(_ context.Context, assignment model.SeatAssignment) (model.SeatAssignment, error) {
	if err := validateManual(assignment); err != nil {
		return assignment, err
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	assignment.ManualOverride = true
	rows := store.exams[assignment.Exam]

	if _, index, taken := lo.FindIndexOf(rows, func(row model.SeatAssignment) bool { return row.Seat == assignment.Seat }); taken {
		rows[index] = assignment
		rows = lo.Reject(rows, func(row model.SeatAssignment, i int) bool { return i != index && row.Student == assignment.Student })
	} else if _, index, seated := lo.FindIndexOf(rows, func(row model.SeatAssignment) bool { return row.Student == assignment.Student }); seated {
		rows[index] = assignment
	} else {
		rows = append(rows, assignment)
	}

	store.exams[assignment.Exam] = rows
	return assignment, nil
}

func (store *MemoryStore) Assignments(_ context.Context, exam, room string) ([]model.SeatAssignment, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	return sorted(lo.Filter(store.exams[exam], func(row model.SeatAssignment, _ int) bool { return room == "" || row.Room == room })), nil
}

func (store *MemoryStore) Close() error {
	return nil
}

func sorted(rows []model.SeatAssignment) []model.SeatAssignment {
	slices.SortFunc(rows, func(a, b model.SeatAssignment) int {
		return cmp.Or(cmp.Compare(a.Room, b.Room), cmp.Compare(a.Seat, b.Seat))
	})
	return rows
}
