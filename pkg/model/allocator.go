package model

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ExamRequest asks for the roster of an exam to be seated across the rooms, in the given order
type ExamRequest struct {
	Exam   string           `validate:"required"`
	Roster []Student        `validate:"dive"`
	Locked []SeatAssignment `validate:"dive"`
	Rooms  []Room           `validate:"dive"`
	Mode   Mode
	// Seed of the first room, every following room adds its position
	Seed   uint64
	Budget time.Duration
}

type RoomOutcome struct {
	Room      string        `json:"room"`
	Name      string        `json:"name,omitempty"`
	Status    Status        `json:"status"`
	Requested int           `json:"requested"`
	Seated    int           `json:"seated"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
}

type RunSummary struct {
	RunId          string           `json:"runId"`
	Exam           string           `json:"exam"`
	Mode           Mode             `json:"mode"`
	TotalRequested int              `json:"totalRequested"`
	TotalSeated    int              `json:"totalSeated"`
	Locked         []SeatAssignment `json:"locked"`
	Rooms          []RoomOutcome    `json:"rooms"`
	// Automatic assignments of the run
	Assignments []SeatAssignment `json:"assignments"`
	// Students left without a seat, in roster order
	Unseated []string `json:"unseated"`
}

type Allocator struct {
	assigner Assigner
	store    AssignmentStore
	locker   Locker
	observer Observer
	logger   *log.Logger
}

type AllocatorOption func(allocator *Allocator)

// WithStore makes the allocator replace the automatic assignments of the exam in the store
func WithStore(store AssignmentStore) AllocatorOption {
	return func(allocator *Allocator) {
		allocator.store = store
	}
}

func WithLocker(locker Locker) AllocatorOption {
	return func(allocator *Allocator) {
		allocator.locker = locker
	}
}

func WithObserver(observer Observer) AllocatorOption {
	return func(allocator *Allocator) {
		allocator.observer = observer
	}
}

func WithLogger(logger *log.Logger) AllocatorOption {
	return func(allocator *Allocator) {
		allocator.logger = logger
	}
}

func NewAllocator(assigner Assigner, options ...AllocatorOption) *Allocator {
	allocator := &Allocator{
		assigner: assigner,
		locker:   NewKeyedLocker(),
		logger:   log.Default(),
	}
	for _, option := range options {
		option(allocator)
	}
	return allocator
}

// AllocateExam seats the roster room by room. Room failures are recorded in the summary and never abort the run;
// invalid requests, store failures and cancellation do, returning the summary built so far
func (allocator *Allocator) AllocateExam(ctx context.Context, request ExamRequest) (RunSummary, error) {
	summary := RunSummary{
		RunId:          uuid.NewString(),
		Exam:           request.Exam,
		Mode:           request.Mode,
		TotalRequested: len(request.Roster),
		Locked:         []SeatAssignment{},
		Rooms:          []RoomOutcome{},
		Assignments:    []SeatAssignment{},
		Unseated:       []string{},
	}

	if err := validateRequest(request); err != nil {
		return summary, err
	}

	unlock, err := allocator.locker.Lock(ctx, ExamLockKey(request.Exam))
	if err != nil {
		return summary, fmt.Errorf("cannot lock exam %v: %w", request.Exam, err)
	}
	defer unlock()

	locked, err := allocator.lockedAssignments(ctx, request)
	if err != nil {
		return summary, err
	}
	summary.Locked = locked

	roster := lo.SliceToMap(request.Roster, func(student Student) (string, Student) { return student.Id, student })
	lockedStudents := lo.SliceToMap(locked, func(assignment SeatAssignment) (string, bool) { return assignment.Student, true })
	lockedSeats := lo.SliceToMap(locked, func(assignment SeatAssignment) (string, string) { return assignment.Seat, assignment.Student })

	summary.TotalSeated = lo.CountBy(request.Roster, func(student Student) bool { return lockedStudents[student.Id] })
	pending := lo.Reject(request.Roster, func(student Student, _ int) bool { return lockedStudents[student.Id] })

	allocator.logger.Printf("allocation run %v of exam %v: %d students, %d locked, %d rooms", summary.RunId, request.Exam, len(request.Roster), summary.TotalSeated, len(request.Rooms))

	for index, room := range request.Rooms {
		if len(pending) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			allocator.logger.Printf("allocation run %v canceled before room %v", summary.RunId, room.Id)
			summary.Unseated = studentIds(pending)
			return summary, err
		}

		free := lo.Filter(room.Seats, func(seat Seat, _ int) bool {
			_, taken := lockedSeats[seat.Id]
			return !taken
		})
		if len(free) == 0 {
			allocator.record(&summary, RoomOutcome{
				Room:    room.Id,
				Name:    room.Name,
				Status:  StatusSkipped,
				Message: "no free seats",
			})
			continue
		}

		chunk := pending[:min(len(free), len(pending))]
		adjacency := BuildAdjacency(room.Seats)
		problem := RoomProblem{
			Exam:      request.Exam,
			Room:      room.Id,
			Seats:     free,
			Students:  chunk,
			Adjacency: adjacency,
			Conflicts: Conflicts(chunk),
			Forbidden: lockedNeighborhood(chunk, room, adjacency, lockedSeats, roster),
			Mode:      request.Mode,
			Seed:      request.Seed + uint64(index),
			Budget:    request.Budget,
		}

		start := time.Now()
		result, err := allocator.assigner.Solve(ctx, problem)
		outcome := RoomOutcome{
			Room:      room.Id,
			Name:      room.Name,
			Status:    result.Status,
			Requested: len(chunk),
			Message:   result.Message,
			Duration:  time.Since(start),
		}
		if err != nil {
			// The chunk stays at the head of the queue for the next room
			outcome.Status = StatusOf(err)
			outcome.Message = err.Error()
			allocator.record(&summary, outcome)
			if ctxErr := ctx.Err(); ctxErr != nil {
				summary.Unseated = studentIds(pending)
				return summary, ctxErr
			}
			continue
		}

		assignments := lo.Map(result.Assignments, func(assignment SeatAssignment, _ int) SeatAssignment {
			assignment.Exam = request.Exam
			assignment.ManualOverride = false
			return assignment
		})
		if allocator.store != nil && len(assignments) > 0 {
			if err := allocator.store.SaveAssignments(ctx, request.Exam, assignments); err != nil {
				summary.Unseated = studentIds(pending)
				return summary, fmt.Errorf("cannot save assignments of room %v: %w", room.Id, err)
			}
		}

		seated := lo.SliceToMap(assignments, func(assignment SeatAssignment) (string, bool) { return assignment.Student, true })
		pending = lo.Reject(pending, func(student Student, _ int) bool { return seated[student.Id] })

		outcome.Seated = len(assignments)
		if outcome.Seated < outcome.Requested {
			outcome.Status = StatusPartial
		}
		summary.Assignments = append(summary.Assignments, assignments...)
		summary.TotalSeated += len(assignments)
		allocator.record(&summary, outcome)
	}

	summary.Unseated = studentIds(pending)
	allocator.logger.Printf("allocation run %v of exam %v: %d of %d students seated", summary.RunId, request.Exam, summary.TotalSeated, summary.TotalRequested)
	return summary, nil
}

func (allocator *Allocator) record(summary *RunSummary, outcome RoomOutcome) {
	summary.Rooms = append(summary.Rooms, outcome)
	allocator.logger.Printf("room %v: %v (%d/%d seated in %v) %v", outcome.Room, outcome.Status, outcome.Seated, outcome.Requested, outcome.Duration.Round(time.Millisecond), outcome.Message)
	if allocator.observer != nil {
		allocator.observer.ObserveRoom(summary.Exam, outcome)
	}
}

// Clears the automatic assignments of the exam and merges the stored manual assignments with the requested ones.
// Requested placements missing from the store are saved as manual
func (allocator *Allocator) lockedAssignments(ctx context.Context, request ExamRequest) ([]SeatAssignment, error) {
	requested := lo.Map(request.Locked, func(assignment SeatAssignment, _ int) SeatAssignment {
		assignment.Exam = request.Exam
		assignment.ManualOverride = true
		return assignment
	})
	if allocator.store == nil {
		return requested, nil
	}

	if err := allocator.store.DeleteAutomatic(ctx, request.Exam); err != nil {
		return nil, fmt.Errorf("cannot clear automatic assignments of exam %v: %w", request.Exam, err)
	}
	stored, err := allocator.store.ManualAssignments(ctx, request.Exam)
	if err != nil {
		return nil, fmt.Errorf("cannot read manual assignments of exam %v: %w", request.Exam, err)
	}

	storedStudents := lo.SliceToMap(stored, func(assignment SeatAssignment) (string, SeatAssignment) { return assignment.Student, assignment })
	storedSeats := lo.SliceToMap(stored, func(assignment SeatAssignment) (string, SeatAssignment) { return assignment.Seat, assignment })

	reasons := []string{}
	fresh := []SeatAssignment{}
	for _, assignment := range requested {
		if existing, ok := storedStudents[assignment.Student]; ok {
			if existing.Seat != assignment.Seat {
				reasons = append(reasons, fmt.Sprintf("student %q is manually seated on %q, not %q", assignment.Student, existing.Seat, assignment.Seat))
			}
			continue
		}
		if existing, ok := storedSeats[assignment.Seat]; ok {
			reasons = append(reasons, fmt.Sprintf("seat %q is manually assigned to student %q", assignment.Seat, existing.Student))
			continue
		}
		fresh = append(fresh, assignment)
	}
	if len(reasons) > 0 {
		return nil, &ValidationError{Reasons: reasons}
	}

	if len(fresh) > 0 {
		if err := allocator.store.SaveAssignments(ctx, request.Exam, fresh); err != nil {
			return nil, fmt.Errorf("cannot save manual assignments of exam %v: %w", request.Exam, err)
		}
	}
	return append(stored, fresh...), nil
}

// Forbids every chunk student from the seats next to a locked student it conflicts with
func lockedNeighborhood(chunk []Student, room Room, adjacency Adjacency, lockedSeats map[string]string, roster map[string]Student) map[string]map[string]bool {
	forbidden := make(map[string]map[string]bool)
	for _, seat := range room.Seats {
		occupantId, ok := lockedSeats[seat.Id]
		if !ok {
			continue
		}
		// Locked students outside of the roster carry no attributes to compare
		occupant, ok := roster[occupantId]
		if !ok {
			continue
		}
		for _, student := range chunk {
			if Conflict(student, occupant) == 0 {
				continue
			}
			for _, neighbor := range adjacency[seat.Id] {
				if forbidden[student.Id] == nil {
					forbidden[student.Id] = make(map[string]bool)
				}
				forbidden[student.Id][neighbor] = true
			}
		}
	}
	return forbidden
}

func studentIds(students []Student) []string {
	return lo.Map(students, func(student Student, _ int) string { return student.Id })
}
