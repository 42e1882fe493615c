package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/limaJavier/seating/pkg/sat"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mutex     sync.Mutex
	rows      []SeatAssignment
	deletes   int
	saveError error
}

func (store *fakeStore) DeleteAutomatic(_ context.Context, exam string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.deletes++
	store.rows = lo.Reject(store.rows, func(row SeatAssignment, _ int) bool { return row.Exam == exam && !row.ManualOverride })
	return nil
}

func (store *fakeStore) ManualAssignments(_ context.Context, exam string) ([]SeatAssignment, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return lo.Filter(store.rows, func(row SeatAssignment, _ int) bool { return row.Exam == exam && row.ManualOverride }), nil
}

func (store *fakeStore) SaveAssignments(_ context.Context, _ string, assignments []SeatAssignment) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.saveError != nil {
		return store.saveError
	}
	store.rows = append(store.rows, assignments...)
	return nil
}

type spyAssigner struct {
	Assigner
	problems []RoomProblem
}

func (spy *spyAssigner) Solve(ctx context.Context, problem RoomProblem) (AssignmentResult, error) {
	spy.problems = append(spy.problems, problem)
	return spy.Assigner.Solve(ctx, problem)
}

type outcomeRecorder struct {
	outcomes []RoomOutcome
}

func (recorder *outcomeRecorder) ObserveRoom(_ string, outcome RoomOutcome) {
	recorder.outcomes = append(recorder.outcomes, outcome)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func spacedRoster(size int) []Student {
	return lo.Map(lo.Range(size), func(i int, _ int) Student {
		return Student{Id: fmt.Sprint("s", i), Roll: fmt.Sprint((i + 1) * 10)}
	})
}

func TestAllocateScenarioTwoRooms(t *testing.T) {
	//** Arrange
	recorder := &outcomeRecorder{}
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithObserver(recorder), WithLogger(quietLogger()))
	roster := spacedRoster(10)
	request := ExamRequest{
		Exam:   "E",
		Roster: roster,
		Rooms: []Room{
			{Id: "R1", Seats: gridSeats("R1", 2, 3)},
			{Id: "R2", Seats: gridSeats("R2", 1, 4)},
		},
	}

	//** Act
	summary, err := allocator.AllocateExam(context.Background(), request)

	//** Assert
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunId)
	assert.Equal(t, 10, summary.TotalRequested)
	assert.Equal(t, 10, summary.TotalSeated)
	assert.Empty(t, summary.Unseated)
	require.Len(t, summary.Rooms, 2)
	assert.Equal(t, RoomOutcome{Room: "R1", Status: StatusSuccess, Requested: 6, Seated: 6}, withoutTiming(summary.Rooms[0]))
	assert.Equal(t, RoomOutcome{Room: "R2", Status: StatusSuccess, Requested: 4, Seated: 4}, withoutTiming(summary.Rooms[1]))

	rooms := lo.SliceToMap(summary.Assignments, func(assignment SeatAssignment) (string, string) {
		return assignment.Student, assignment.Room
	})
	for i, student := range roster {
		assert.Equal(t, lo.Ternary(i < 6, "R1", "R2"), rooms[student.Id], student.Id)
	}
	assert.Len(t, recorder.outcomes, 2)
}

func withoutTiming(outcome RoomOutcome) RoomOutcome {
	outcome.Duration = 0
	outcome.Message = ""
	return outcome
}

func TestAllocateFailedRoomKeepsQueue(t *testing.T) {
	//** Arrange
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithLogger(quietLogger()))
	request := ExamRequest{
		Exam: "E",
		Roster: []Student{
			{Id: "a", Roll: "101"},
			{Id: "b", Roll: "102"},
		},
		Rooms: []Room{
			{Id: "small", Seats: gridSeats("small", 1, 2)},
			{Id: "large", Seats: gridSeats("large", 3, 3)},
		},
	}

	//** Act
	summary, err := allocator.AllocateExam(context.Background(), request)

	//** Assert
	require.NoError(t, err)
	require.Len(t, summary.Rooms, 2)
	assert.Equal(t, StatusInfeasible, summary.Rooms[0].Status)
	assert.Equal(t, 0, summary.Rooms[0].Seated)
	assert.NotEmpty(t, summary.Rooms[0].Message)
	assert.Equal(t, StatusSuccess, summary.Rooms[1].Status)
	assert.Equal(t, 2, summary.TotalSeated)
	assert.True(t, lo.EveryBy(summary.Assignments, func(assignment SeatAssignment) bool { return assignment.Room == "large" }))
}

func TestAllocateReportsUnseated(t *testing.T) {
	//** Arrange
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithLogger(quietLogger()))
	request := ExamRequest{
		Exam:   "E",
		Roster: spacedRoster(5),
		Rooms:  []Room{{Id: "R", Seats: gridSeats("R", 1, 3)}},
	}

	//** Act
	summary, err := allocator.AllocateExam(context.Background(), request)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSeated)
	assert.Equal(t, []string{"s3", "s4"}, summary.Unseated)
}

func TestAllocateRealisticRooms(t *testing.T) {
	cases := []struct {
		name   string
		roster []Student
		rooms  []Room
	}{
		{
			name:   "Half full lecture room",
			roster: cohort(30, 4, 0),
			rooms: []Room{
				{Id: "A", Seats: gridSeats("A", 6, 10)},
				{Id: "B", Seats: gridSeats("B", 6, 10)},
			},
		},
		{
			name:   "Two full rooms and a spare one",
			roster: cohort(140, 12, 0),
			rooms: []Room{
				{Id: "A", Seats: gridSeats("A", 6, 10)},
				{Id: "B", Seats: gridSeats("B", 6, 10)},
				{Id: "C", Seats: gridSeats("C", 8, 10)},
			},
		},
	}

	for _, test := range cases {
		for _, mode := range []Mode{ModeSemester, ModeMid} {
			t.Run(fmt.Sprintf("%v in %v mode", test.name, mode), func(t *testing.T) {
				//** Arrange
				allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithLogger(quietLogger()))
				request := ExamRequest{
					Exam:   "E",
					Roster: test.roster,
					Rooms:  test.rooms,
					Mode:   mode,
					Seed:   1,
					Budget: 10 * time.Second,
				}

				//** Act
				summary, err := allocator.AllocateExam(context.Background(), request)

				//** Assert
				require.NoError(t, err)
				assert.Equal(t, len(test.roster), summary.TotalRequested)
				assert.Equal(t, summary.TotalRequested, summary.TotalSeated)
				assert.Empty(t, summary.Unseated)
				for _, outcome := range summary.Rooms {
					assert.Equal(t, StatusSuccess, outcome.Status, outcome.Room)
				}
			})
		}
	}
}

func TestAllocateLockedPlacements(t *testing.T) {
	//** Arrange
	spy := &spyAssigner{Assigner: NewSATAssigner(sat.NewDPLLSolver())}
	recorder := &outcomeRecorder{}
	allocator := NewAllocator(spy, WithObserver(recorder), WithLogger(quietLogger()))
	full, open := gridSeats("full", 1, 1), gridSeats("open", 1, 3)
	request := ExamRequest{
		Exam: "E",
		Roster: []Student{
			{Id: "locked1", Subject: "CS", Roll: "1"},
			{Id: "locked2", Subject: "EE", Roll: "50"},
			{Id: "cs", Subject: "CS", Roll: "20"},
			{Id: "me", Subject: "ME", Roll: "30"},
		},
		Locked: []SeatAssignment{
			{Student: "locked1", Room: "open", Seat: open[0].Id},
			{Student: "locked2", Room: "full", Seat: full[0].Id},
		},
		Rooms: []Room{{Id: "full", Seats: full}, {Id: "open", Seats: open}},
		Seed:  7,
	}

	//** Act
	summary, err := allocator.AllocateExam(context.Background(), request)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalSeated)
	assert.Len(t, summary.Locked, 2)
	assert.True(t, lo.EveryBy(summary.Locked, func(assignment SeatAssignment) bool { return assignment.ManualOverride && assignment.Exam == "E" }))

	require.Len(t, summary.Rooms, 2)
	assert.Equal(t, StatusSkipped, summary.Rooms[0].Status)
	assert.Equal(t, StatusSuccess, summary.Rooms[1].Status)
	assert.Len(t, recorder.outcomes, 2)

	// Locked students and seats never reach the solver
	require.Len(t, spy.problems, 1)
	problem := spy.problems[0]
	assert.ElementsMatch(t, []string{"cs", "me"}, lo.Map(problem.Students, func(student Student, _ int) string { return student.Id }))
	assert.ElementsMatch(t, []string{open[1].Id, open[2].Id}, lo.Map(problem.Seats, func(seat Seat, _ int) string { return seat.Id }))
	assert.Equal(t, uint64(8), problem.Seed)

	// Same subject as the locked neighbor
	assert.Equal(t, map[string]map[string]bool{"cs": {open[1].Id: true}}, problem.Forbidden)
	placement := seatsOf(AssignmentResult{Assignments: summary.Assignments})
	assert.Equal(t, open[2].Id, placement["cs"])
	assert.Equal(t, open[1].Id, placement["me"])
	assert.True(t, lo.NoneBy(summary.Assignments, func(assignment SeatAssignment) bool { return assignment.ManualOverride }))
}

func TestAllocateManualPrecedence(t *testing.T) {
	//** Arrange
	seats := gridSeats("R", 3, 3)
	manual := SeatAssignment{Exam: "E", Student: "s0", Room: "R", Seat: seats[4].Id, ManualOverride: true}
	other := SeatAssignment{Exam: "F", Student: "s1", Room: "R", Seat: seats[0].Id}
	store := &fakeStore{rows: []SeatAssignment{
		manual,
		other,
		{Exam: "E", Student: "s1", Room: "R", Seat: seats[8].Id},
	}}
	spy := &spyAssigner{Assigner: NewSATAssigner(sat.NewDPLLSolver())}
	allocator := NewAllocator(spy, WithStore(store), WithLogger(quietLogger()))
	request := ExamRequest{
		Exam:   "E",
		Roster: spacedRoster(4),
		Rooms:  []Room{{Id: "R", Seats: seats}},
	}

	for run := range 2 {
		//** Act
		summary, err := allocator.AllocateExam(context.Background(), request)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, 4, summary.TotalSeated)
		assert.Equal(t, []SeatAssignment{manual}, summary.Locked)
		assert.Len(t, summary.Assignments, 3)
		assert.Equal(t, run+1, store.deletes)

		problem := spy.problems[len(spy.problems)-1]
		assert.NotContains(t, lo.Map(problem.Students, func(student Student, _ int) string { return student.Id }), "s0")
		assert.NotContains(t, lo.Map(problem.Seats, func(seat Seat, _ int) string { return seat.Id }), seats[4].Id)

		// Manual row untouched, exam rows replaced wholesale, other exams untouched
		assert.Contains(t, store.rows, manual)
		assert.Contains(t, store.rows, other)
		examRows := lo.Filter(store.rows, func(row SeatAssignment, _ int) bool { return row.Exam == "E" })
		assert.Len(t, examRows, 4)
	}
}

func TestAllocateRequestedLocksAgainstStore(t *testing.T) {
	seats := gridSeats("R", 2, 2)
	stored := SeatAssignment{Exam: "E", Student: "s0", Room: "R", Seat: seats[0].Id, ManualOverride: true}

	t.Run("Fresh locks are saved as manual", func(t *testing.T) {
		//** Arrange
		store := &fakeStore{rows: []SeatAssignment{stored}}
		allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithStore(store), WithLogger(quietLogger()))
		request := ExamRequest{
			Exam:   "E",
			Roster: spacedRoster(3),
			Locked: []SeatAssignment{
				{Student: "s0", Room: "R", Seat: seats[0].Id},
				{Student: "s1", Room: "R", Seat: seats[3].Id},
			},
			Rooms: []Room{{Id: "R", Seats: seats}},
		}

		//** Act
		summary, err := allocator.AllocateExam(context.Background(), request)

		//** Assert
		require.NoError(t, err)
		assert.Len(t, summary.Locked, 2)
		assert.Equal(t, 3, summary.TotalSeated)
		manual, _ := store.ManualAssignments(context.Background(), "E")
		assert.Len(t, manual, 2)
	})

	t.Run("Contradicting locks are rejected", func(t *testing.T) {
		//** Arrange
		store := &fakeStore{rows: []SeatAssignment{stored}}
		allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithStore(store), WithLogger(quietLogger()))
		requests := [][]SeatAssignment{
			{{Student: "s0", Room: "R", Seat: seats[1].Id}},
			{{Student: "s1", Room: "R", Seat: seats[0].Id}},
		}

		for _, locked := range requests {
			//** Act
			_, err := allocator.AllocateExam(context.Background(), ExamRequest{
				Exam:   "E",
				Roster: spacedRoster(3),
				Locked: locked,
				Rooms:  []Room{{Id: "R", Seats: seats}},
			})

			//** Assert
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		}
		assert.Equal(t, []SeatAssignment{stored}, store.rows)
	})
}

func TestAllocateStoreFailureAborts(t *testing.T) {
	//** Arrange
	store := &fakeStore{saveError: errors.New("connection reset")}
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithStore(store), WithLogger(quietLogger()))
	request := ExamRequest{
		Exam:   "E",
		Roster: spacedRoster(4),
		Rooms: []Room{
			{Id: "R1", Seats: gridSeats("R1", 1, 2)},
			{Id: "R2", Seats: gridSeats("R2", 1, 2)},
		},
	}

	//** Act
	summary, err := allocator.AllocateExam(context.Background(), request)

	//** Assert
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, summary.Rooms)
	assert.Len(t, summary.Unseated, 4)
}

func TestAllocateInvalidRequest(t *testing.T) {
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithLogger(quietLogger()))
	seats := gridSeats("R", 1, 2)
	requests := []ExamRequest{
		{Roster: spacedRoster(1), Rooms: []Room{{Id: "R", Seats: seats}}},
		{Exam: "E", Roster: append(spacedRoster(2), spacedRoster(1)...), Rooms: []Room{{Id: "R", Seats: seats}}},
		{Exam: "E", Roster: spacedRoster(1), Rooms: []Room{{Id: "R", Seats: seats}, {Id: "Q", Seats: seats}}},
		{Exam: "E", Roster: spacedRoster(1), Rooms: []Room{{Id: "R", Seats: seats}}, Locked: []SeatAssignment{{Student: "x", Room: "R", Seat: seats[0].Id}}},
		{Exam: "E", Roster: spacedRoster(1), Rooms: []Room{{Id: "R", Seats: seats}}, Locked: []SeatAssignment{{Student: "s0", Room: "Q", Seat: seats[0].Id}}},
	}

	for i, request := range requests {
		//** Act
		summary, err := allocator.AllocateExam(context.Background(), request)

		//** Assert
		assert.Equal(t, StatusValidationError, StatusOf(err), "request %d", i)
		assert.Empty(t, summary.Rooms)
	}
}

func TestAllocateCanceled(t *testing.T) {
	//** Arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	allocator := NewAllocator(NewSATAssigner(sat.NewDPLLSolver()), WithLogger(quietLogger()))
	request := ExamRequest{
		Exam:   "E",
		Roster: spacedRoster(2),
		Rooms:  []Room{{Id: "R", Seats: gridSeats("R", 1, 4)}},
	}

	//** Act
	summary, err := allocator.AllocateExam(ctx, request)

	//** Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Assignments)
}

func TestKeyedLocker(t *testing.T) {
	//** Arrange
	locker := NewKeyedLocker()
	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)

	//** Act & Assert
	// Other keys are independent
	unlockOther, err := locker.Lock(context.Background(), "b")
	require.NoError(t, err)
	unlockOther()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)

	acquired := make(chan struct{})
	go func() {
		unlock, err := locker.Lock(context.Background(), "a")
		if err == nil {
			unlock()
		}
		close(acquired)
	}()

	unlock()
	unlock() // Releasing twice is harmless
	<-acquired

	unlock, err = locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
}
