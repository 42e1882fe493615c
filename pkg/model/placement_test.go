package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Students with consecutive rolls, subjects and sections assigned round robin. Zero sections leaves them empty
func cohort(size, subjects, sections int) []Student {
	return lo.Map(lo.Range(size), func(i int, _ int) Student {
		return Student{
			Id:      fmt.Sprint("s", i),
			Subject: fmt.Sprint("sub", i%subjects),
			Section: lo.Ternary(sections > 0, fmt.Sprint("sec", i%max(sections, 1)), ""),
			Roll:    fmt.Sprintf("21CS%03d", i+1),
		}
	})
}

func assertSeparated(t *testing.T, state *roomState, placement []int) {
	t.Helper()
	occupants := lo.Map(state.problem.Seats, func(Seat, int) int { return -1 })
	for student, seat := range placement {
		require.GreaterOrEqual(t, seat, 0, "student %v unplaced", student)
		require.Equal(t, -1, occupants[seat], "seat %v shared", seat)
		occupants[seat] = student
	}
	for student := range placement {
		assert.True(t, state.separated(student, placement, occupants), "student %v next to a conflict", student)
	}
}

func TestPlaceRealisticRooms(t *testing.T) {
	cases := []struct {
		name          string
		rows, columns int
		students      int
		subjects      int
		sections      int
		mode          Mode
		seed          uint64
	}{
		{"6x6 half full seed 1", 6, 6, 18, 4, 0, ModeSemester, 1},
		{"6x6 half full seed 2", 6, 6, 18, 4, 0, ModeSemester, 2},
		{"6x6 half full seed 3", 6, 6, 18, 4, 0, ModeMid, 3},
		{"4x6 half full", 4, 6, 12, 4, 0, ModeSemester, 3},
		{"6x10 half full", 6, 10, 30, 4, 0, ModeMid, 1},
		{"10x10 half full with sections", 10, 10, 50, 4, 5, ModeSemester, 7},
		{"10x10 half full mid", 10, 10, 50, 4, 5, ModeMid, 7},
		{"6x10 full", 6, 10, 60, 12, 0, ModeSemester, 4},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			//** Arrange
			state := newRoomState(RoomProblem{
				Room:     "R",
				Seats:    gridSeats("R", test.rows, test.columns),
				Students: cohort(test.students, test.subjects, test.sections),
				Mode:     test.mode,
				Seed:     test.seed,
			})

			//** Act
			placement, err := place(context.Background(), state)

			//** Assert
			require.NoError(t, err)
			require.Len(t, placement, test.students)
			assertSeparated(t, state, placement)
		})
	}
}

func TestPlaceGivesUpOnInfeasibleRoom(t *testing.T) {
	//** Arrange
	state := newRoomState(rollInfeasibleProblem())

	//** Act
	placement, err := place(context.Background(), state)

	//** Assert
	require.NoError(t, err)
	assert.Nil(t, placement)
}

func TestPlaceCanceled(t *testing.T) {
	//** Arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := newRoomState(RoomProblem{Seats: gridSeats("R", 2, 2), Students: cohort(2, 2, 0)})

	//** Act
	placement, err := place(ctx, state)

	//** Assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, placement)
}

func TestPlaceInterleavesConflictingPairs(t *testing.T) {
	//** Arrange
	// Two roll pairs fit a row of four only interleaved
	students := []Student{
		{Id: "a", Roll: "101"},
		{Id: "b", Roll: "102"},
		{Id: "c", Roll: "110"},
		{Id: "d", Roll: "111"},
	}
	state := newRoomState(RoomProblem{Room: "R", Seats: gridSeats("R", 1, 4), Students: students, Mode: ModeMid})

	//** Act
	placement, err := place(context.Background(), state)

	//** Assert
	require.NoError(t, err)
	require.Len(t, placement, 4)
	assertSeparated(t, state, placement)
}

func TestPlacementOrderHeaviestFirst(t *testing.T) {
	//** Arrange
	students := []Student{{Id: "a", Roll: "30"}, {Id: "b", Roll: "10"}, {Id: "c", Roll: "20"}}
	state := newRoomState(RoomProblem{Seats: gridSeats("R", 1, 5), Students: students, Mode: ModeMid})

	//** Act
	order := state.placementOrder()

	//** Assert
	assert.Equal(t, []int{1, 2, 0}, order)
}

func TestSeatRanksByPosition(t *testing.T) {
	//** Arrange
	row2, row10, column := 2, 10, 0
	seats := []Seat{
		{Id: "R-10-0", Room: "R", Row: &row10, Column: &column},
		{Id: "R-2-0", Room: "R", Row: &row2, Column: &column},
		{Id: "A", Room: "R"},
	}

	//** Act
	ranks := seatRanks(seats)

	//** Assert
	// Row 2 goes first although its identifier sorts after "R-10-0"
	assert.Equal(t, []int{1, 0, 2}, ranks)
}
