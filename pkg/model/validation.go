package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

func structReasons(value any) []string {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		return lo.Map(fieldErrors, func(fieldError validator.FieldError, _ int) string {
			return fmt.Sprintf("%v failed on the %q rule", fieldError.Namespace(), fieldError.Tag())
		})
	}
	return []string{err.Error()}
}

func duplicatedIds[T any](items []T, id func(T) string, kind string) []string {
	reasons := []string{}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := id(item)
		if key == "" {
			continue
		} else if seen[key] {
			reasons = append(reasons, fmt.Sprintf("%v %q is duplicated", kind, key))
		}
		seen[key] = true
	}
	return reasons
}

func validateRequest(request ExamRequest) error {
	reasons := structReasons(request)
	reasons = append(reasons, duplicatedIds(request.Roster, func(student Student) string { return student.Id }, "student")...)
	reasons = append(reasons, duplicatedIds(request.Rooms, func(room Room) string { return room.Id }, "room")...)

	seats := lo.FlatMap(request.Rooms, func(room Room, _ int) []Seat { return room.Seats })
	reasons = append(reasons, duplicatedIds(seats, func(seat Seat) string { return seat.Id }, "seat")...)

	// Two seats of the same room cannot share a grid position
	for _, room := range request.Rooms {
		positions := make(map[[2]int]string)
		for _, seat := range room.Seats {
			row, column, ok := seat.Position()
			if !ok {
				continue
			}
			if other, taken := positions[[2]int{row, column}]; taken {
				reasons = append(reasons, fmt.Sprintf("seats %q and %q of room %q share row %d and column %d", other, seat.Id, room.Id, row, column))
				continue
			}
			positions[[2]int{row, column}] = seat.Id
		}
	}

	roster := lo.SliceToMap(request.Roster, func(student Student) (string, bool) { return student.Id, true })
	seatRooms := make(map[string]string)
	for _, room := range request.Rooms {
		for _, seat := range room.Seats {
			seatRooms[seat.Id] = room.Id
		}
	}
	for _, locked := range request.Locked {
		if !roster[locked.Student] {
			reasons = append(reasons, fmt.Sprintf("locked student %q is not in the roster", locked.Student))
		}
		if room, ok := seatRooms[locked.Seat]; !ok {
			reasons = append(reasons, fmt.Sprintf("locked seat %q does not exist", locked.Seat))
		} else if room != locked.Room {
			reasons = append(reasons, fmt.Sprintf("locked seat %q belongs to room %q, not %q", locked.Seat, room, locked.Room))
		}
	}
	reasons = append(reasons, duplicatedIds(request.Locked, func(locked SeatAssignment) string { return locked.Seat }, "locked seat")...)
	reasons = append(reasons, duplicatedIds(request.Locked, func(locked SeatAssignment) string { return locked.Student }, "locked student")...)

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}

func validateProblem(problem RoomProblem) error {
	reasons := structReasons(problem)
	reasons = append(reasons, duplicatedIds(problem.Seats, func(seat Seat) string { return seat.Id }, "seat")...)
	reasons = append(reasons, duplicatedIds(problem.Students, func(student Student) string { return student.Id }, "student")...)

	if len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}
	return nil
}
