package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Mode selects the soft objective of the solver
type Mode string

const (
	// Randomized seating, different on every run
	ModeSemester Mode = "SEMESTER"
	// Seating follows roll-number order as closely as the constraints allow
	ModeMid Mode = "MID"
)

// ParseMode maps any value other than "MID" (case-insensitive) to the semester mode
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), string(ModeMid)) {
		return ModeMid
	}
	return ModeSemester
}

type Seat struct {
	Id         string `json:"id" validate:"required"`
	Room       string `json:"room,omitempty"`
	Label      string `json:"label,omitempty"`
	Row        *int   `json:"row,omitempty"`
	Column     *int   `json:"column,omitempty"`
	Accessible bool   `json:"accessible,omitempty"`
}

// Position returns the grid coordinates of the seat, ok is false when any of them is unknown
func (seat Seat) Position() (row, column int, ok bool) {
	if seat.Row == nil || seat.Column == nil {
		return 0, 0, false
	}
	return *seat.Row, *seat.Column, true
}

type Room struct {
	Id    string `json:"id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Seats []Seat `json:"seats" validate:"dive"`
}

// Student is the per-exam record of an examinee
type Student struct {
	Id                  string `json:"id" validate:"required"`
	Subject             string `json:"subject,omitempty"`
	Section             string `json:"section,omitempty"`
	Roll                string `json:"roll,omitempty"`
	NeedsAccessibleSeat bool   `json:"needsAccessibleSeat,omitempty"`
}

type SeatAssignment struct {
	Exam           string `json:"exam"`
	Student        string `json:"student" validate:"required"`
	Room           string `json:"room" validate:"required"`
	Seat           string `json:"seat" validate:"required"`
	ManualOverride bool   `json:"manualOverride"`
}

type RawExamInput struct {
	Exam   string
	Mode   string
	Roster []Student
	Rooms  []Room
	Locked []SeatAssignment
}

type ExamInput struct {
	Exam   string
	Mode   Mode
	Roster []Student
	Rooms  []Room
	Locked []SeatAssignment
}

// Request turns the input into an allocation request
func (input ExamInput) Request(seed uint64, budget time.Duration) ExamRequest {
	return ExamRequest{
		Exam:   input.Exam,
		Mode:   input.Mode,
		Roster: input.Roster,
		Rooms:  input.Rooms,
		Locked: input.Locked,
		Seed:   seed,
		Budget: budget,
	}
}

func InputFromJson(file string) (ExamInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ExamInput{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return ExamInput{}, err
	}

	// Identifiers coming from a relational store are usually numbers, weak typing turns them into strings
	var rawInput RawExamInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rawInput,
	})
	if err != nil {
		return ExamInput{}, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return ExamInput{}, fmt.Errorf("cannot decode input: %w", err)
	}
	return ProcessRawInput(rawInput)
}

func ProcessRawInput(rawInput RawExamInput) (ExamInput, error) {
	input := ExamInput{
		Exam:   rawInput.Exam,
		Mode:   ParseMode(rawInput.Mode),
		Roster: rawInput.Roster,
		Rooms:  rawInput.Rooms,
		Locked: make([]SeatAssignment, 0, len(rawInput.Locked)),
	}

	// Seats inherit the identity of the room listing them
	for i := range input.Rooms {
		for j := range input.Rooms[i].Seats {
			if input.Rooms[i].Seats[j].Room == "" {
				input.Rooms[i].Seats[j].Room = input.Rooms[i].Id
			}
		}
	}

	// Locked placements are manual by definition
	for _, locked := range rawInput.Locked {
		locked.Exam = input.Exam
		locked.ManualOverride = true
		input.Locked = append(input.Locked, locked)
	}

	if err := validateRequest(input.Request(0, 0)); err != nil {
		return ExamInput{}, err
	}
	return input, nil
}
