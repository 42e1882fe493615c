package model

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"strings"
)

// Upper bound (exclusive) of the random weights of the semester objective
const randomWeightRange = 1 << 20

// Builds the soft objective weights, student by seat.
//
// Semester mode draws every weight uniformly at random from a generator seeded with seed.
// Mid mode multiplies a roll weight (decreasing in roll rank) by a seat weight (decreasing in seat rank):
// by the rearrangement inequality the sum is maximized when rolls and seats are matched in order
func objectiveWeights(students []Student, seats []Seat, mode Mode, seed uint64) [][]int64 {
	weights := make([][]int64, len(students))

	if mode == ModeMid {
		rollRanks, seatRanks := studentRanks(students), seatRanks(seats)
		for i := range students {
			weights[i] = make([]int64, len(seats))
			rollWeight := int64(len(students) - rollRanks[i])
			for j := range seats {
				seatWeight := int64(len(seats) - seatRanks[j])
				weights[i][j] = rollWeight * seatWeight
			}
		}
		return weights
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range students {
		weights[i] = make([]int64, len(seats))
		for j := range seats {
			weights[i][j] = rng.Int64N(randomWeightRange)
		}
	}
	return weights
}

// Ranks students by the numeric tail of their roll, unparsable rolls last and ties in input order
func studentRanks(students []Student) []int {
	return ranks(len(students), func(a, b int) int {
		rollA, okA := RollNumber(students[a].Roll)
		rollB, okB := RollNumber(students[b].Roll)
		switch {
		case okA && okB:
			return cmp.Compare(rollA, rollB)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
}

// Ranks seats front to back and left to right, seats without coordinates last by identity.
// Positioned seats rank by (row, column), never by the lexicographic order of their identifiers
func seatRanks(seats []Seat) []int {
	return ranks(len(seats), func(a, b int) int {
		rowA, columnA, okA := seats[a].Position()
		rowB, columnB, okB := seats[b].Position()
		switch {
		case okA && okB:
			if c := cmp.Compare(rowA, rowB); c != 0 {
				return c
			} else if c := cmp.Compare(columnA, columnB); c != 0 {
				return c
			}
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(seats[a].Id, seats[b].Id)
	})
}

func ranks(size int, compare func(a, b int) int) []int {
	order := make([]int, size)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, compare)

	ranks := make([]int, size)
	for rank, index := range order {
		ranks[index] = rank
	}
	return ranks
}

func objectiveValue(weights [][]int64, placement []int) int64 {
	var value int64
	for student, seat := range placement {
		value += weights[student][seat]
	}
	return value
}
