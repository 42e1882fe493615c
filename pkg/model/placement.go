package model

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"
)

const (
	// Restarts of the constructive placement before the SAT solver takes the room over
	placementAttempts = 8
	// Repair moves allowed per student in every attempt
	repairMovesPerStudent = 64
	// Chance of a random repair move over the least disruptive one
	repairNoise = 0.1
)

// Seats the students constructively. The student with the fewest free seats keeping it apart from its conflicts
// goes first and takes the heaviest of them; a student left without options takes the eligible seat displacing the
// fewest students, which go back to the queue. Returns nil when no attempt seats everyone
func place(ctx context.Context, state *roomState) ([]int, error) {
	rng := rand.New(rand.NewPCG(state.problem.Seed, uint64(len(state.problem.Students))))
	order := state.placementOrder()

	for attempt := range placementAttempts {
		if attempt > 0 {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		placement, err := state.placeAttempt(ctx, order, rng)
		if err != nil || placement != nil {
			return placement, err
		}
	}
	return nil, nil
}

// Students by their heaviest eligible seat, heaviest first
func (state *roomState) placementOrder() []int {
	best := lo.Map(state.weights, func(weights []int64, student int) int64 {
		value := int64(-1)
		for seat, weight := range weights {
			if weight > value && state.evaluator.Eligible(uint64(student), uint64(seat)) {
				value = weight
			}
		}
		return value
	})

	order := lo.Range(len(state.problem.Students))
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(best[b], best[a])
	})
	return order
}

func (state *roomState) placeAttempt(ctx context.Context, order []int, rng *rand.Rand) ([]int, error) {
	placement := lo.Map(state.problem.Students, func(Student, int) int { return -1 })
	occupants := lo.Map(state.problem.Seats, func(Seat, int) int { return -1 })
	unplaced := len(placement)
	moves := repairMovesPerStudent * len(placement)

	for step := 0; unplaced > 0; step++ {
		if step%64 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Most constrained student, ties by order
		student, options := -1, len(occupants)+1
		for _, candidate := range order {
			if placement[candidate] >= 0 {
				continue
			}
			if count := state.freeSeats(candidate, occupants); count < options {
				student, options = candidate, count
				if count == 0 {
					break
				}
			}
		}

		seat := -1
		if options > 0 {
			for candidate := range occupants {
				if state.free(student, candidate, occupants) && (seat < 0 || state.weights[student][candidate] > state.weights[student][seat]) {
					seat = candidate
				}
			}
		} else {
			if moves == 0 {
				return nil, nil
			}
			moves--

			if seat = state.repairSeat(student, occupants, rng); seat < 0 {
				return nil, nil
			}
			for _, displaced := range state.displaced(student, seat, occupants) {
				occupants[placement[displaced]] = -1
				placement[displaced] = -1
				unplaced++
			}
		}

		placement[student], occupants[seat] = seat, student
		unplaced--
	}
	return placement, nil
}

// Whether the student may take the seat: eligible, empty and away from its conflicts
func (state *roomState) free(student, seat int, occupants []int) bool {
	if occupants[seat] >= 0 || !state.evaluator.Eligible(uint64(student), uint64(seat)) {
		return false
	}
	for _, neighbor := range state.neighbors[seat] {
		if occupant := occupants[neighbor]; occupant >= 0 && state.evaluator.Conflicting(uint64(student), uint64(occupant)) {
			return false
		}
	}
	return true
}

func (state *roomState) freeSeats(student int, occupants []int) int {
	count := 0
	for seat := range occupants {
		if state.free(student, seat, occupants) {
			count++
		}
	}
	return count
}

// Students that have to leave for the student to take the seat: its occupant and conflicting neighbors
func (state *roomState) displaced(student, seat int, occupants []int) []int {
	displaced := []int{}
	if occupants[seat] >= 0 {
		displaced = append(displaced, occupants[seat])
	}
	for _, neighbor := range state.neighbors[seat] {
		if occupant := occupants[neighbor]; occupant >= 0 && state.evaluator.Conflicting(uint64(student), uint64(occupant)) {
			displaced = append(displaced, occupant)
		}
	}
	return displaced
}

// Eligible seat displacing the fewest students, ties broken at random. -1 when the student has no eligible seat
func (state *roomState) repairSeat(student int, occupants []int, rng *rand.Rand) int {
	eligible := lo.Filter(lo.Range(len(occupants)), func(seat int, _ int) bool {
		return state.evaluator.Eligible(uint64(student), uint64(seat))
	})
	if len(eligible) == 0 {
		return -1
	} else if rng.Float64() < repairNoise {
		return eligible[rng.IntN(len(eligible))]
	}

	best, cost, ties := -1, 0, 0
	for _, seat := range eligible {
		switch current := len(state.displaced(student, seat, occupants)); {
		case best < 0 || current < cost:
			best, cost, ties = seat, current, 1
		case current == cost:
			ties++
			if rng.IntN(ties) == 0 {
				best = seat
			}
		}
	}
	return best
}
