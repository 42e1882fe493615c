package model

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func gridSeats(room string, rows, columns int) []Seat {
	seats := make([]Seat, 0, rows*columns)
	for row := range rows {
		for column := range columns {
			seats = append(seats, Seat{
				Id:     fmt.Sprintf("%v-%d-%d", room, row, column),
				Room:   room,
				Row:    &row,
				Column: &column,
			})
		}
	}
	return seats
}

func TestBuildAdjacencyGrid(t *testing.T) {
	//** Arrange
	seats := gridSeats("R", 2, 3)

	//** Act
	adjacency := BuildAdjacency(seats)

	//** Assert
	assert.ElementsMatch(t, []string{"R-0-1", "R-1-0"}, adjacency["R-0-0"])
	assert.ElementsMatch(t, []string{"R-0-0", "R-0-2", "R-1-1"}, adjacency["R-0-1"])
	assert.ElementsMatch(t, []string{"R-1-0", "R-1-2", "R-0-1"}, adjacency["R-1-1"])
	assert.False(t, adjacency.Adjacent("R-0-0", "R-1-1")) // Diagonal
	assert.False(t, adjacency.Adjacent("R-0-0", "R-0-2"))
}

func TestBuildAdjacencySymmetric(t *testing.T) {
	for range 20 {
		//** Arrange
		// Random subsets of a grid, leaving holes between seats
		seats := randomSubset(gridSeats("R", rand.IntN(6)+1, rand.IntN(6)+1))

		//** Act
		adjacency := BuildAdjacency(seats)

		//** Assert
		for seat, neighbors := range adjacency {
			for _, neighbor := range neighbors {
				assert.True(t, adjacency.Adjacent(neighbor, seat), "%v~%v", seat, neighbor)
				assert.NotEqual(t, seat, neighbor)
			}
		}
	}
}

func randomSubset(seats []Seat) []Seat {
	kept := []Seat{}
	for _, seat := range seats {
		if rand.IntN(4) > 0 {
			kept = append(kept, seat)
		}
	}
	return kept
}

func TestBuildAdjacencyWithoutCoordinates(t *testing.T) {
	//** Arrange
	row, column := 0, 0
	seats := []Seat{
		{Id: "A", Row: &row, Column: &column},
		{Id: "B", Row: &row},
		{Id: "C"},
	}

	//** Act
	adjacency := BuildAdjacency(seats)

	//** Assert
	assert.Len(t, adjacency, 3)
	assert.Empty(t, adjacency["A"])
	assert.Empty(t, adjacency["B"])
	assert.Empty(t, adjacency["C"])
}

func TestBuildAdjacencySharedPosition(t *testing.T) {
	//** Arrange
	row, column, next := 0, 0, 1
	seats := []Seat{
		{Id: "A", Row: &row, Column: &column},
		{Id: "B", Row: &row, Column: &column},
		{Id: "C", Row: &row, Column: &next},
	}

	//** Act
	adjacency := BuildAdjacency(seats)

	//** Assert
	assert.Equal(t, []string{"C"}, adjacency["A"])
	assert.Empty(t, adjacency["B"])
	assert.Equal(t, []string{"A"}, adjacency["C"])
}
