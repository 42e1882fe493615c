package model

import "slices"

// Adjacency maps every seat to the seats sharing an edge with it on the room grid (left, right, front and back)
type Adjacency map[string][]string

// Neighbor offsets: right, left, back, front
var gridOffsets = [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// BuildAdjacency derives the 4-directional adjacency of the seats from their coordinates.
// Seats without coordinates are isolated; when two seats share a position the first one keeps it
func BuildAdjacency(seats []Seat) Adjacency {
	adjacency := make(Adjacency, len(seats))
	positions := make(map[[2]int]string, len(seats))
	for _, seat := range seats {
		adjacency[seat.Id] = []string{}
		if row, column, ok := seat.Position(); ok {
			if _, taken := positions[[2]int{row, column}]; !taken {
				positions[[2]int{row, column}] = seat.Id
			}
		}
	}

	for _, seat := range seats {
		row, column, ok := seat.Position()
		if !ok || positions[[2]int{row, column}] != seat.Id {
			continue
		}
		for _, offset := range gridOffsets {
			if neighbor, ok := positions[[2]int{row + offset[0], column + offset[1]}]; ok {
				adjacency[seat.Id] = append(adjacency[seat.Id], neighbor)
			}
		}
	}

	return adjacency
}

func (adjacency Adjacency) Adjacent(seat1, seat2 string) bool {
	return slices.Contains(adjacency[seat1], seat2)
}
