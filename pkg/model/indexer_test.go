package model

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexAndAttributesDeterministic(t *testing.T) {
	for range 10 {
		//** Arrange
		students := uint64(rand.IntN(60) + 1)
		seats := uint64(rand.IntN(60) + 1)
		indexer := newIndexer(students, seats)

		//** Act
		indices := make(map[uint64]bool, students*seats)
		for student := range students {
			for seat := range seats {
				index := indexer.Index(student, seat)
				indices[index] = true

				//** Assert
				derivedStudent, derivedSeat := indexer.Attributes(index)
				assert.Equal(t, student, derivedStudent)
				assert.Equal(t, seat, derivedSeat)
			}
		}

		// Indices are unique and fill the range [1, students*seats]
		assert.Len(t, indices, int(indexer.Variables()))
		for index := range indices {
			assert.True(t, index >= 1 && index <= indexer.Variables())
		}
	}
}

func TestIndexAndAttributesNonDeterministic(t *testing.T) {
	scenarios := [][2]uint64{{1, 1}, {1, 40}, {40, 40}, {7, 13}, {30, 2}}

	for _, scenario := range scenarios {
		indexer := newIndexer(scenario[0], scenario[1])
		for index := uint64(1); index <= indexer.Variables(); index++ {
			student, seat := indexer.Attributes(index)
			assert.Equal(t, index, indexer.Index(student, seat))
		}
	}
}
