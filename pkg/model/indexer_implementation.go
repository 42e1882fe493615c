package model

type indexerImplementation struct {
	students uint64
	seats    uint64
}

func (indexer *indexerImplementation) Index(student, seat uint64) uint64 {
	return student + indexer.students*seat + 1
}

func (indexer *indexerImplementation) Attributes(index uint64) (student, seat uint64) {
	index = index - 1
	student = index % indexer.students
	index = index / indexer.students

	seat = index % indexer.seats

	return student, seat
}

func (indexer *indexerImplementation) Variables() uint64 {
	return indexer.students * indexer.seats
}
