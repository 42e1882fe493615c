package model

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ConflictReason tells why two students must not sit next to each other
type ConflictReason uint8

const (
	ConflictSubject ConflictReason = 1 << iota
	ConflictSection
	ConflictRoll
)

func (reason ConflictReason) String() string {
	var builder strings.Builder
	if reason&ConflictSubject != 0 {
		builder.WriteString("S")
	}
	if reason&ConflictSection != 0 {
		builder.WriteString("C")
	}
	if reason&ConflictRoll != 0 {
		builder.WriteString("R")
	}
	return builder.String()
}

var digitsPattern = regexp.MustCompile(`\d+`)

// RollNumber extracts the last run of digits of a roll number. ok is false when there is none, such rolls never collide
func RollNumber(roll string) (value int64, ok bool) {
	runs := digitsPattern.FindAllString(roll, -1)
	if len(runs) == 0 {
		return 0, false
	}
	value, err := strconv.ParseInt(runs[len(runs)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Conflict compares two student records, the zero value means they may sit together
func Conflict(student1, student2 Student) ConflictReason {
	var reason ConflictReason
	if student1.Subject != "" && student1.Subject == student2.Subject {
		reason |= ConflictSubject
	}
	if student1.Section != "" && student1.Section == student2.Section {
		reason |= ConflictSection
	}
	roll1, ok1 := RollNumber(student1.Roll)
	roll2, ok2 := RollNumber(student2.Roll)
	if ok1 && ok2 && (roll1-roll2 == 1 || roll2-roll1 == 1) {
		reason |= ConflictRoll
	}
	return reason
}

// ConflictSet holds the unordered pairs of students that must not be adjacent
type ConflictSet struct {
	pairs map[[2]string]ConflictReason
}

func pairKey(student1, student2 string) [2]string {
	if student2 < student1 {
		return [2]string{student2, student1}
	}
	return [2]string{student1, student2}
}

// Conflicts compares every unordered pair of the subset
func Conflicts(students []Student) ConflictSet {
	set := ConflictSet{pairs: make(map[[2]string]ConflictReason)}
	for i := range len(students) - 1 {
		for j := i + 1; j < len(students); j++ {
			if reason := Conflict(students[i], students[j]); reason != 0 {
				set.pairs[pairKey(students[i].Id, students[j].Id)] = reason
			}
		}
	}
	return set
}

func (set ConflictSet) Conflicting(student1, student2 string) bool {
	return set.pairs[pairKey(student1, student2)] != 0
}

func (set ConflictSet) Reason(student1, student2 string) ConflictReason {
	return set.pairs[pairKey(student1, student2)]
}

func (set ConflictSet) Len() int {
	return len(set.pairs)
}

// Pairs returns the conflicting pairs in lexicographic order
func (set ConflictSet) Pairs() [][2]string {
	pairs := make([][2]string, 0, len(set.pairs))
	for pair := range set.pairs {
		pairs = append(pairs, pair)
	}
	slices.SortFunc(pairs, func(a, b [2]string) int {
		if c := strings.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return strings.Compare(a[1], b[1])
	})
	return pairs
}

// computed tells a set built by Conflicts apart from the zero value
func (set ConflictSet) computed() bool {
	return set.pairs != nil
}
