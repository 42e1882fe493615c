package sat

import (
	"context"

	"github.com/samber/lo"
)

// Number of decisions between two context checks
const contextCheckInterval = 256

type dpllSolver struct{}

// NewDPLLSolver returns an in-process solver (DPLL with two-watched-literal unit propagation and chronological backtracking).
// It honors SAT.Preferred: preferred literals are decided true in the given order before any other variable is touched
func NewDPLLSolver() SATSolver {
	return &dpllSolver{}
}

func (solver *dpllSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	search := newSearch(sat)
	satisfiable, err := search.run(ctx)
	if err != nil {
		return nil, err
	} else if !satisfiable {
		return nil, nil
	}
	return search.solution(), nil
}

// literal encodes variable v as 2v (positive) or 2v+1 (negative)
type literal uint64

func toLiteral(value int64) literal {
	if value < 0 {
		return literal(uint64(-value)<<1 | 1)
	}
	return literal(uint64(value) << 1)
}

func (l literal) variable() uint64 { return uint64(l >> 1) }
func (l literal) negate() literal   { return l ^ 1 }
func (l literal) negative() bool    { return l&1 == 1 }

type decision struct {
	trailSize int     // Trail length right before the decision was assigned
	literal   literal // Currently assigned value of the decision
	flipped   bool    // Whether both polarities have been tried
	cursor    int     // Preferred cursor at decision time
	free      int     // Free-variable cursor at decision time
}

type search struct {
	clauses   [][]literal
	watches   [][]int // Clauses watching a literal, indexed by literal
	values    []int8  // 0 unassigned, 1 true, -1 false, indexed by variable
	trail     []literal
	head      int // Next trail position to propagate
	decisions []decision
	preferred []literal
	cursor    int
	free      int
	units     []literal
	empty     bool // An empty clause makes the instance trivially unsatisfiable
}

func newSearch(sat SAT) *search {
	variables := sat.Variables
	for _, clause := range sat.Clauses {
		for _, value := range clause {
			variables = max(variables, uint64(lo.Ternary(value < 0, -value, value)))
		}
	}

	s := &search{
		clauses: make([][]literal, 0, len(sat.Clauses)),
		watches: make([][]int, 2*(variables+1)),
		values:  make([]int8, variables+1),
		free:    1,
	}

	for _, raw := range sat.Clauses {
		clause, tautology := normalizeClause(raw)
		switch {
		case tautology:
			continue
		case len(clause) == 0:
			s.empty = true
		case len(clause) == 1:
			s.units = append(s.units, clause[0])
		default:
			index := len(s.clauses)
			s.clauses = append(s.clauses, clause)
			s.watches[clause[0]] = append(s.watches[clause[0]], index)
			s.watches[clause[1]] = append(s.watches[clause[1]], index)
		}
	}

	// Preferred literals over unknown variables are meaningless, drop them
	s.preferred = lo.FilterMap(sat.Preferred, func(value int64, _ int) (literal, bool) {
		l := toLiteral(value)
		return l, value != 0 && l.variable() <= variables
	})
	return s
}

// Removes repeated literals and reports whether the clause contains a literal and its negation
func normalizeClause(raw []int64) ([]literal, bool) {
	seen := make(map[literal]bool, len(raw))
	clause := make([]literal, 0, len(raw))
	for _, value := range raw {
		if value == 0 {
			continue
		}
		l := toLiteral(value)
		if seen[l.negate()] {
			return nil, true
		} else if !seen[l] {
			seen[l] = true
			clause = append(clause, l)
		}
	}
	return clause, false
}

func (s *search) value(l literal) int8 {
	value := s.values[l.variable()]
	if l.negative() {
		return -value
	}
	return value
}

func (s *search) assign(l literal) {
	s.values[l.variable()] = lo.Ternary[int8](l.negative(), -1, 1)
	s.trail = append(s.trail, l)
}

// Assigns the literal unless it is already set; returns false when it is already false (conflict)
func (s *search) enqueue(l literal) bool {
	switch s.value(l) {
	case 1:
		return true
	case -1:
		return false
	}
	s.assign(l)
	return true
}

// Propagates every pending assignment of the trail; returns false on conflict
func (s *search) propagate() bool {
	for s.head < len(s.trail) {
		falsified := s.trail[s.head].negate()
		s.head++

		watchers := s.watches[falsified]
		kept := watchers[:0]
		conflict := false
		for _, index := range watchers {
			if conflict {
				kept = append(kept, index)
				continue
			}

			clause := s.clauses[index]
			// Keep the falsified watch in the second position
			if clause[0] == falsified {
				clause[0], clause[1] = clause[1], clause[0]
			}
			if s.value(clause[0]) == 1 {
				kept = append(kept, index)
				continue
			}

			// Look for a replacement watch
			moved := false
			for k := 2; k < len(clause); k++ {
				if s.value(clause[k]) != -1 {
					clause[1], clause[k] = clause[k], clause[1]
					s.watches[clause[1]] = append(s.watches[clause[1]], index)
					moved = true
					break
				}
			}
			if moved {
				continue
			}

			// Clause is unit (or conflicting) under the current assignment
			kept = append(kept, index)
			if !s.enqueue(clause[0]) {
				conflict = true
			}
		}
		s.watches[falsified] = kept

		if conflict {
			return false
		}
	}
	return true
}

// Picks the next decision: first unassigned preferred literal, else the first free variable set to false
func (s *search) pick() (literal, bool) {
	for ; s.cursor < len(s.preferred); s.cursor++ {
		if s.value(s.preferred[s.cursor]) == 0 {
			return s.preferred[s.cursor], true
		}
	}
	for ; s.free < len(s.values); s.free++ {
		if s.values[s.free] == 0 {
			return literal(uint64(s.free)<<1 | 1), true
		}
	}
	return 0, false
}

// Undoes the trail down to the given size
func (s *search) undo(size int) {
	for i := len(s.trail) - 1; i >= size; i-- {
		s.values[s.trail[i].variable()] = 0
	}
	s.trail = s.trail[:size]
	s.head = size
}

// Flips the deepest decision that has not been flipped yet; returns false when the search space is exhausted
func (s *search) backtrack() bool {
	for len(s.decisions) > 0 && s.decisions[len(s.decisions)-1].flipped {
		s.decisions = s.decisions[:len(s.decisions)-1]
	}
	if len(s.decisions) == 0 {
		return false
	}

	last := &s.decisions[len(s.decisions)-1]
	s.undo(last.trailSize)
	last.flipped = true
	last.literal = last.literal.negate()
	s.cursor, s.free = last.cursor, last.free
	s.assign(last.literal)
	return true
}

func (s *search) run(ctx context.Context) (bool, error) {
	if s.empty {
		return false, nil
	}
	for _, unit := range s.units {
		if !s.enqueue(unit) {
			return false, nil
		}
	}
	if !s.propagate() {
		return false, nil
	}

	for steps := 0; ; steps++ {
		if steps%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}

		next, ok := s.pick()
		if !ok {
			return true, nil
		}

		s.decisions = append(s.decisions, decision{
			trailSize: len(s.trail),
			literal:   next,
			cursor:    s.cursor,
			free:      s.free,
		})
		s.assign(next)

		for !s.propagate() {
			if !s.backtrack() {
				return false, nil
			}
		}
	}
}

func (s *search) solution() SATSolution {
	solution := make(SATSolution, 0, len(s.values)-1)
	for variable := 1; variable < len(s.values); variable++ {
		solution = append(solution, lo.Ternary(s.values[variable] == 1, int64(variable), -int64(variable)))
	}
	return solution
}
