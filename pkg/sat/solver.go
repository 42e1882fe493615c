package sat

import "context"

type SATSolver interface {
	// Returns a solution of the SAT instance if satisfiable, else returns nil (these are valid outputs where error shall be nil).
	// The context bounds the search: once it is done the solver gives up and returns the context's error
	Solve(ctx context.Context, sat SAT) (SATSolution, error)
}
