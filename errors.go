package hfem

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMesh indicates a node sequence with fewer than two nodes or
	// nodes that are not strictly increasing.
	ErrInvalidMesh = errors.New("hfem: invalid mesh")

	// ErrInvalidCoefficients indicates a coefficient set that cannot define
	// the boundary value problem (missing functions, non-positive alpha).
	ErrInvalidCoefficients = errors.New("hfem: invalid coefficients")

	// ErrSolver indicates the primal or dual system could not be solved.
	ErrSolver = errors.New("hfem: solver failure")

	// ErrQuadrature indicates numerical integration did not meet its
	// tolerance.
	ErrQuadrature = errors.New("hfem: quadrature did not converge")

	// ErrDegenerateNormalization indicates the global load functional norm is
	// zero, which leaves the error estimate undefined.
	ErrDegenerateNormalization = errors.New("hfem: degenerate load functional norm")
)

// RunError wraps a failure of the refinement driver with the iteration and
// mesh it happened on.
type RunError struct {
	// Iteration is the zero-based refinement step that failed.
	Iteration int
	// Nodes is the mesh the failing step was working on.
	Nodes []float64
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("refinement step %v (%v nodes): %v", e.Iteration, len(e.Nodes), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
