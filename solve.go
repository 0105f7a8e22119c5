package hfem

import (
	"context"
	"fmt"
	"math"

	"github.com/rwcarlsen/hfem/sparse"
)

// Solution is a function over the mesh domain returned by a Solver.
type Solution interface {
	Value(x float64) float64
}

// Derivable is a Solution that also provides its derivative.
type Derivable interface {
	Solution
	Deriv(x float64) float64
}

// Solver computes an approximate solution of the boundary value problem
// described by c on mesh m.
type Solver interface {
	Solve(ctx context.Context, c *Coefficients, m *Mesh) (Solution, error)
}

// Galerkin is a finite element solver using the hat basis of the mesh as
// both trial and test space.
type Galerkin struct {
	// Kernel builds the weak form for the given coefficients and mesh.
	Kernel func(c *Coefficients, m *Mesh) Kernel
	// Linear solves the assembled system.  If nil, sparse.DenseLU is used.
	Linear sparse.Solver
	// Points is the number of Gauss-Legendre points per element.  It
	// defaults to 3.
	Points int
}

// PrimalSolver returns a solver for u.
func PrimalSolver(lin sparse.Solver) *Galerkin {
	return &Galerkin{
		Kernel: func(c *Coefficients, m *Mesh) Kernel { return &PrimalKernel{Coefficients: c, Left: m.Left()} },
		Linear: lin,
	}
}

// DualSolver returns a solver for the complementary flux q = M u'.
func DualSolver(lin sparse.Solver) *Galerkin {
	return &Galerkin{
		Kernel: func(c *Coefficients, m *Mesh) Kernel { return &DualKernel{Coefficients: c} },
		Linear: lin,
	}
}

func (g *Galerkin) elements(m *Mesh) []*Element1D {
	elems := make([]*Element1D, m.Elements())
	for i := range elems {
		elems[i] = NewElement1D(m, i)
		if g.Points > 0 {
			elems[i].Points = g.Points
		}
	}
	return elems
}

// StiffnessMatrix builds the matrix with one entry for each combination of
// node weight and solution functions representing the bilinear form of k.
// Rows and columns of Dirichlet nodes are replaced by the identity.
func (g *Galerkin) StiffnessMatrix(k Kernel, m *Mesh) *sparse.Matrix {
	A := sparse.NewMatrix(m.Len())
	for _, e := range g.elements(m) {
		for i := 0; i < 2; i++ {
			for j := i; j < 2; j++ {
				a, b := e.Index+i, e.Index+j
				v := e.IntegrateStiffness(k, i, j)
				A.Add(a, b, v)
				if a != b {
					A.Add(b, a, v)
				}
			}
		}
	}
	for n := 0; n < m.Len(); n++ {
		if ok, _ := k.IsDirichlet(m.Node(n)); ok {
			for j := range A.NonzeroCols(n) {
				A.Set(n, j, 0)
				A.Set(j, n, 0)
			}
			A.Set(n, n, 1)
		}
	}
	return A
}

// ForceMatrix builds the load vector of k.  Dirichlet values are moved to
// the right hand side so the stiffness matrix stays symmetric.
func (g *Galerkin) ForceMatrix(k Kernel, m *Mesh) []float64 {
	f := make([]float64, m.Len())
	for _, e := range g.elements(m) {
		for i := 0; i < 2; i++ {
			f[e.Index+i] += e.IntegrateForce(k, i)
		}
	}
	for n := 0; n < m.Len(); n++ {
		ok, v := k.IsDirichlet(m.Node(n))
		if !ok {
			continue
		}
		// subtract the Dirichlet column of the unconstrained stiffness from
		// the neighbors' loads
		for _, e := range g.elements(m) {
			if e.Index != n && e.Index+1 != n {
				continue
			}
			local := n - e.Index
			other := 1 - local
			f[e.Index+other] -= v * e.IntegrateStiffness(k, other, local)
		}
		f[n] = v
	}
	return f
}

// Solve assembles and solves the system for c on m.  The returned Solution is
// an *Interpolant.
func (g *Galerkin) Solve(ctx context.Context, c *Coefficients, m *Mesh) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	k := g.Kernel(c, m)
	A := g.StiffnessMatrix(k, m)
	b := g.ForceMatrix(k, m)
	for i, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: load entry %v is %v", ErrSolver, i, v)
		}
		for j, a := range A.NonzeroCols(i) {
			if math.IsNaN(a) || math.IsInf(a, 0) {
				return nil, fmt.Errorf("%w: stiffness entry (%v,%v) is %v", ErrSolver, i, j, a)
			}
		}
	}

	lin := g.Linear
	if lin == nil {
		lin = sparse.DenseLU{}
	}
	u, err := lin.Solve(A, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	for i, v := range u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: node %v solution is %v", ErrSolver, i, v)
		}
	}
	return NewInterpolant(m, u), nil
}

// Interpolant is the superposition of the hat functions of a mesh weighted by
// nodal values.
type Interpolant struct {
	mesh *Mesh
	vals []float64
}

// NewInterpolant returns the piecewise linear function with value vals[i] at
// node i of m.  It panics if len(vals) != m.Len().
func NewInterpolant(m *Mesh, vals []float64) *Interpolant {
	if len(vals) != m.Len() {
		panic(fmt.Sprintf("inconsistent lengths for interpolant: %v nodes, %v values", m.Len(), len(vals)))
	}
	return &Interpolant{mesh: m, vals: append([]float64{}, vals...)}
}

// NodeValues returns a copy of the nodal values.
func (s *Interpolant) NodeValues() []float64 { return append([]float64{}, s.vals...) }

// Value returns the interpolated value at x or zero outside of the mesh.
func (s *Interpolant) Value(x float64) float64 {
	e, ok := s.mesh.Locate(x)
	if !ok {
		return 0
	}
	return s.vals[e]*NewHat(s.mesh, e).Value(x) + s.vals[e+1]*NewHat(s.mesh, e+1).Value(x)
}

// Deriv returns the slope of the element containing x or zero outside of the
// mesh.  At interior nodes the slope of the element on the left is returned.
func (s *Interpolant) Deriv(x float64) float64 {
	e, ok := s.mesh.Locate(x)
	if !ok {
		return 0
	}
	left, right := s.mesh.Element(e)
	return (s.vals[e+1] - s.vals[e]) / (right - left)
}
