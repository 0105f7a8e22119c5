package sparse

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingular indicates a matrix that is singular or not positive
	// definite for solvers that require it.
	ErrSingular = errors.New("sparse: singular matrix")
	// ErrNoConvergence indicates an iterative solver hit its iteration limit.
	ErrNoConvergence = errors.New("sparse: solver did not converge")
)

type Solver interface {
	Solve(A *Matrix, b []float64) (soln []float64, err error)
	Status() string
}

// New returns the solver registered under name: "lu" (the default for an
// empty name), "cholesky", "cg" or "gauss-seidel".
func New(name string) (Solver, error) {
	switch name {
	case "", "lu":
		return DenseLU{}, nil
	case "cholesky":
		return Cholesky{}, nil
	case "cg":
		return &CG{}, nil
	case "gauss-seidel":
		return &GaussSeidel{}, nil
	}
	return nil, fmt.Errorf("unknown linear solver %q", name)
}

// DenseLU solves the system with a dense LU factorization.
type DenseLU struct{}

func (DenseLU) Status() string { return "dense LU" }

func (DenseLU) Solve(A *Matrix, b []float64) ([]float64, error) {
	var u mat.VecDense
	if err := u.SolveVec(A, mat.NewVecDense(len(b), append([]float64{}, b...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return u.RawVector().Data, nil
}

// Cholesky solves symmetric positive definite systems with a sparse Cholesky
// factorization A = L*L^T.  Fill-in is limited to the matrix profile, so it
// is cheap for banded systems.
type Cholesky struct{}

func (Cholesky) Status() string { return "sparse cholesky" }

func (Cholesky) Solve(A *Matrix, b []float64) ([]float64, error) {
	L, err := factorCholesky(A)
	if err != nil {
		return nil, err
	}
	size := len(b)

	// Solve Ly = b via forward substitution
	y := make([]float64, size)
	for i := 0; i < size; i++ {
		tot := 0.0
		for j, v := range L.NonzeroCols(i) {
			if j < i {
				tot += y[j] * v
			}
		}
		y[i] = (b[i] - tot) / L.At(i, i)
	}

	// Solve L^T x = y via backward substitution (walking columns of L
	// simulates the transpose)
	x := make([]float64, size)
	for i := size - 1; i >= 0; i-- {
		tot := 0.0
		for j, v := range L.NonzeroRows(i) {
			if j > i {
				tot += x[j] * v
			}
		}
		x[i] = (y[i] - tot) / L.At(i, i)
	}
	return x, nil
}

func factorCholesky(A *Matrix) (*Matrix, error) {
	size, _ := A.Dims()
	L := NewMatrix(size)
	for i := 0; i < size; i++ {
		cols := A.sortedCols(i)
		if len(cols) == 0 {
			return nil, fmt.Errorf("%w: empty row %v", ErrSingular, i)
		}
		// entries of L may fill in anywhere between the first nonzero of row
		// i and the diagonal
		for j := cols[0]; j <= i; j++ {
			// lij = (aij - sum_k<j lik*ljk) / ljj
			sum := A.At(i, j)
			for k, lik := range L.NonzeroCols(i) {
				if k < j {
					sum -= lik * L.At(j, k)
				}
			}
			if i == j {
				if !(sum > 0) {
					return nil, fmt.Errorf("%w: non-positive pivot %v at row %v", ErrSingular, sum, i)
				}
				L.Set(i, i, math.Sqrt(sum))
			} else {
				L.Set(i, j, sum/L.At(j, j))
			}
		}
	}
	return L, nil
}

// Preconditioner takes a (e.g. residual) vector r, applies a preconditioning
// matrix to it and stores the result in z.
type Preconditioner func(z, r []float64)

// Jacobi returns a diagonal preconditioner for A.
func Jacobi(A *Matrix) Preconditioner {
	size, _ := A.Dims()
	inv := make([]float64, size)
	for i := range inv {
		inv[i] = 1
		if d := A.At(i, i); d != 0 {
			inv[i] = 1 / d
		}
	}
	return func(z, r []float64) { floats.MulTo(z, inv, r) }
}

// CG implements a preconditioned linear conjugate gradient solver for
// symmetric positive definite systems (see
// http://wikipedia.org/wiki/Conjugate_gradient_method).
type CG struct {
	// MaxIter defaults to 10 times the system size.
	MaxIter int
	// Tol is the residual norm relative to |b| at which the solver stops.
	// It defaults to 1e-12.
	Tol float64
	// Preconditioner is applied every iteration.  If it is nil, a Jacobi
	// preconditioner is used.
	Preconditioner Preconditioner
	niter          int
	ndof           int
}

func (cg *CG) Status() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "CG Solver Stats:\n")
	fmt.Fprintf(&buf, "    %v dof\n", cg.ndof)
	fmt.Fprintf(&buf, "    converged in %v iterations", cg.niter)
	return buf.String()
}

func (cg *CG) Solve(A *Matrix, b []float64) (x []float64, err error) {
	size := len(b)
	cg.ndof = size
	maxiter, tol := cg.MaxIter, cg.Tol
	if maxiter <= 0 {
		maxiter = 10 * size
	}
	if tol <= 0 {
		tol = 1e-12
	}
	precond := cg.Preconditioner
	if precond == nil {
		precond = Jacobi(A)
	}

	x = make([]float64, size)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		return x, nil
	}

	r := append([]float64{}, b...)
	z := make([]float64, size)
	precond(z, r)
	p := append([]float64{}, z...)
	rz := floats.Dot(r, z)

	for cg.niter = 1; cg.niter <= maxiter; cg.niter++ {
		Ap := A.Mul(p)
		pAp := floats.Dot(p, Ap)
		if !(pAp > 0) {
			return nil, fmt.Errorf("%w: p*A*p=%v at iteration %v", ErrSingular, pAp, cg.niter)
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)   // xnext = x+alpha*p
		floats.AddScaled(r, -alpha, Ap) // rnext = r-alpha*A*p
		if floats.Norm(r, 2)/bnorm < tol {
			return x, nil
		}
		precond(z, r)
		rznext := floats.Dot(r, z)
		beta := rznext / rz
		floats.AddScaledTo(p, z, beta, p) // pnext = z + beta*p
		rz = rznext
	}
	return nil, fmt.Errorf("%w: CG residual above %v after %v iterations", ErrNoConvergence, tol, maxiter)
}

// GaussSeidel is a symmetric successive over-relaxation solver: each
// iteration sweeps the rows forward and then backward.
type GaussSeidel struct {
	// MaxIter defaults to 100 times the system size.
	MaxIter int
	// Tol is the relative change in the solution between iterations at which
	// the solver stops.  It defaults to 1e-12.
	Tol float64
	// Relax is the over-relaxation factor between 1.0 and 2.0.  It defaults
	// to 1.5.
	Relax float64
	niter int
}

func (g *GaussSeidel) Status() string { return fmt.Sprintf("converged in %v iterations", g.niter) }

func (g *GaussSeidel) solveRow(A *Matrix, i int, relax float64, b, soln []float64) {
	tot := 0.0
	for j, v := range A.NonzeroCols(i) {
		if j != i {
			tot += v * soln[j]
		}
	}
	soln[i] = (1-relax)*soln[i] + relax*(b[i]-tot)/A.At(i, i)
}

func (g *GaussSeidel) Solve(A *Matrix, b []float64) ([]float64, error) {
	size := len(b)
	maxiter, tol, relax := g.MaxIter, g.Tol, g.Relax
	if maxiter <= 0 {
		maxiter = 100 * size
	}
	if tol <= 0 {
		tol = 1e-12
	}
	if relax <= 0 {
		relax = 1.5
	}
	for i := 0; i < size; i++ {
		if A.At(i, i) == 0 {
			return nil, fmt.Errorf("%w: zero diagonal at row %v", ErrSingular, i)
		}
	}

	soln := append([]float64{}, b...)
	prev := make([]float64, size)
	diff := make([]float64, size)
	for g.niter = 1; g.niter <= maxiter; g.niter++ {
		copy(prev, soln)
		for i := 0; i < size; i++ {
			g.solveRow(A, i, relax, b, soln)
		}
		for i := size - 1; i >= 0; i-- {
			g.solveRow(A, i, relax, b, soln)
		}

		floats.SubTo(diff, soln, prev)
		norm := floats.Norm(soln, 2)
		if norm == 0 || floats.Norm(diff, 2)/norm < tol {
			return soln, nil
		}
	}
	return nil, fmt.Errorf("%w: Gauss-Seidel change above %v after %v iterations", ErrNoConvergence, tol, maxiter)
}
