package hfem

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/rwcarlsen/hfem/sparse"
)

// standardProblem is -u″ + u = x^2+2x-2, u(0)=0, u'(1)+u(1)-3=0 on [0,1].
func standardProblem() *Coefficients {
	return &Coefficients{
		M:      ConstVal(1),
		Sigma:  ConstVal(1),
		F:      Poly{-2, 2, 1},
		Alpha:  1,
		Target: 3,
	}
}

// exactPrimal and exactDual are the exact u and q = u' of standardProblem.
func exactPrimal(x float64) float64 { return x*x + 2*x - 4/math.E*math.Sinh(x) }
func exactDual(x float64) float64   { return 2*x + 2 - 4/math.E*math.Cosh(x) }

var linearSolvers = map[string]sparse.Solver{
	"lu":           sparse.DenseLU{},
	"cholesky":     sparse.Cholesky{},
	"cg":           &sparse.CG{},
	"gauss-seidel": &sparse.GaussSeidel{},
}

func TestGalerkin_primalNodalExact(t *testing.T) {
	// -u″=2 with u(0)=0 and u'(1)+u(1)=3 has u=3x-x^2; linear elements are
	// exact at the nodes.
	c := &Coefficients{M: ConstVal(1), Sigma: ConstVal(0), F: ConstVal(2), Alpha: 1, Target: 3}
	m, err := NewMesh([]float64{0, 0.25, 0.5, 0.75, 1})
	require.NoError(t, err)
	want := []float64{0, 0.6875, 1.25, 1.6875, 2}

	for name, lin := range linearSolvers {
		soln, err := PrimalSolver(lin).Solve(context.Background(), c, m)
		require.NoError(t, err, name)
		t.Logf("solver %v:", name)
		for i, x := range m.Nodes() {
			y := soln.Value(x)
			if math.Abs(y-want[i]) > tol {
				t.Errorf("    FAIL f(%v)=%v, want %v", x, y, want[i])
			} else {
				t.Logf("         f(%v)=%v", x, y)
			}
		}
	}
}

func TestGalerkin_system(t *testing.T) {
	c := standardProblem()
	m, err := UniformMesh(0, 1, 9)
	require.NoError(t, err)

	for _, g := range []*Galerkin{PrimalSolver(nil), DualSolver(nil)} {
		k := g.Kernel(c, m)
		A := g.StiffnessMatrix(k, m)
		require.Equal(t, 1, A.Bandwidth())
		if !mat.Equal(A, A.T()) {
			t.Errorf("FAIL stiffness matrix is not symmetric:\n% .3v", mat.Formatted(A))
		}
		require.Len(t, g.ForceMatrix(k, m), m.Len())
	}
}

func TestGalerkin_standardProblem(t *testing.T) {
	c := standardProblem()
	m, err := UniformMesh(0, 1, 65)
	require.NoError(t, err)

	u, err := PrimalSolver(nil).Solve(context.Background(), c, m)
	require.NoError(t, err)
	q, err := DualSolver(nil).Solve(context.Background(), c, m)
	require.NoError(t, err)

	for _, x := range m.Nodes() {
		if got, want := u.Value(x), exactPrimal(x); math.Abs(got-want) > 1e-3 {
			t.Errorf("FAIL u(%v)=%v, want %v", x, got, want)
		}
		if got, want := q.Value(x), exactDual(x); math.Abs(got-want) > 1e-3 {
			t.Errorf("FAIL q(%v)=%v, want %v", x, got, want)
		}
	}
}

func TestGalerkin_failures(t *testing.T) {
	ctx := context.Background()
	m, err := UniformMesh(0, 1, 5)
	require.NoError(t, err)

	// no diffusion or reaction leaves interior rows empty
	singular := &Coefficients{M: ConstVal(0), Sigma: ConstVal(0), F: ConstVal(1), Alpha: 1, Target: 1}
	for _, lin := range []sparse.Solver{sparse.DenseLU{}, sparse.Cholesky{}} {
		_, err = PrimalSolver(lin).Solve(ctx, singular, m)
		require.ErrorIs(t, err, ErrSolver, "%T", lin)
	}

	// the dual form divides by sigma
	_, err = DualSolver(nil).Solve(ctx, singular, m)
	require.ErrorIs(t, err, ErrSolver)

	bad := standardProblem()
	bad.Alpha = 0
	_, err = PrimalSolver(nil).Solve(ctx, bad, m)
	require.ErrorIs(t, err, ErrInvalidCoefficients)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = PrimalSolver(nil).Solve(canceled, standardProblem(), m)
	require.ErrorIs(t, err, context.Canceled)
}

func TestInterpolant(t *testing.T) {
	m, err := NewMesh([]float64{0, 0.5, 0.75, 1})
	require.NoError(t, err)
	s := NewInterpolant(m, []float64{0, 1.25, 1.6875, 2})

	tests := []struct {
		X, Val, Grad float64
	}{
		{X: 0, Val: 0, Grad: 2.5},
		{X: 0.25, Val: 0.625, Grad: 2.5},
		{X: 0.5, Val: 1.25, Grad: 2.5}, // nodes take the slope on their left
		{X: 0.6, Val: 1.425, Grad: 1.75},
		{X: 1, Val: 2, Grad: 1.25},
		{X: 1.5, Val: 0, Grad: 0},
		{X: -0.5, Val: 0, Grad: 0},
	}
	for _, test := range tests {
		v, d := s.Value(test.X), s.Deriv(test.X)
		if math.Abs(v-test.Val) > tol || math.Abs(d-test.Grad) > tol {
			t.Errorf("FAIL f(%v)=%v f'=%v, want %v and %v", test.X, v, d, test.Val, test.Grad)
		}
	}
	require.Equal(t, []float64{0, 1.25, 1.6875, 2}, s.NodeValues())
	require.Panics(t, func() { NewInterpolant(m, []float64{1, 2}) })
}
