package hfem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegrator_Integrate(t *testing.T) {
	tests := []struct {
		Name string
		F    Func
		P, Q float64
		Want float64
	}{
		{Name: "const", F: func(x float64) float64 { return 2 }, P: 0, Q: 3, Want: 6},
		{Name: "cubic", F: func(x float64) float64 { return x * x * x }, P: -1, Q: 2, Want: 15.0 / 4},
		{Name: "sin", F: math.Sin, P: 0, Q: math.Pi, Want: 2},
		{Name: "exp", F: math.Exp, P: 0, Q: 1, Want: math.E - 1},
		{Name: "abs-kink", F: math.Abs, P: -1, Q: 2, Want: 2.5},
		{Name: "off-center-kink", F: func(x float64) float64 { return math.Abs(x - 0.3) }, P: 0, Q: 1, Want: 0.045 + 0.245},
		{Name: "reversed", F: func(x float64) float64 { return x }, P: 1, Q: 0, Want: -0.5},
		{Name: "empty", F: func(x float64) float64 { return x }, P: 1, Q: 1, Want: 0},
	}

	var in Integrator
	abstol, reltol, _, _ := in.params()
	for _, test := range tests {
		got, err := in.Integrate(test.F, test.P, test.Q)
		require.NoError(t, err, test.Name)
		// accuracy is only promised up to the integrator's own tolerance
		tol := math.Max(abstol, reltol*math.Abs(test.Want))
		if math.Abs(got-test.Want) > tol {
			t.Errorf("FAIL %v: ∫[%v,%v]=%v, want %v", test.Name, test.P, test.Q, got, test.Want)
		} else {
			t.Logf("     %v: ∫[%v,%v]=%v", test.Name, test.P, test.Q, got)
		}
	}
}

func TestIntegrator_normAndError(t *testing.T) {
	var in Integrator
	one := func(x float64) float64 { return 1 }
	lin := func(x float64) float64 { return x }

	ip, err := in.Inner(lin, lin, 0, 1)
	require.NoError(t, err)
	require.InDelta(t, 1.0/3, ip, 1e-12)

	n, err := in.Norm(lin, 0, 3)
	require.NoError(t, err)
	require.InDelta(t, 3, n, 1e-12)

	e, err := in.Error(lin, one, 0, 1)
	require.NoError(t, err)
	require.InDelta(t, math.Sqrt(1.0/3), e, 1e-12)

	e, err = in.Error(lin, lin, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 0.0, e)
}

// Products of hat functions have kinks at nodes; the adaptive rule must still
// reproduce the exact mass matrix entries.
func TestIntegrator_hatMass(t *testing.T) {
	m, err := NewMesh([]float64{0, 0.3, 1})
	require.NoError(t, err)
	h0, h1 := 0.3, 0.7

	var in Integrator
	hats := HatBasis(m)
	tests := []struct {
		I, J int
		Want float64
	}{
		{I: 1, J: 1, Want: (h0 + h1) / 3},
		{I: 0, J: 1, Want: h0 / 6},
		{I: 1, J: 2, Want: h1 / 6},
		{I: 0, J: 2, Want: 0},
	}
	for _, test := range tests {
		got, err := in.Inner(hats[test.I].Value, hats[test.J].Value, m.Left(), m.Right())
		require.NoError(t, err)
		if math.Abs(got-test.Want) > 1e-8 {
			t.Errorf("FAIL <phi%v,phi%v>=%v, want %v", test.I, test.J, got, test.Want)
		} else {
			t.Logf("     <phi%v,phi%v>=%v", test.I, test.J, got)
		}
	}
}

func TestIntegrator_failures(t *testing.T) {
	var in Integrator
	_, err := in.Integrate(func(x float64) float64 { return 1 / x }, 0, 1)
	require.ErrorIs(t, err, ErrQuadrature, "1/x is infinite at 0 only as a limit, but the rule must not converge")

	_, err = in.Integrate(func(x float64) float64 { return math.NaN() }, 0, 1)
	require.ErrorIs(t, err, ErrQuadrature)

	tight := Integrator{AbsTol: 1e-300, RelTol: 1e-300, Limit: 3}
	_, err = tight.Integrate(math.Abs, -1, 2)
	require.ErrorIs(t, err, ErrQuadrature)
}
