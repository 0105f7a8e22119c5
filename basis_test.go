package hfem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var basisMeshes = [][]float64{
	{0, 1},
	{0, 0.5, 1},
	{0, 0.1, 0.4, 0.45, 1},
	{-2, -1.5, 0, 3, 3.25},
}

func TestHat_nodes(t *testing.T) {
	for i, xs := range basisMeshes {
		m, err := NewMesh(xs)
		require.NoError(t, err)
		for _, b := range HatBasis(m) {
			for n, x := range xs {
				want := 0.0
				if n == b.Index {
					want = 1.0
				}
				if got := b.Value(x); got != want {
					t.Errorf("FAIL mesh %v (xs=%v) hat %v: f(%v)=%v, want %v", i+1, xs, b.Index, x, got, want)
				} else {
					t.Logf("     mesh %v (xs=%v) hat %v: f(%v)=%v", i+1, xs, b.Index, x, got)
				}
			}
		}
	}
}

func TestHat_outsideSupport(t *testing.T) {
	m, err := NewMesh([]float64{0, 1, 3, 4})
	require.NoError(t, err)
	tests := []struct {
		Index       int
		Left, Right float64
	}{
		{Index: 0, Left: -1, Right: 1},
		{Index: 1, Left: 0, Right: 3},
		{Index: 2, Left: 1, Right: 4},
		{Index: 3, Left: 3, Right: 5},
	}
	for _, test := range tests {
		b := NewHat(m, test.Index)
		left, right := b.Support()
		if left != test.Left || right != test.Right {
			t.Errorf("FAIL hat %v: support [%v,%v], want [%v,%v]", test.Index, left, right, test.Left, test.Right)
		}
		for _, x := range []float64{test.Left - 10, test.Left - 1e-9, test.Left, test.Right, test.Right + 1e-9, test.Right + 10} {
			if v, d := b.Value(x), b.Deriv(x); v != 0 || d != 0 {
				t.Errorf("FAIL hat %v: f(%v)=%v, f'(%v)=%v, want 0", test.Index, x, v, x, d)
			}
		}
	}
}

func TestHat_segments(t *testing.T) {
	m, err := NewMesh([]float64{0, 1, 3, 4})
	require.NoError(t, err)
	tests := []struct {
		Index     int
		X         float64
		Val, Grad float64
	}{
		{Index: 1, X: 0.5, Val: 0.5, Grad: 1},
		{Index: 1, X: 1, Val: 1, Grad: 1}, // node itself is on the rising branch
		{Index: 1, X: 2, Val: 0.5, Grad: -0.5},
		{Index: 2, X: 2, Val: 0.5, Grad: 0.5},
		{Index: 2, X: 3.5, Val: 0.5, Grad: -1},
		{Index: 0, X: 0, Val: 1, Grad: 1}, // mirrored outer neighbor at -1
		{Index: 0, X: -0.5, Val: 0.5, Grad: 1},
		{Index: 3, X: 4, Val: 1, Grad: 1},
		{Index: 3, X: 4.5, Val: 0.5, Grad: -1}, // mirrored outer neighbor at 5
	}
	for i, test := range tests {
		b := NewHat(m, test.Index)
		v, d := b.Value(test.X), b.Deriv(test.X)
		if math.Abs(v-test.Val) > tol || math.Abs(d-test.Grad) > tol {
			t.Errorf("FAIL case %v hat %v: f(%v)=%v f'=%v, want %v and %v", i+1, test.Index, test.X, v, d, test.Val, test.Grad)
		} else {
			t.Logf("     case %v hat %v: f(%v)=%v f'=%v", i+1, test.Index, test.X, v, d)
		}
	}
}

func TestBubble(t *testing.T) {
	for i, xs := range basisMeshes {
		m, err := NewMesh(xs)
		require.NoError(t, err)
		for _, b := range BubbleBasis(m) {
			left, right := m.Element(b.Index)
			mid := (left + right) / 2
			for _, x := range xs {
				if v := b.Value(x); v != 0 {
					t.Errorf("FAIL mesh %v bubble %v: f(%v)=%v, want 0", i+1, b.Index, x, v)
				}
			}
			if v := b.Value(mid); math.Abs(v-1) > tol {
				t.Errorf("FAIL mesh %v bubble %v: f(%v)=%v, want 1", i+1, b.Index, mid, v)
			}
			quarter := left + (right-left)/4
			if v := b.Value(quarter); math.Abs(v-0.5) > tol {
				t.Errorf("FAIL mesh %v bubble %v: f(%v)=%v, want 0.5", i+1, b.Index, quarter, v)
			}
			if d := b.Deriv(mid); math.Abs(d-2/(right-left)) > tol {
				t.Errorf("FAIL mesh %v bubble %v: f'(%v)=%v, want rising slope %v", i+1, b.Index, mid, d, 2/(right-left))
			}
		}
	}
}

// The integral of the derivative over any part of the support must match
// the change in value.
func TestBasis_derivIntegral(t *testing.T) {
	m, err := NewMesh([]float64{0, 0.2, 0.7, 1})
	require.NoError(t, err)

	var in Integrator
	funcs := append(HatBasis(m), BubbleBasis(m)...)
	for _, b := range funcs {
		left, right := b.Support()
		peak := b.Peak()
		for _, span := range [][2]float64{{left, peak}, {peak, right}, {left, right}, {left, (peak + right) / 2}} {
			got, err := in.Integrate(b.Deriv, span[0], span[1])
			require.NoError(t, err)
			want := b.Value(span[1]) - b.Value(span[0])
			// Value is 0 at a support end but its one-sided limit is not
			if span[0] == left {
				want = b.Value(span[1])
			}
			if math.Abs(got-want) > 1e-7 {
				t.Errorf("FAIL %v %v: ∫f' over [%v,%v]=%v, want %v", b.Kind, b.Index, span[0], span[1], got, want)
			} else {
				t.Logf("     %v %v: ∫f' over [%v,%v]=%v", b.Kind, b.Index, span[0], span[1], got)
			}
		}
	}
}

func TestBasis_indexPanics(t *testing.T) {
	m, err := NewMesh([]float64{0, 1, 2})
	require.NoError(t, err)
	require.Panics(t, func() { NewHat(m, -1) })
	require.Panics(t, func() { NewHat(m, 3) })
	require.Panics(t, func() { NewBubble(m, 2) })
	require.NotPanics(t, func() { NewBubble(m, 1) })
}
