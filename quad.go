package hfem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	defaultTol    = 1.49e-8
	defaultLimit  = 50
	defaultPoints = 7
)

// Func is a scalar function of one variable.
type Func func(x float64) float64

// Integrator computes integrals with globally adaptive Gauss-Legendre
// quadrature: the panel with the largest error estimate is bisected until the
// summed estimate satisfies the tolerance.  Kinks in the integrand (e.g.
// products of basis functions) are resolved by the bisection rather than by
// raising the rule order.  The zero value uses default tolerances.
type Integrator struct {
	// AbsTol and RelTol bound the estimated absolute error; the integral is
	// accepted once err <= max(AbsTol, RelTol*|integral|).
	AbsTol, RelTol float64
	// Limit is the maximum number of panels before giving up.
	Limit int
	// Points is the number of Gauss-Legendre points per panel.
	Points int
}

type panel struct {
	lo, hi      float64
	left, right float64
	err         float64
}

func (in Integrator) params() (abstol, reltol float64, limit, n int) {
	abstol, reltol, limit, n = in.AbsTol, in.RelTol, in.Limit, in.Points
	if abstol <= 0 {
		abstol = defaultTol
	}
	if reltol <= 0 {
		reltol = defaultTol
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if n <= 0 {
		n = defaultPoints
	}
	return abstol, reltol, limit, n
}

// Integrate returns the integral of f over [p, q].  An error wrapping
// ErrQuadrature is returned if f produces a non-finite value or the
// tolerance is not met within Limit panels.
func (in Integrator) Integrate(f Func, p, q float64) (float64, error) {
	if p == q {
		return 0, nil
	} else if p > q {
		v, err := in.Integrate(f, q, p)
		return -v, err
	}
	abstol, reltol, limit, n := in.params()

	xs := make([]float64, n)
	weights := make([]float64, n)
	quad.Legendre{}.FixedLocations(xs, weights, -1, 1)

	var bad error
	rule := func(lo, hi float64) float64 {
		mid, half := (lo+hi)/2, (hi-lo)/2
		tot := 0.0
		for i, ref := range xs {
			x := mid + half*ref
			v := f(x)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				if bad == nil {
					bad = fmt.Errorf("%w: integrand is %v at x=%v", ErrQuadrature, v, x)
				}
				continue
			}
			tot += weights[i] * v
		}
		return half * tot
	}
	newPanel := func(lo, hi, whole float64) panel {
		mid := (lo + hi) / 2
		p := panel{lo: lo, hi: hi, left: rule(lo, mid), right: rule(mid, hi)}
		p.err = math.Abs(p.left + p.right - whole)
		return p
	}

	panels := []panel{newPanel(p, q, rule(p, q))}
	for {
		if bad != nil {
			return 0, bad
		}
		total, errsum, worst := 0.0, 0.0, 0
		for i, pan := range panels {
			total += pan.left + pan.right
			errsum += pan.err
			if pan.err > panels[worst].err {
				worst = i
			}
		}
		if errsum <= math.Max(abstol, reltol*math.Abs(total)) {
			return total, nil
		}
		if len(panels) >= limit {
			return total, fmt.Errorf("%w: error estimate %v over [%v,%v] after %v panels", ErrQuadrature, errsum, p, q, len(panels))
		}

		w := panels[worst]
		mid := (w.lo + w.hi) / 2
		panels[worst] = newPanel(w.lo, mid, w.left)
		panels = append(panels, newPanel(mid, w.hi, w.right))
	}
}

// Inner returns the L2 inner product of u and v over [p, q].
func (in Integrator) Inner(u, v Func, p, q float64) (float64, error) {
	return in.Integrate(func(x float64) float64 { return u(x) * v(x) }, p, q)
}

// Norm returns the L2 norm of u over [p, q].
func (in Integrator) Norm(u Func, p, q float64) (float64, error) {
	v, err := in.Inner(u, u, p, q)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// Error returns the L2 norm of f-u over [p, q].
func (in Integrator) Error(f, u Func, p, q float64) (float64, error) {
	return in.Norm(func(x float64) float64 { return f(x) - u(x) }, p, q)
}
