package hfem

import "fmt"

// NormEvaluator computes the contribution of the element [x1, x2] to an
// energy-type quantity of a solution.  b is the right end of the domain;
// boundary terms are added when x2 == b.  The result is nonnegative.
type NormEvaluator interface {
	Evaluate(c *Coefficients, u Solution, x1, x2, b float64) (float64, error)
}

// EvaluatorFunc adapts an ordinary function to NormEvaluator.
type EvaluatorFunc func(c *Coefficients, u Solution, x1, x2, b float64) (float64, error)

func (f EvaluatorFunc) Evaluate(c *Coefficients, u Solution, x1, x2, b float64) (float64, error) {
	return f(c, u, x1, x2, b)
}

func derivable(u Solution) (Derivable, error) {
	d, ok := u.(Derivable)
	if !ok {
		return nil, fmt.Errorf("solution of type %T has no derivative", u)
	}
	return d, nil
}

// PrimalEnergy evaluates the primal bilinear form B(u, u) on an element:
//
//	∫ M u'^2 + Sigma u^2 dx  (+ Alpha u(b)^2 at the right boundary)
type PrimalEnergy struct {
	Integrator
}

func (n PrimalEnergy) Evaluate(c *Coefficients, u Solution, x1, x2, b float64) (float64, error) {
	d, err := derivable(u)
	if err != nil {
		return 0, err
	}
	v, err := n.Integrate(func(x float64) float64 {
		du, uu := d.Deriv(x), d.Value(x)
		return c.M.Val(x)*du*du + c.Sigma.Val(x)*uu*uu
	}, x1, x2)
	if err != nil {
		return 0, err
	}
	if x2 == b {
		ub := d.Value(b)
		v += c.Alpha * ub * ub
	}
	return v, nil
}

// DualEnergy evaluates the complementary bilinear form B*(q, q) on an
// element:
//
//	∫ q'^2/Sigma + q^2/M dx  (+ q(b)^2/Alpha at the right boundary)
type DualEnergy struct {
	Integrator
}

func (n DualEnergy) Evaluate(c *Coefficients, q Solution, x1, x2, b float64) (float64, error) {
	d, err := derivable(q)
	if err != nil {
		return 0, err
	}
	v, err := n.Integrate(func(x float64) float64 {
		dq, qq := d.Deriv(x), d.Value(x)
		return dq*dq/c.Sigma.Val(x) + qq*qq/c.M.Val(x)
	}, x1, x2)
	if err != nil {
		return 0, err
	}
	if x2 == b {
		qb := d.Value(b)
		v += qb * qb / c.Alpha
	}
	return v, nil
}

// LoadNorm evaluates the load functional norm on an element.  The solution
// argument is ignored and may be nil.
//
//	∫ F^2/Sigma dx  (+ Alpha Target^2 at the right boundary)
type LoadNorm struct {
	Integrator
}

func (n LoadNorm) Evaluate(c *Coefficients, _ Solution, x1, x2, b float64) (float64, error) {
	v, err := n.Integrate(func(x float64) float64 {
		f := c.F.Val(x)
		return f * f / c.Sigma.Val(x)
	}, x1, x2)
	if err != nil {
		return 0, err
	}
	if x2 == b {
		v += c.Alpha * c.Target * c.Target
	}
	return v, nil
}
