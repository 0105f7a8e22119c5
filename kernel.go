package hfem

import (
	"fmt"
	"math"
)

// Valer is a coefficient function of position.
type Valer interface {
	Val(x float64) float64
}

type ConstVal float64

func (p ConstVal) Val(x float64) float64 { return float64(p) }

// ValFunc adapts an ordinary function to Valer.
type ValFunc func(x float64) float64

func (f ValFunc) Val(x float64) float64 { return f(x) }

// LinVals linearly interpolates between the points (X[i], Y[i]).  Values
// outside [X[0], X[len-1]] are held constant at the end values.
type LinVals struct {
	X []float64
	Y []float64
}

func (p *LinVals) Val(x float64) float64 {
	if x <= p.X[0] {
		return p.Y[0]
	}
	for i := 0; i < len(p.X)-1; i++ {
		x1, x2 := p.X[i], p.X[i+1]
		y1, y2 := p.Y[i], p.Y[i+1]
		if x1 <= x && x <= x2 {
			return y1 + (x-x1)/(x2-x1)*(y2-y1)
		}
	}
	return p.Y[len(p.Y)-1]
}

// Poly is a polynomial with coefficients in increasing order of degree, i.e.
// Poly{-2, 2, 1} is x^2+2x-2.
type Poly []float64

func (p Poly) Val(x float64) float64 {
	v := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		v = v*x + p[i]
	}
	return v
}

// Coefficients holds the data of the boundary value problem
//
//	-(M u')' + Sigma u = F  on [a, b]
//	u(a) = 0
//	M u'(b) + Alpha (u(b) - Target) = 0
//
// where [a, b] are the ends of the mesh the problem is solved on.
type Coefficients struct {
	// M is the diffusion coefficient.
	M Valer
	// Sigma is the reaction coefficient.
	Sigma Valer
	// F is the source term.
	F Valer
	// Alpha weights the Robin condition at the right boundary.
	Alpha float64
	// Target is the value u(b) is pulled toward by the Robin condition.
	Target float64
}

// Validate checks that c describes a well-formed problem.  Positivity of M and
// Sigma is not checked here since they are only known pointwise; the solvers
// report non-finite systems instead.
func (c *Coefficients) Validate() error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: nil coefficient set", ErrInvalidCoefficients)
	case c.M == nil || c.Sigma == nil || c.F == nil:
		return fmt.Errorf("%w: m, sigma and f must all be set", ErrInvalidCoefficients)
	case !(c.Alpha > 0) || math.IsInf(c.Alpha, 0):
		return fmt.Errorf("%w: alpha must be finite and positive, got %v", ErrInvalidCoefficients, c.Alpha)
	case math.IsNaN(c.Target) || math.IsInf(c.Target, 0):
		return fmt.Errorf("%w: target must be finite, got %v", ErrInvalidCoefficients, c.Target)
	}
	return nil
}

type KernelParams struct {
	// X is the position the kernel is being evaluated at.
	X float64
	// U is the value of the solution shape function.
	U float64
	// GradU is the derivative of the solution shape function.
	GradU float64
	// W is the value of the weight/test function.
	W float64
	// GradW is the derivative of the weight/test function.
	GradW float64
}

// Kernel describes the weak form of a differential equation on a 1D domain.
type Kernel interface {
	// VolIntU returns the integrand of the volume terms that depend on u
	// (the bilinear form).
	VolIntU(p *KernelParams) float64
	// VolInt returns the integrand of the volume terms that do not depend on
	// u (the load).
	VolInt(p *KernelParams) float64
	// BoundaryIntU returns the boundary terms of the bilinear form at p.X.
	BoundaryIntU(p *KernelParams) float64
	// BoundaryInt returns the boundary terms of the load at p.X.
	BoundaryInt(p *KernelParams) float64
	// IsDirichlet reports whether x carries an essential boundary condition
	// and its value.
	IsDirichlet(x float64) (bool, float64)
}

// PrimalKernel is the weak form for u:
//
//	B(u, w) = ∫ M u'w' + Sigma u w dx + Alpha u(b) w(b)
//	l(w)    = ∫ F w dx + Alpha Target w(b)
type PrimalKernel struct {
	*Coefficients
	// Left is the Dirichlet end of the domain.
	Left float64
}

func (k *PrimalKernel) VolIntU(p *KernelParams) float64 {
	return k.M.Val(p.X)*p.GradW*p.GradU + k.Sigma.Val(p.X)*p.W*p.U
}

func (k *PrimalKernel) VolInt(p *KernelParams) float64 { return k.F.Val(p.X) * p.W }

func (k *PrimalKernel) BoundaryIntU(p *KernelParams) float64 { return k.Alpha * p.W * p.U }

func (k *PrimalKernel) BoundaryInt(p *KernelParams) float64 { return k.Alpha * k.Target * p.W }

func (k *PrimalKernel) IsDirichlet(x float64) (bool, float64) { return x == k.Left, 0 }

// DualKernel is the weak form for the complementary flux q = M u':
//
//	B*(q, w) = ∫ q'w'/Sigma + q w/M dx + q(b) w(b)/Alpha
//	l*(w)    = -∫ F w'/Sigma dx + Target w(b)
//
// All of its boundary conditions are natural.
type DualKernel struct {
	*Coefficients
}

func (k *DualKernel) VolIntU(p *KernelParams) float64 {
	return p.GradW*p.GradU/k.Sigma.Val(p.X) + p.W*p.U/k.M.Val(p.X)
}

func (k *DualKernel) VolInt(p *KernelParams) float64 {
	return -k.F.Val(p.X) * p.GradW / k.Sigma.Val(p.X)
}

func (k *DualKernel) BoundaryIntU(p *KernelParams) float64 { return p.W * p.U / k.Alpha }

func (k *DualKernel) BoundaryInt(p *KernelParams) float64 { return k.Target * p.W }

func (k *DualKernel) IsDirichlet(x float64) (bool, float64) { return false, 0 }
