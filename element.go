package hfem

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/integrate/quad"
)

// Element1D is a linear finite element spanning one mesh element.  Its two
// local shape functions are the hat functions of the element's nodes
// restricted to the element.
type Element1D struct {
	// Index is the element's position in its mesh.
	Index int
	// Shape holds the hat functions of the left and right node.
	Shape [2]Basis
	// Points is the number of Gauss-Legendre points used for volume
	// integrals.
	Points int
	// onRight is true if the element touches the right end of the domain,
	// where boundary terms are applied.
	onRight bool
}

// NewElement1D returns the linear element i of m.
func NewElement1D(m *Mesh, i int) *Element1D {
	return &Element1D{
		Index:   i,
		Shape:   [2]Basis{NewHat(m, i), NewHat(m, i+1)},
		Points:  3,
		onRight: i == m.Elements()-1,
	}
}

func (e *Element1D) Left() float64  { return e.Shape[0].Peak() }
func (e *Element1D) Right() float64 { return e.Shape[1].Peak() }

// params samples the weight function wNode and, if uNode is not negative,
// the solution shape function uNode at x.
func (e *Element1D) params(x float64, wNode, uNode int) *KernelParams {
	w := e.Shape[wNode]
	p := &KernelParams{X: x, W: w.Value(x), GradW: w.Deriv(x)}
	if uNode >= 0 {
		u := e.Shape[uNode]
		p.U = u.Value(x)
		p.GradU = u.Deriv(x)
	}
	return p
}

// IntegrateStiffness returns the contribution of the element to the
// bilinear form entry for local weight node wNode and solution node uNode.
func (e *Element1D) IntegrateStiffness(k Kernel, wNode, uNode int) float64 {
	fn := func(x float64) float64 { return k.VolIntU(e.params(x, wNode, uNode)) }
	v := quad.Fixed(fn, e.Left(), e.Right(), e.Points, quad.Legendre{}, 0)
	if e.onRight {
		v += k.BoundaryIntU(e.params(e.Right(), wNode, uNode))
	}
	return v
}

// IntegrateForce returns the contribution of the element to the load entry
// for local weight node wNode.
func (e *Element1D) IntegrateForce(k Kernel, wNode int) float64 {
	fn := func(x float64) float64 { return k.VolInt(e.params(x, wNode, -1)) }
	v := quad.Fixed(fn, e.Left(), e.Right(), e.Points, quad.Legendre{}, 0)
	if e.onRight {
		v += k.BoundaryInt(e.params(e.Right(), wNode, -1))
	}
	return v
}

// PrintShapeFuncs prints the element's shape functions and their derivatives
// in tab-separated form with nsamples evenly spaced over the element's domain
// (one sample per line) in the form:
//
//	[x]	[left-shape(x)]	[left-shapederiv(x)]	[right-shape(x)]	[right-shapederiv(x)]
//	...
func (e *Element1D) PrintShapeFuncs(w io.Writer, nsamples int) {
	xrange := e.Right() - e.Left()
	for i := -1 * nsamples / 10; i < nsamples+2*nsamples/10; i++ {
		x := e.Left() + xrange*float64(i)/float64(nsamples)
		fmt.Fprintf(w, "%v", x)
		for _, n := range e.Shape {
			if x < e.Left() || x > e.Right() {
				fmt.Fprintf(w, "\t0\t0")
			} else {
				fmt.Fprintf(w, "\t%v\t%v", n.Value(x), n.Deriv(x))
			}
		}
		fmt.Fprintf(w, "\n")
	}
}
