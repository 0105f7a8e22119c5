package hfem

import "fmt"

type BasisKind int

const (
	// Hat is a node-centered piecewise linear shape function that is one at
	// its node and zero at the neighboring nodes.
	Hat BasisKind = iota
	// Bubble is an element-centered piecewise linear shape function that is
	// one at the element midpoint and zero at the element's nodes.
	Bubble
)

func (k BasisKind) String() string {
	switch k {
	case Hat:
		return "hat"
	case Bubble:
		return "bubble"
	}
	return fmt.Sprintf("BasisKind(%d)", int(k))
}

// Basis is a local shape function bound to a mesh.  For Hat, Index is a node
// index; for Bubble it is an element index.  The function rises linearly on
// (left, peak], falls linearly on (peak, right) and is zero elsewhere, so the
// peak point itself always evaluates on the rising branch.
type Basis struct {
	Kind  BasisKind
	Index int
	mesh  *Mesh
}

// NewHat returns the hat function of node i.  The first and last nodes get a
// synthetic outer neighbor mirrored at the spacing of the adjacent element.
// It panics if i is not a node index of m.
func NewHat(m *Mesh, i int) Basis {
	if i < 0 || i >= m.Len() {
		panic(fmt.Sprintf("hat index %v out of range [0,%v)", i, m.Len()))
	}
	return Basis{Kind: Hat, Index: i, mesh: m}
}

// NewBubble returns the bubble function of element i.  It panics if i is not
// an element index of m.
func NewBubble(m *Mesh, i int) Basis {
	if i < 0 || i >= m.Elements() {
		panic(fmt.Sprintf("bubble index %v out of range [0,%v)", i, m.Elements()))
	}
	return Basis{Kind: Bubble, Index: i, mesh: m}
}

// HatBasis returns one hat function per node of m.
func HatBasis(m *Mesh) []Basis {
	basis := make([]Basis, m.Len())
	for i := range basis {
		basis[i] = NewHat(m, i)
	}
	return basis
}

// BubbleBasis returns one bubble function per element of m.
func BubbleBasis(m *Mesh) []Basis {
	basis := make([]Basis, m.Elements())
	for i := range basis {
		basis[i] = NewBubble(m, i)
	}
	return basis
}

// points returns the left end, peak and right end of the support.
func (b Basis) points() (left, peak, right float64) {
	m := b.mesh
	switch b.Kind {
	case Hat:
		i, last := b.Index, m.Len()-1
		peak = m.Node(i)
		if i > 0 {
			left = m.Node(i - 1)
		} else {
			left = m.Node(0) - (m.Node(1) - m.Node(0))
		}
		if i < last {
			right = m.Node(i + 1)
		} else {
			right = m.Node(last) + (m.Node(last) - m.Node(last-1))
		}
	case Bubble:
		left, right = m.Element(b.Index)
		peak = (left + right) / 2
	default:
		panic("unknown basis kind " + b.Kind.String())
	}
	return left, peak, right
}

// Support returns the interval outside of which the function is zero.
func (b Basis) Support() (left, right float64) {
	left, _, right = b.points()
	return left, right
}

// Peak returns the position where the function equals one.
func (b Basis) Peak() float64 {
	_, peak, _ := b.points()
	return peak
}

func (b Basis) Value(x float64) float64 {
	left, peak, right := b.points()
	if left < x && x <= peak {
		return (x - left) / (peak - left)
	} else if peak < x && x < right {
		return (right - x) / (right - peak)
	}
	return 0
}

func (b Basis) Deriv(x float64) float64 {
	left, peak, right := b.points()
	if left < x && x <= peak {
		return 1 / (peak - left)
	} else if peak < x && x < right {
		return -1 / (right - peak)
	}
	return 0
}
