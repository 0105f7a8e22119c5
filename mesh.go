package hfem

import (
	"fmt"
	"math"
	"sort"
)

// Mesh is an ordered, strictly increasing set of node positions spanning the
// closed domain [Left(), Right()].  Consecutive nodes bound the mesh's
// elements.  A Mesh is never modified after construction; refinement
// produces a new one.
type Mesh struct {
	nodes []float64
}

// NewMesh creates a mesh from a copy of the given node positions.
func NewMesh(nodes []float64) (*Mesh, error) {
	if len(nodes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 nodes, got %v", ErrInvalidMesh, len(nodes))
	}
	for i, x := range nodes {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: node %v is %v", ErrInvalidMesh, i, x)
		}
		if i > 0 && x <= nodes[i-1] {
			return nil, fmt.Errorf("%w: node %v (x=%v) does not follow node %v (x=%v)", ErrInvalidMesh, i, x, i-1, nodes[i-1])
		}
	}
	return &Mesh{nodes: append([]float64{}, nodes...)}, nil
}

// UniformMesh creates a mesh of n evenly spaced nodes from a to b inclusive.
func UniformMesh(a, b float64, n int) (*Mesh, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 nodes, got %v", ErrInvalidMesh, n)
	}
	xs := make([]float64, n)
	h := (b - a) / float64(n-1)
	for i := range xs {
		xs[i] = a + h*float64(i)
	}
	xs[n-1] = b
	return NewMesh(xs)
}

// Len returns the number of nodes.
func (m *Mesh) Len() int { return len(m.nodes) }

// Elements returns the number of elements, i.e. Len()-1.
func (m *Mesh) Elements() int { return len(m.nodes) - 1 }

func (m *Mesh) Node(i int) float64 { return m.nodes[i] }

// Nodes returns a copy of the node positions.
func (m *Mesh) Nodes() []float64 { return append([]float64{}, m.nodes...) }

// Element returns the bounds of element i.
func (m *Mesh) Element(i int) (left, right float64) { return m.nodes[i], m.nodes[i+1] }

func (m *Mesh) Left() float64  { return m.nodes[0] }
func (m *Mesh) Right() float64 { return m.nodes[len(m.nodes)-1] }

// Locate returns the index of the element containing x.  Nodes belong to the
// element on their left (except Left() which belongs to element 0).  ok is
// false if x is outside the mesh.
func (m *Mesh) Locate(x float64) (elem int, ok bool) {
	if x < m.Left() || x > m.Right() {
		return 0, false
	}
	i := sort.SearchFloat64s(m.nodes, x)
	if i == 0 {
		return 0, true
	}
	return i - 1, true
}

// Bisect returns a new mesh with the midpoint of every element for which
// refine returns true inserted between the element's nodes.  Node order is
// preserved.  Elements too narrow to hold a distinct float64 midpoint are
// left whole.
func (m *Mesh) Bisect(refine func(elem int) bool) *Mesh {
	xs := make([]float64, 0, 2*len(m.nodes)-1)
	for i := 0; i < m.Elements(); i++ {
		left, right := m.Element(i)
		xs = append(xs, left)
		if !refine(i) {
			continue
		}
		if mid := left + (right-left)/2; left < mid && mid < right {
			xs = append(xs, mid)
		}
	}
	xs = append(xs, m.Right())
	return &Mesh{nodes: xs}
}

func (m *Mesh) String() string { return fmt.Sprint(m.nodes) }
