package hfem

import (
	"fmt"
	"io"
	"iter"

	"gonum.org/v1/gonum/floats"
)

// State is a snapshot of one refinement step.  All per-element sequences are
// indexed by element, left to right.
type State struct {
	mesh        *Mesh
	solution    Solution
	dual        Solution
	primalNorms []float64
	dualNorms   []float64
	loadNorm    float64
	err         float64
	loadNorms   []float64
	errors      []float64
}

// Size returns the number of mesh nodes.
func (s State) Size() int { return s.mesh.Len() }

// Elements returns the number of mesh elements.
func (s State) Elements() int { return s.mesh.Elements() }

// Mesh returns the mesh the step was computed on.
func (s State) Mesh() *Mesh { return s.mesh }

// Nodes returns a copy of the mesh node positions.
func (s State) Nodes() []float64 { return s.mesh.Nodes() }

// Solution returns the primal solution.
func (s State) Solution() Solution { return s.solution }

// Dual returns the dual solution.
func (s State) Dual() Solution { return s.dual }

// PrimalNorms returns a copy of the per-element primal energies.
func (s State) PrimalNorms() []float64 { return append([]float64{}, s.primalNorms...) }

// DualNorms returns a copy of the per-element dual energies.
func (s State) DualNorms() []float64 { return append([]float64{}, s.dualNorms...) }

// LoadNorms returns a copy of the per-element load functional norms.
func (s State) LoadNorms() []float64 { return append([]float64{}, s.loadNorms...) }

// Errors returns a copy of the per-element local error estimates.
func (s State) Errors() []float64 { return append([]float64{}, s.errors...) }

// LoadNorm returns the load functional norm over the whole domain.
func (s State) LoadNorm() float64 { return s.loadNorm }

// Error returns the global error estimate.
func (s State) Error() float64 { return s.err }

func (s State) PrimalTotal() float64 { return floats.Sum(s.primalNorms) }
func (s State) DualTotal() float64   { return floats.Sum(s.dualNorms) }

// PrintFunc prints the primal and dual solutions in tab-separated form with
// nsamples+1 evenly spaced samples over the mesh domain (one sample per line)
// in the form:
//
//	[x]	[u(x)]	[q(x)]
//	...
func (s State) PrintFunc(w io.Writer, nsamples int) error {
	a, b := s.mesh.Left(), s.mesh.Right()
	h := (b - a) / float64(nsamples)
	for i := 0; i <= nsamples; i++ {
		x := a + h*float64(i)
		if i == nsamples {
			x = b
		}
		if _, err := fmt.Fprintf(w, "%v\t%v\t%v\n", x, s.solution.Value(x), s.dual.Value(x)); err != nil {
			return err
		}
	}
	return nil
}

// History is the append-only sequence of states of a refinement run, one
// per step.
type History struct {
	states  []State
	outcome Outcome
}

func (h *History) append(s State) { h.states = append(h.states, s) }

func (h *History) Len() int { return len(h.states) }

// Outcome reports how the run that produced h ended.  It is Iterate for a
// run that failed or has not finished.
func (h *History) Outcome() Outcome { return h.outcome }

// At returns the state of step i.
func (h *History) At(i int) State { return h.states[i] }

// Last returns the most recent state.  ok is false if h is empty.
func (h *History) Last() (s State, ok bool) {
	if len(h.states) == 0 {
		return State{}, false
	}
	return h.states[len(h.states)-1], true
}

// All iterates over the steps in order.
func (h *History) All() iter.Seq2[int, State] {
	return func(yield func(int, State) bool) {
		for i, s := range h.states {
			if !yield(i, s) {
				return
			}
		}
	}
}
