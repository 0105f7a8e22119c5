package hfem

import "fmt"

// RefinementPolicy decides which elements are bisected for the next mesh.
type RefinementPolicy interface {
	// Refine reports whether element elem with local error estimate localErr
	// is bisected.
	Refine(elem int, localErr float64) bool
}

// UniformBisection bisects every element on every step.
type UniformBisection struct{}

func (UniformBisection) Refine(int, float64) bool { return true }

func (UniformBisection) String() string { return "uniform" }

// ErrorGated bisects the elements whose local error estimate exceeds
// Threshold.
type ErrorGated struct {
	Threshold float64
}

func (p ErrorGated) Refine(_ int, localErr float64) bool { return localErr > p.Threshold }

func (p ErrorGated) String() string { return fmt.Sprintf("gated(%v)", p.Threshold) }
