package hfem

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/rwcarlsen/hfem/sparse"
)

// DefaultMaxNodes is the node count at which refinement stops.
const DefaultMaxNodes = 100

// minLoadNorm is the smallest global load functional norm the error
// estimates are normalized by.
const minLoadNorm = 1e-300

// Outcome is the state of a refinement run.
type Outcome int

const (
	// Iterate means the run has not finished (or stopped on an error).
	Iterate Outcome = iota
	// Converged means the last step did not refine any element.
	Converged
	// Capped means the run stopped at the node or step limit.
	Capped
)

func (o Outcome) String() string {
	switch o {
	case Iterate:
		return "iterate"
	case Converged:
		return "converged"
	case Capped:
		return "capped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Driver runs goal-oriented adaptive h-refinement: each step solves the
// primal and dual problems on the current mesh, computes per-element energy
// balance residuals and bisects the elements selected by Policy.
type Driver struct {
	Primal Solver
	Dual   Solver

	PrimalNorm NormEvaluator
	DualNorm   NormEvaluator
	LoadNorm   NormEvaluator

	Policy RefinementPolicy
	// MaxNodes stops refinement once the current mesh has at least this many
	// nodes or the next one would have more.  Zero means DefaultMaxNodes.
	MaxNodes int
	// MaxSteps limits the number of steps of Run when positive.
	MaxSteps int
	// Parallel runs the primal and dual solves concurrently.
	Parallel bool

	Logger *zap.Logger
}

// NewDriver returns a driver with Galerkin primal and dual solvers using a
// dense LU solve, energy norms on the default Integrator and uniform
// bisection.
func NewDriver() *Driver {
	return &Driver{
		Primal:     PrimalSolver(sparse.DenseLU{}),
		Dual:       DualSolver(sparse.DenseLU{}),
		PrimalNorm: PrimalEnergy{},
		DualNorm:   DualEnergy{},
		LoadNorm:   LoadNorm{},
		Policy:     UniformBisection{},
		MaxNodes:   DefaultMaxNodes,
		Logger:     zap.NewNop(),
	}
}

func (d *Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Driver) solve(ctx context.Context, c *Coefficients, m *Mesh) (u, q Solution, err error) {
	primal := func(ctx context.Context) (err error) {
		if u, err = d.Primal.Solve(ctx, c, m); err != nil {
			return fmt.Errorf("primal: %w", err)
		}
		return nil
	}
	dual := func(ctx context.Context) (err error) {
		if q, err = d.Dual.Solve(ctx, c, m); err != nil {
			return fmt.Errorf("dual: %w", err)
		}
		return nil
	}

	if !d.Parallel {
		if err := primal(ctx); err != nil {
			return nil, nil, err
		}
		if err := dual(ctx); err != nil {
			return nil, nil, err
		}
		return u, q, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return primal(gctx) })
	g.Go(func() error { return dual(gctx) })
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return u, q, nil
}

// Step performs one refinement step on m: it appends the step's State to
// hist and returns the candidate mesh for the next step.
func (d *Driver) Step(ctx context.Context, c *Coefficients, m *Mesh, hist *History) (*Mesh, error) {
	u, q, err := d.solve(ctx, c, m)
	if err != nil {
		return nil, err
	}

	a, b := m.Left(), m.Right()
	fnFull, err := d.LoadNorm.Evaluate(c, nil, a, b, b)
	if err != nil {
		return nil, fmt.Errorf("load norm: %w", err)
	}
	if math.IsNaN(fnFull) || fnFull < minLoadNorm {
		return nil, fmt.Errorf("%w: load norm over [%v,%v] is %v", ErrDegenerateNormalization, a, b, fnFull)
	}

	policy := d.Policy
	if policy == nil {
		policy = UniformBisection{}
	}

	size := m.Elements()
	s := State{
		mesh:        m,
		solution:    u,
		dual:        q,
		primalNorms: make([]float64, size),
		dualNorms:   make([]float64, size),
		loadNorm:    fnFull,
		loadNorms:   make([]float64, size),
		errors:      make([]float64, size),
	}
	refine := make([]bool, size)
	for i := 0; i < size; i++ {
		x1, x2 := m.Element(i)
		norm, err := d.PrimalNorm.Evaluate(c, u, x1, x2, b)
		if err != nil {
			return nil, fmt.Errorf("element %v primal norm: %w", i, err)
		}
		dual, err := d.DualNorm.Evaluate(c, q, x1, x2, b)
		if err != nil {
			return nil, fmt.Errorf("element %v dual norm: %w", i, err)
		}
		fn, err := d.LoadNorm.Evaluate(c, nil, x1, x2, b)
		if err != nil {
			return nil, fmt.Errorf("element %v load norm: %w", i, err)
		}
		s.primalNorms[i] = norm
		s.dualNorms[i] = dual
		s.loadNorms[i] = fn
		s.errors[i] = math.Sqrt(float64(size) * math.Abs(fn-(norm+dual)) / fnFull)
		refine[i] = policy.Refine(i, s.errors[i])
	}
	s.err = math.Sqrt(math.Abs(fnFull-(floats.Sum(s.primalNorms)+floats.Sum(s.dualNorms))) / fnFull)
	hist.append(s)

	d.logger().Debug("refinement step",
		zap.Int("step", hist.Len()-1),
		zap.Int("nodes", m.Len()),
		zap.Float64("load_norm", fnFull),
		zap.Float64("load_norm_sum", floats.Sum(s.loadNorms)),
		zap.Float64("error", s.err),
	)
	return m.Bisect(func(i int) bool { return refine[i] }), nil
}

// outcome decides whether refinement continues from cur to next after steps
// steps.
func (d *Driver) outcome(cur, next *Mesh, steps int) Outcome {
	maxNodes := d.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	switch {
	case next.Len() <= cur.Len():
		return Converged
	case cur.Len() >= maxNodes || next.Len() > maxNodes:
		return Capped
	case d.MaxSteps > 0 && steps >= d.MaxSteps:
		return Capped
	}
	return Iterate
}

// Run refines m until a step bisects no element or a limit is reached and
// returns the history of all steps.  On error the history of the steps that
// completed is returned along with a *RunError.
func (d *Driver) Run(ctx context.Context, c *Coefficients, m *Mesh) (*History, error) {
	hist := &History{}
	if m == nil {
		return hist, &RunError{Err: fmt.Errorf("%w: nil mesh", ErrInvalidMesh)}
	}
	if err := c.Validate(); err != nil {
		return hist, &RunError{Nodes: m.Nodes(), Err: err}
	}

	log := d.logger()
	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			return hist, &RunError{Iteration: step, Nodes: m.Nodes(), Err: err}
		}
		next, err := d.Step(ctx, c, m, hist)
		if err != nil {
			return hist, &RunError{Iteration: step, Nodes: m.Nodes(), Err: err}
		}
		if hist.outcome = d.outcome(m, next, hist.Len()); hist.outcome != Iterate {
			log.Info("refinement finished",
				zap.Stringer("outcome", hist.outcome),
				zap.Int("steps", hist.Len()),
				zap.Int("nodes", m.Len()),
			)
			return hist, nil
		}
		m = next
	}
}
