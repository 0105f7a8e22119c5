// Command hadapt runs goal-oriented adaptive h-refinement on a 1D boundary
// value problem described by a YAML file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/mat"

	"github.com/rwcarlsen/hfem"
	"github.com/rwcarlsen/hfem/internal/config"
	"github.com/rwcarlsen/hfem/internal/report"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger *zap.Logger
	// newLogger builds the logger from the production config.
	newLogger = func(cfg zap.Config) (*zap.Logger, error) { return cfg.Build() }
)

// run flags
var (
	nodes     int
	solver    string
	policy    string
	threshold float64
	maxNodes  int
	maxSteps  int
	parallel  bool
	samples   int
	elements  bool
	watch     bool
)

var rootCmd = &cobra.Command{
	Use:   "hadapt",
	Short: "Adaptive h-refinement for -(m u')' + sigma u = f",
	Long: `hadapt solves -(m u')' + sigma u = f on [a,b] with u(a) = 0 and
m u'(b) + alpha (u(b) - target) = 0, estimating the error of each element
from the energies of the primal and complementary dual solutions, and
bisects elements until the node cap is reached or no element is refined.

Problems are read from a YAML file (see --config); without one the model
problem -u'' + u = x^2 + 2x - 2 on [0,1] with target 3 is solved.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logCfg := zap.NewProductionConfig()
		if verbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = newLogger(logCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Refine the mesh and print the history table",
	RunE:  runRefinement,
}

var shapesCmd = &cobra.Command{
	Use:   "shapes [element]",
	Short: "Print the shape functions of an element of the initial mesh",
	Args:  cobra.MaximumNArgs(1),
	RunE:  printShapes,
}

var stiffnessCmd = &cobra.Command{
	Use:   "stiffness",
	Short: "Print the assembled primal and dual stiffness matrices of the initial mesh",
	RunE:  printStiffness,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging of every refinement step")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hadapt.yaml", "Problem file (defaults are used if it does not exist)")
	rootCmd.PersistentFlags().IntVar(&nodes, "nodes", 3, "Number of nodes of the uniform initial mesh")

	runCmd.Flags().StringVar(&solver, "solver", "lu", "Linear solver: lu, cholesky, cg or gauss-seidel")
	runCmd.Flags().StringVar(&policy, "policy", "uniform", "Refinement policy: uniform or gated")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.2, "Local error above which the gated policy bisects an element")
	runCmd.Flags().IntVar(&maxNodes, "max-nodes", hfem.DefaultMaxNodes, "Node count at which refinement stops")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "Maximum number of refinement steps (0 for no limit)")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "Solve the primal and dual problems concurrently")
	runCmd.Flags().IntVar(&samples, "samples", 0, "Print this many samples of u and q on the final mesh")
	runCmd.Flags().BoolVar(&elements, "elements", false, "Print per-element estimates of the final step")
	runCmd.Flags().BoolVar(&watch, "watch", false, "Rerun whenever the problem file changes")

	rootCmd.AddCommand(runCmd, shapesCmd, stiffnessCmd)
}

// loadConfig reads the problem file and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return applyFlags(cmd, cfg)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("nodes") {
		cfg.Domain.Nodes = nodes
		cfg.Domain.Points = nil
	}
	if flags.Changed("solver") {
		cfg.Solver.Linear = solver
	}
	if flags.Changed("policy") {
		cfg.Refinement.Policy = policy
	}
	if flags.Changed("threshold") {
		cfg.Refinement.Threshold = threshold
	}
	if flags.Changed("max-nodes") {
		cfg.Refinement.MaxNodes = maxNodes
	}
	if flags.Changed("max-steps") {
		cfg.Refinement.MaxSteps = maxSteps
	}
	if flags.Changed("parallel") {
		cfg.Solver.Parallel = parallel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func runRefinement(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if err := refine(ctx, out, cfg); err != nil {
		if !watch {
			return err
		}
		logger.Error("run failed", zap.Error(err))
	}
	if !watch {
		return nil
	}

	logger.Info("watching problem file", zap.String("path", configPath))
	err = config.Watch(ctx, configPath, func(cfg *config.Config, err error) {
		if err == nil {
			cfg, err = applyFlags(cmd, cfg)
		}
		if err == nil {
			err = refine(ctx, out, cfg)
		}
		if err != nil {
			logger.Error("rerun failed", zap.Error(err))
		}
	})
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil
	}
	return err
}

// refine runs one refinement of cfg and writes its report to out.
func refine(ctx context.Context, out io.Writer, cfg *config.Config) error {
	m, err := cfg.Mesh()
	if err != nil {
		return err
	}
	c, err := cfg.Coeffs()
	if err != nil {
		return err
	}
	log := logger.With(zap.String("run_id", uuid.NewString()))
	d, err := cfg.Driver(log)
	if err != nil {
		return err
	}

	log.Debug("starting refinement",
		zap.Stringer("mesh", m),
		zap.String("policy", cfg.Refinement.Policy),
		zap.String("solver", cfg.Solver.Linear),
		zap.Bool("parallel", cfg.Solver.Parallel),
	)
	hist, runErr := d.Run(ctx, c, m)

	if err := report.WriteTable(out, hist); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return writeFinal(out, hist)
}

func writeFinal(w io.Writer, hist *hfem.History) error {
	last, ok := hist.Last()
	if !ok {
		return nil
	}
	if elements {
		if err := report.WriteElements(w, last); err != nil {
			return err
		}
	}
	if samples > 0 {
		return report.WriteSamples(w, last, samples)
	}
	return nil
}

func printShapes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := cfg.Mesh()
	if err != nil {
		return err
	}
	i := 0
	if len(args) == 1 {
		if _, err := fmt.Sscan(args[0], &i); err != nil {
			return fmt.Errorf("invalid element index %q: %w", args[0], err)
		}
	}
	if i < 0 || i >= m.Elements() {
		return fmt.Errorf("element %v out of range [0,%v)", i, m.Elements())
	}
	hfem.NewElement1D(m, i).PrintShapeFuncs(cmd.OutOrStdout(), 100)
	return nil
}

func printStiffness(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := cfg.Mesh()
	if err != nil {
		return err
	}
	c, err := cfg.Coeffs()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range []struct {
		name string
		g    *hfem.Galerkin
	}{
		{"primal", hfem.PrimalSolver(nil)},
		{"dual", hfem.DualSolver(nil)},
	} {
		k := s.g.Kernel(c, m)
		fmt.Fprintf(out, "%v stiffness:\n% .4v\n", s.name, mat.Formatted(s.g.StiffnessMatrix(k, m)))
		fmt.Fprintf(out, "%v force:\n%v\n", s.name, s.g.ForceMatrix(k, m))
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
