// Package config loads refinement problems from YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rwcarlsen/hfem"
	"github.com/rwcarlsen/hfem/sparse"
)

// Config describes one refinement problem and how to run it.
type Config struct {
	Domain       DomainConfig       `yaml:"domain"`
	Coefficients CoefficientsConfig `yaml:"coefficients"`
	Refinement   RefinementConfig   `yaml:"refinement"`
	Solver       SolverConfig       `yaml:"solver"`
}

// DomainConfig describes the initial mesh.  Explicit Points take precedence
// over a uniform mesh of Nodes nodes on [Left, Right].
type DomainConfig struct {
	Left   float64   `yaml:"left"`
	Right  float64   `yaml:"right"`
	Nodes  int       `yaml:"nodes" validate:"gte=0"`
	Points []float64 `yaml:"points,omitempty" validate:"omitempty,min=2"`
}

// CoefficientsConfig holds the coefficient functions as expressions of x
// (e.g. "x^2 + 2*x - 2", "1 + sin(x)") and the Robin boundary data.
type CoefficientsConfig struct {
	M      string  `yaml:"m" validate:"required"`
	Sigma  string  `yaml:"sigma" validate:"required"`
	F      string  `yaml:"f" validate:"required"`
	Alpha  float64 `yaml:"alpha" validate:"gt=0"`
	Target float64 `yaml:"target"`
}

// RefinementConfig selects the refinement policy and the limits of a run.
type RefinementConfig struct {
	Policy    string  `yaml:"policy" validate:"oneof=uniform gated"`
	Threshold float64 `yaml:"threshold" validate:"gte=0"`
	MaxNodes  int     `yaml:"max_nodes" validate:"gte=0"`
	MaxSteps  int     `yaml:"max_steps" validate:"gte=0"`
}

// SolverConfig selects the linear solver and whether the primal and dual
// problems are solved concurrently.
type SolverConfig struct {
	Linear   string `yaml:"linear" validate:"omitempty,oneof=lu cholesky cg gauss-seidel"`
	Parallel bool   `yaml:"parallel"`
}

// ValidPolicies lists the supported refinement policies.
var ValidPolicies = []string{"uniform", "gated"}

// validate checks the struct tags of Config.
var validate = validator.New()

// DefaultConfig returns the model problem -u″ + u = x^2+2x-2 on [0,1] with
// u(0)=0 and u'(1) + u(1) = 3, starting from three nodes.
func DefaultConfig() *Config {
	return &Config{
		Domain: DomainConfig{
			Left:  0,
			Right: 1,
			Nodes: 3,
		},
		Coefficients: CoefficientsConfig{
			M:      "1",
			Sigma:  "1",
			F:      "x^2 + 2*x - 2",
			Alpha:  1,
			Target: 3,
		},
		Refinement: RefinementConfig{
			Policy:    "uniform",
			Threshold: 0.2,
			MaxNodes:  hfem.DefaultMaxNodes,
		},
		Solver: SolverConfig{
			Linear: "lu",
		},
	}
}

// Load loads configuration from a YAML file on top of DefaultConfig.  A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := cfg.applyEnvOverrides(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets HFEM_LINEAR_SOLVER and HFEM_MAX_NODES override the
// file values.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HFEM_LINEAR_SOLVER"); v != "" {
		c.Solver.Linear = v
	}
	if v := os.Getenv("HFEM_MAX_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HFEM_MAX_NODES %q: %w", v, err)
		}
		c.Refinement.MaxNodes = n
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate validates the configuration and compiles the coefficient
// expressions without building anything else.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.Domain.Points) == 0 && c.Domain.Nodes < 2 {
		return fmt.Errorf("%w: need at least 2 nodes, got %v", hfem.ErrInvalidMesh, c.Domain.Nodes)
	}
	_, err := c.Coeffs()
	return err
}

// Mesh builds the initial mesh.
func (c *Config) Mesh() (*hfem.Mesh, error) {
	if len(c.Domain.Points) > 0 {
		return hfem.NewMesh(c.Domain.Points)
	}
	return hfem.UniformMesh(c.Domain.Left, c.Domain.Right, c.Domain.Nodes)
}

// Coeffs compiles the coefficient expressions.
func (c *Config) Coeffs() (*hfem.Coefficients, error) {
	fns := make([]hfem.Valer, 3)
	for i, src := range []struct{ name, code string }{
		{"m", c.Coefficients.M},
		{"sigma", c.Coefficients.Sigma},
		{"f", c.Coefficients.F},
	} {
		e, err := Compile(src.code)
		if err != nil {
			return nil, fmt.Errorf("%w: coefficient %s: %v", hfem.ErrInvalidCoefficients, src.name, err)
		}
		fns[i] = e
	}
	coeffs := &hfem.Coefficients{
		M:      fns[0],
		Sigma:  fns[1],
		F:      fns[2],
		Alpha:  c.Coefficients.Alpha,
		Target: c.Coefficients.Target,
	}
	if err := coeffs.Validate(); err != nil {
		return nil, err
	}
	return coeffs, nil
}

// Policy returns the configured refinement policy.
func (c *Config) Policy() (hfem.RefinementPolicy, error) {
	switch c.Refinement.Policy {
	case "uniform", "":
		return hfem.UniformBisection{}, nil
	case "gated":
		return hfem.ErrorGated{Threshold: c.Refinement.Threshold}, nil
	}
	return nil, fmt.Errorf("invalid refinement policy: %s (valid: %v)", c.Refinement.Policy, ValidPolicies)
}

// Driver builds a refinement driver logging to log.  The primal and dual
// solvers get their own linear solver since iterative solvers keep state.
func (c *Config) Driver(log *zap.Logger) (*hfem.Driver, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	primal, err := sparse.New(c.Solver.Linear)
	if err != nil {
		return nil, err
	}
	dual, err := sparse.New(c.Solver.Linear)
	if err != nil {
		return nil, err
	}

	d := hfem.NewDriver()
	d.Primal = hfem.PrimalSolver(primal)
	d.Dual = hfem.DualSolver(dual)
	d.Policy = policy
	d.MaxNodes = c.Refinement.MaxNodes
	d.MaxSteps = c.Refinement.MaxSteps
	d.Parallel = c.Solver.Parallel
	if log != nil {
		d.Logger = log
	}
	return d, nil
}
