package config

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// env is the evaluation environment of coefficient expressions.
type env struct {
	X float64 `expr:"x"`
}

// Expr is a coefficient function compiled from an expression of x.  It
// implements hfem.Valer.
type Expr struct {
	Source  string
	program *vm.Program
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return math.NaN()
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		return fn(toFloat(params[0])), nil
	}, new(func(float64) float64))
}

var functions = []expr.Option{
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("exp", math.Exp),
	unary("log", math.Log),
	unary("sqrt", math.Sqrt),
	unary("sinh", math.Sinh),
	unary("cosh", math.Cosh),
	unary("tanh", math.Tanh),
}

// Compile compiles code into a function of x.  Besides the operators of
// expr (with ^ for powers), the functions sin, cos, tan, exp, log, sqrt,
// sinh, cosh and tanh are available.
func Compile(code string) (*Expr, error) {
	if code == "" {
		return nil, fmt.Errorf("empty expression")
	}
	opts := append([]expr.Option{expr.Env(env{}), expr.AsFloat64()}, functions...)
	program, err := expr.Compile(code, opts...)
	if err != nil {
		return nil, err
	}
	return &Expr{Source: code, program: program}, nil
}

// Val evaluates the expression at x.  Evaluation errors yield NaN, which the
// solvers reject.
func (e *Expr) Val(x float64) float64 {
	out, err := expr.Run(e.program, env{X: x})
	if err != nil {
		return math.NaN()
	}
	return toFloat(out)
}

func (e *Expr) String() string { return e.Source }
