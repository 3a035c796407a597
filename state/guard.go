package state

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/sarchlab/tickrun/sim"
)

// GuardVars are the values a guard expression can read.
type GuardVars struct {
	// TimeS is the current virtual time in seconds.
	TimeS float64

	// StateTimeS is how long the current state has been active.
	StateTimeS float64

	// Outputs holds the last outputs of the current state by record field.
	Outputs map[string]float64
}

var guardEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("time_s", cel.DoubleType),
		cel.Variable("state_time_s", cel.DoubleType),
		cel.Variable("outputs", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		panic(err)
	}

	guardEnv = env
}

// A Guard is a compiled boolean CEL expression, such as
// `time_s >= 5.0 && outputs["sinewave1.0"] > 0.5`. An empty guard always
// holds.
type Guard struct {
	expr    string
	program cel.Program
}

// CompileGuard compiles expr. Syntax errors and expressions that do not yield
// a bool are configuration errors.
func CompileGuard(expr string) (*Guard, error) {
	g := &Guard{expr: expr}
	if expr == "" {
		return g, nil
	}

	ast, issues := guardEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile guard %q: %w",
			sim.ErrConfiguration, expr, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: guard %q yields %s, want bool",
			sim.ErrConfiguration, expr, ast.OutputType())
	}

	program, err := guardEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: create program for guard %q: %w",
			sim.ErrConfiguration, expr, err)
	}

	g.program = program

	return g, nil
}

// String returns the source expression.
func (g *Guard) String() string {
	return g.expr
}

// Eval tells whether the guard holds.
func (g *Guard) Eval(vars GuardVars) (bool, error) {
	if g.program == nil {
		return true, nil
	}

	outputs := vars.Outputs
	if outputs == nil {
		outputs = map[string]float64{}
	}

	out, _, err := g.program.Eval(map[string]any{
		"time_s":       vars.TimeS,
		"state_time_s": vars.StateTimeS,
		"outputs":      outputs,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate guard %q: %w", g.expr, err)
	}

	if out.Type() != types.BoolType {
		return false, fmt.Errorf("guard %q yields %s", g.expr, out.Type())
	}

	return out.Value().(bool), nil
}
