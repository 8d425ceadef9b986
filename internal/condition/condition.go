// Package condition compiles and evaluates the optional CEL expressions
// bound to a PolicyApprover, gating whether that approver's sign-off is
// required for a given version.
package condition

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"

	"github.com/stakflo/policystore/internal/model"
)

// Engine compiles and caches CEL programs keyed by their source
// expression, adapted from the teacher's internal/cel.Engine but built on
// cel-go's modern cel.Variable declarations instead of the legacy
// decls/exprpb API, since this service has no grpc/protobuf surface to
// justify pulling in google.golang.org/genproto.
type Engine struct {
	env      *cel.Env
	programs sync.Map // map[string]cel.Program
}

// NewEngine builds the CEL environment exposing the fields of
// model.PolicyFacts as top-level variables.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("department", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("policy_type", cel.StringType),
		cel.Variable("version_major", cel.IntType),
		cel.Variable("version_minor", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// compile parses, checks, and caches a condition expression.
func (e *Engine) compile(expr string) (cel.Program, error) {
	if prog, ok := e.programs.Load(expr); ok {
		return prog.(cel.Program), nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expr, issues.Err())
	}

	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program for condition %q: %w", expr, err)
	}

	e.programs.Store(expr, prog)
	return prog, nil
}

// Evaluate reports whether an approver's condition is satisfied by the
// given facts. An empty condition always evaluates to true: an approver
// with no condition is unconditionally required (spec.md §4.2).
func (e *Engine) Evaluate(expr string, facts model.PolicyFacts) (bool, error) {
	if expr == "" {
		return true, nil
	}

	prog, err := e.compile(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prog.Eval(facts.AsCELInput())
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", expr, err)
	}

	return asBool(out)
}

func asBool(val ref.Val) (bool, error) {
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean, got %T", val.Value())
	}
	return b, nil
}

// Validate compiles expr without evaluating it, used to reject malformed
// approver conditions at bind time rather than at evaluation time.
func (e *Engine) Validate(expr string) error {
	if expr == "" {
		return nil
	}
	_, err := e.compile(expr)
	return err
}
