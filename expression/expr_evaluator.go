package expression

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	c "github.com/patrickmn/go-cache"
)

var _ Evaluator = new(ExprEvaluator)

// ExprEvaluator evaluates expressions with the expr-lang engine. Compiled
// programs are cached by expression text; programs are compiled without a
// typed environment so one program can run against any variable context.
type ExprEvaluator struct {
	programs *c.Cache
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		programs: c.New(1*time.Hour, 10*time.Minute),
	}
}

func (e *ExprEvaluator) Evaluate(expression string, context map[string]any) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("error compiling expression %w", err)
	}
	if context == nil {
		context = map[string]any{}
	}
	out, err := expr.Run(program, context)
	if err != nil {
		return nil, fmt.Errorf("error evaluating expression %w", err)
	}
	return out, nil
}

func (e *ExprEvaluator) compile(expression string) (*vm.Program, error) {
	if cached, found := e.programs.Get(expression); found {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.programs.Set(expression, program, c.DefaultExpiration)
	return program, nil
}
