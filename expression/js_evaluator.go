package expression

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

var _ Evaluator = new(JsEvaluator)

// JsEvaluator evaluates expressions as JavaScript. The variable context is
// injected as $ the same way script actions receive it.
type JsEvaluator struct{}

func NewJsEvaluator() *JsEvaluator {
	return &JsEvaluator{}
}

func (e *JsEvaluator) Evaluate(expression string, context map[string]any) (any, error) {
	data, err := json.Marshal(context)
	if err != nil {
		return nil, err
	}
	vm := goja.New()
	_, err = vm.RunString(fmt.Sprintf("var $ = %s;", data))
	if err != nil {
		return nil, fmt.Errorf("error preparing javascript context %w", err)
	}
	val, err := vm.RunString(expression)
	if err != nil {
		return nil, fmt.Errorf("error executing javascript %w", err)
	}
	if val == nil {
		return nil, nil
	}
	return val.Export(), nil
}
