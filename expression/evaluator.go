package expression

import (
	"strings"

	"github.com/waypoint-labs/waypoint/logger"
	"go.uber.org/zap"
)

// Evaluator evaluates an expression against a variable context. Implementations
// are pure and safe for concurrent use; the engine behind them is swappable.
type Evaluator interface {
	Evaluate(expression string, context map[string]any) (any, error)
}

// StripWrapper removes a ${...} or #{...} placeholder wrapper if present.
func StripWrapper(expression string) string {
	trimmed := strings.TrimSpace(expression)
	if (strings.HasPrefix(trimmed, "${") || strings.HasPrefix(trimmed, "#{")) && strings.HasSuffix(trimmed, "}") {
		return strings.TrimSpace(trimmed[2 : len(trimmed)-1])
	}
	return trimmed
}

// EvaluateBool evaluates a condition expression and reduces it to a boolean.
// An expression that is empty after wrapper stripping is false: a condition was
// expected here but missing, which is distinct from "no condition at all".
// Evaluation errors are logged and treated as false so a broken expression
// blocks a path instead of crashing the run.
func EvaluateBool(ev Evaluator, expression string, context map[string]any) bool {
	stripped := StripWrapper(expression)
	if len(stripped) == 0 {
		return false
	}
	value, err := ev.Evaluate(stripped, context)
	if err != nil {
		logger.Error("error evaluating condition expression", zap.String("expression", stripped), zap.Error(err))
		return false
	}
	return Truthy(value)
}

func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return len(v) > 0 && !strings.EqualFold(v, "false")
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	default:
		return true
	}
}
