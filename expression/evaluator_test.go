package expression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripWrapper(t *testing.T) {
	require.Equal(t, "a > b", StripWrapper("${a > b}"))
	require.Equal(t, "a > b", StripWrapper("#{ a > b }"))
	require.Equal(t, "a > b", StripWrapper("a > b"))
	require.Equal(t, "", StripWrapper("${}"))
}

func TestEvaluateBool(t *testing.T) {
	ev := NewExprEvaluator()
	ctx := map[string]any{"amount": 150, "approved": true, "name": "waypoint"}

	require.True(t, EvaluateBool(ev, "${amount > 100}", ctx))
	require.False(t, EvaluateBool(ev, "${amount > 200}", ctx))
	require.True(t, EvaluateBool(ev, "approved", ctx))
	require.True(t, EvaluateBool(ev, `name == "waypoint"`, ctx))

	// empty after stripping means a missing condition, never a pass
	require.False(t, EvaluateBool(ev, "${}", ctx))
	require.False(t, EvaluateBool(ev, "   ", ctx))

	// broken expressions block instead of crashing
	require.False(t, EvaluateBool(ev, "${amount >}", ctx))
}

func TestTruthy(t *testing.T) {
	require.False(t, Truthy(nil))
	require.True(t, Truthy(true))
	require.False(t, Truthy(false))
	require.True(t, Truthy("yes"))
	require.False(t, Truthy(""))
	require.False(t, Truthy("FALSE"))
	require.True(t, Truthy(1))
	require.False(t, Truthy(0))
	require.False(t, Truthy(float64(0)))
	require.True(t, Truthy(map[string]any{}))
}

func TestExprEvaluator(t *testing.T) {
	ev := NewExprEvaluator()

	out, err := ev.Evaluate("a + b", map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	require.EqualValues(t, 5, out)

	// same expression again comes from the program cache
	out, err = ev.Evaluate("a + b", map[string]any{"a": 10, "b": 1})
	require.NoError(t, err)
	require.EqualValues(t, 11, out)

	// undefined variables do not fail compilation
	out, err = ev.Evaluate("missing == nil", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, true, out)

	_, err = ev.Evaluate("a +", map[string]any{})
	require.Error(t, err)
}

func TestJsEvaluator(t *testing.T) {
	ev := NewJsEvaluator()

	out, err := ev.Evaluate("$.order.total * 2", map[string]any{
		"order": map[string]any{"total": 21},
	})
	require.NoError(t, err)
	require.EqualValues(t, 42, out)

	_, err = ev.Evaluate("syntax error here", map[string]any{})
	require.Error(t, err)
}
