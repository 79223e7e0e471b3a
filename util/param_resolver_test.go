package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParams(t *testing.T) {
	vars := map[string]any{
		"order": map[string]any{
			"id":    "ord-42",
			"total": 99.5,
		},
		"customer": "acme",
	}

	params := map[string]any{
		"reference": "{$.order.id}",
		"label":     "order {$.order.id} for {$.customer}",
		"plain":     "no tokens here",
		"count":     3,
		"nested": map[string]any{
			"total": "{$.order.total}",
		},
		"list": []any{"{$.customer}", 7},
	}

	resolved := ResolveParams(vars, params)
	require.Equal(t, "ord-42", resolved["reference"])
	require.Equal(t, "order ord-42 for acme", resolved["label"])
	require.Equal(t, "no tokens here", resolved["plain"])
	require.Equal(t, 3, resolved["count"])
	require.Equal(t, "99.5", resolved["nested"].(map[string]any)["total"])
	require.Equal(t, []any{"acme", 7}, resolved["list"].([]any))
}

func TestResolveParamsNonJsonpathTokens(t *testing.T) {
	resolved := ResolveParams(map[string]any{}, map[string]any{
		"template": "keep {this} untouched",
	})
	require.Equal(t, "keep {this} untouched", resolved["template"])
}
