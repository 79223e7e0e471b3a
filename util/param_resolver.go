package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenPattern = regexp.MustCompile("{(.*?)}")

// ResolveParams substitutes {$.path} jsonpath tokens in string parameters with
// values from the variable map, recursing through nested maps and lists.
// Unresolvable tokens are replaced with their looked-up zero value.
func ResolveParams(vars map[string]any, params map[string]any) map[string]any {
	output := make(map[string]any)
	resolveParams(vars, params, output)
	return output
}

func resolveParams(vars map[string]any, params map[string]any, output map[string]any) {
	for k, v := range params {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			output[k] = out
			resolveParams(vars, value, out)
		case string:
			output[k] = resolveString(vars, value)
		case []any:
			output[k] = resolveList(vars, value)
		default:
			output[k] = v
		}
	}
}

func resolveString(vars map[string]any, in string) string {
	tokens := tokenPattern.FindAllString(in, -1)
	resolved := in
	for _, token := range tokens {
		path := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		if !strings.HasPrefix(path, "$") {
			continue
		}
		value, _ := jsonpath.JsonPathLookup(vars, path)
		resolved = strings.ReplaceAll(resolved, token, fmt.Sprintf("%v", value))
	}
	return resolved
}

func resolveList(vars map[string]any, list []any) []any {
	var output []any
	for _, v := range list {
		switch value := v.(type) {
		case map[string]any:
			out := make(map[string]any)
			resolveParams(vars, value, out)
			output = append(output, out)
		case string:
			output = append(output, resolveString(vars, value))
		case []any:
			output = append(output, resolveList(vars, value))
		default:
			output = append(output, v)
		}
	}
	return output
}
