package navigator

import (
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

// GetIONamesPassedIntoNode reads the node's extension metadata and maps each
// local input name to its fromContext reference path. Inputs without a
// fromContext are not externally linked and are omitted; outputs are never
// included.
func (n *BpmnNavigator) GetIONamesPassedIntoNode(doc []byte, nodeId string) (map[string]string, error) {
	g, err := n.cache.GetDefinitions(doc)
	if err != nil {
		return nil, err
	}
	el := g.ElementById(nodeId)
	if el == nil {
		logger.Warn("element not found while reading io mappings", zap.String("node", nodeId))
		return map[string]string{}, nil
	}
	names := make(map[string]string)
	for _, in := range el.Inputs {
		if len(in.FromContext) > 0 {
			names[in.Name] = in.FromContext
		}
	}
	return names, nil
}

// ResolveNodeInputs materializes the node's externally linked inputs from the
// merged subroutine variables. Reference paths starting with $ are resolved as
// jsonpath; anything else is looked up as a plain variable name. Unresolvable
// references are omitted, not errors.
func (n *BpmnNavigator) ResolveNodeInputs(doc []byte, nodeId string, sctx *model.SubroutineContext) (map[string]any, error) {
	names, err := n.GetIONamesPassedIntoNode(doc, nodeId)
	if err != nil {
		return nil, err
	}
	vars := sctx.Variables()
	inputs := make(map[string]any, len(names))
	for name, ref := range names {
		if strings.HasPrefix(ref, "$") {
			value, err := jsonpath.JsonPathLookup(vars, ref)
			if err != nil {
				logger.Debug("io reference did not resolve", zap.String("name", name), zap.String("ref", ref))
				continue
			}
			inputs[name] = value
			continue
		}
		if value, ok := vars[ref]; ok {
			inputs[name] = value
		}
	}
	return inputs, nil
}
