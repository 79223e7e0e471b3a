package navigator

import "github.com/waypoint-labs/waypoint/model"

var _ PathSelectionHandler = new(DeferringSelector)
var _ PathSelectionHandler = new(FirstOptionSelector)

// DeferringSelector never chooses. Every ambiguous branch surfaces as a
// deferred decision for an out-of-band decider.
type DeferringSelector struct{}

func (DeferringSelector) ChooseOne([]model.SelectionOption, string, map[string]any) (SelectionResult, error) {
	return SelectionResult{Waiting: true}, nil
}

func (DeferringSelector) ChooseMultiple([]model.SelectionOption, string, map[string]any) (SelectionResult, error) {
	return SelectionResult{Waiting: true}, nil
}

// FirstOptionSelector takes the first option in declaration order.
type FirstOptionSelector struct{}

func (FirstOptionSelector) ChooseOne(options []model.SelectionOption, _ string, _ map[string]any) (SelectionResult, error) {
	if len(options) == 0 {
		return SelectionResult{Waiting: true}, nil
	}
	return SelectionResult{Selected: []string{options[0].NodeId}}, nil
}

func (FirstOptionSelector) ChooseMultiple(options []model.SelectionOption, _ string, _ map[string]any) (SelectionResult, error) {
	if len(options) == 0 {
		return SelectionResult{Waiting: true}, nil
	}
	selected := make([]string, 0, len(options))
	for _, opt := range options {
		selected = append(selected, opt.NodeId)
	}
	return SelectionResult{Selected: selected}, nil
}
