package navigator

import (
	"fmt"
	"sync"

	"github.com/waypoint-labs/waypoint/model"
)

// Navigator computes start locations, next locations and boundary-event
// triggers for one point of execution over a parsed graph definition. A
// navigator holds no per-execution state; everything mutable lives in the
// caller-supplied SubroutineContext. Callers must not navigate the same
// location concurrently; different locations and contexts are safe.
type Navigator interface {
	GetAvailableStartLocations(doc []byte, objectType string, objectId string, sctx *model.SubroutineContext) (*model.NavigationDecision, error)
	GetAvailableNextLocations(doc []byte, loc model.Location, sctx *model.SubroutineContext) (*model.NavigationDecision, error)
	GetTriggeredBoundaryEvents(doc []byte, loc model.Location, sctx *model.SubroutineContext) (*model.NavigationDecision, error)
	GetIONamesPassedIntoNode(doc []byte, nodeId string) (map[string]string, error)
}

// SelectionResult is the outcome of a path selection. Waiting means the
// decision is pending out of band; it is not an error and not a default
// choice.
type SelectionResult struct {
	Waiting  bool
	Selected []string
}

// PathSelectionHandler resolves ambiguous branch choices, possibly via a
// long-running out-of-band decision. Callers retry the same decision key with
// the same options until a decision is made.
type PathSelectionHandler interface {
	ChooseOne(options []model.SelectionOption, decisionKey string, context map[string]any) (SelectionResult, error)
	ChooseMultiple(options []model.SelectionOption, decisionKey string, context map[string]any) (SelectionResult, error)
}

// Registry maps a graph type tag to its navigator implementation.
type Registry struct {
	mu         sync.RWMutex
	navigators map[string]Navigator
}

func NewRegistry() *Registry {
	return &Registry{
		navigators: make(map[string]Navigator),
	}
}

func (r *Registry) Register(graphType string, nav Navigator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigators[graphType] = nav
}

func (r *Registry) Get(graphType string) (Navigator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nav, ok := r.navigators[graphType]
	if !ok {
		return nil, fmt.Errorf("no navigator registered for graph type %s", graphType)
	}
	return nav, nil
}
