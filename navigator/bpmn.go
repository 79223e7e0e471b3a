package navigator

import (
	"fmt"
	"time"

	"github.com/waypoint-labs/waypoint/analytics"
	"github.com/waypoint-labs/waypoint/config"
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/graph"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

const GRAPH_TYPE_BPMN = "bpmn"

var _ Navigator = new(BpmnNavigator)

// BpmnNavigator is the BPMN implementation of Navigator. Its only shared
// mutable resource is the definition cache, which is internally thread safe.
type BpmnNavigator struct {
	cache     *graph.DefinitionCache
	evaluator expression.Evaluator
	selector  PathSelectionHandler
	navConfig config.NavigationConfig
	clock     func() time.Time
}

func NewBpmnNavigator(cache *graph.DefinitionCache, evaluator expression.Evaluator, selector PathSelectionHandler, navConfig config.NavigationConfig) *BpmnNavigator {
	return &BpmnNavigator{
		cache:     cache,
		evaluator: evaluator,
		selector:  selector,
		navConfig: navConfig,
		clock:     time.Now,
	}
}

// GetAvailableStartLocations finds the start location of the first executable
// process that has start elements. A process with exactly one start element
// takes it unconditionally; with multiple, the path selection handler chooses,
// and a waiting handler surfaces as a deferred decision. Processes without
// start elements are skipped, not failed.
func (n *BpmnNavigator) GetAvailableStartLocations(doc []byte, objectType string, objectId string, sctx *model.SubroutineContext) (*model.NavigationDecision, error) {
	g, err := n.cache.GetDefinitions(doc)
	if err != nil {
		return nil, err
	}
	for _, proc := range g.Processes {
		if !proc.IsExecutable {
			continue
		}
		starts := proc.StartElements()
		if len(starts) == 0 {
			continue
		}
		if len(starts) == 1 {
			return n.startDecision(objectType, objectId, starts[0]), nil
		}
		options := toSelectionOptions(starts)
		key := decisionKey(objectId, sctx.Id, proc.Id)
		result, err := n.selector.ChooseOne(options, key, sctx.Variables())
		if err != nil {
			logger.Error("error choosing start location, deferring decision", zap.String("process", proc.Id), zap.Error(err))
			return model.DeferredDecision(model.DeferredDecisionData{DecisionKey: key, Options: options, ProcessId: proc.Id}), nil
		}
		if result.Waiting || len(result.Selected) == 0 {
			return model.DeferredDecision(model.DeferredDecisionData{DecisionKey: key, Options: options, ProcessId: proc.Id}), nil
		}
		chosen := g.ElementById(result.Selected[0])
		if chosen == nil {
			logger.Error("selected start element not found", zap.String("id", result.Selected[0]))
			return &model.NavigationDecision{TriggerBranchFailure: true}, nil
		}
		return n.startDecision(objectType, objectId, chosen), nil
	}
	return model.EmptyDecision(), nil
}

func (n *BpmnNavigator) startDecision(objectType string, objectId string, start *graph.Element) *model.NavigationDecision {
	return &model.NavigationDecision{
		NextLocations: []model.Location{n.locationFor(objectType, objectId, start)},
	}
}

// GetTriggeredBoundaryEvents evaluates every boundary event attached to the
// current element. The triggered events become the next locations, which are
// also closed so they never fire twice. A missing element is a no-op, not a
// failure: boundary polling against a stale location must not crash the run.
func (n *BpmnNavigator) GetTriggeredBoundaryEvents(doc []byte, loc model.Location, sctx *model.SubroutineContext) (*model.NavigationDecision, error) {
	g, err := n.cache.GetDefinitions(doc)
	if err != nil {
		return nil, err
	}
	el := g.ElementById(loc.LocationId)
	if el == nil {
		logger.Warn("element not found while checking boundary events", zap.String("location", loc.LocationId))
		return &model.NavigationDecision{IsNodeStillActive: true}, nil
	}
	triggered, anyInterrupting := n.evaluateBoundaryEvents(g, el, sctx)
	next := n.locationsFor(loc, triggered)
	return &model.NavigationDecision{
		NextLocations:     next,
		ClosedLocations:   next,
		IsNodeStillActive: !anyInterrupting,
	}, nil
}

// GetAvailableNextLocations is the core transition function, run after a node
// is considered done or while polling it.
func (n *BpmnNavigator) GetAvailableNextLocations(doc []byte, loc model.Location, sctx *model.SubroutineContext) (*model.NavigationDecision, error) {
	decision, err := n.nextLocations(doc, loc, sctx)
	if err == nil {
		analytics.RecordNavigation(loc.ObjectId, loc.LocationId, len(decision.NextLocations), len(decision.DeferredDecisions) > 0, decision.TriggerBranchFailure)
	}
	return decision, err
}

func (n *BpmnNavigator) nextLocations(doc []byte, loc model.Location, sctx *model.SubroutineContext) (*model.NavigationDecision, error) {
	g, err := n.cache.GetDefinitions(doc)
	if err != nil {
		return nil, err
	}
	el := g.ElementById(loc.LocationId)
	if el == nil {
		logger.Error("element not found, failing branch", zap.String("location", loc.LocationId), zap.String("object", loc.ObjectId))
		return &model.NavigationDecision{TriggerBranchFailure: true}, nil
	}
	if el.Kind == graph.ELEMENT_END_EVENT {
		return model.EmptyDecision(), nil
	}

	triggered, anyInterrupting := n.evaluateBoundaryEvents(g, el, sctx)
	if anyInterrupting {
		// An interrupting event abandons the outgoing flows of the activity.
		next := n.locationsFor(loc, triggered)
		return &model.NavigationDecision{
			NextLocations:   next,
			ClosedLocations: next,
		}, nil
	}

	if el.IsEvent() && el.Kind != graph.ELEMENT_BOUNDARY_EVENT && !n.ownTriggerSatisfied(el, sctx) {
		carried := n.locationsFor(loc, triggered)
		return &model.NavigationDecision{
			NextLocations:     carried,
			ClosedLocations:   carried,
			IsNodeStillActive: true,
		}, nil
	}

	candidates := n.viableTargets(g, el, sctx)

	if el.IsGateway() {
		resolved, deferred := n.resolveGateway(el, candidates, loc, sctx)
		if deferred != nil {
			return deferred, nil
		}
		candidates = resolved
	}

	if len(candidates) == 0 {
		return n.applyDeadEndPolicy(el), nil
	}

	return &model.NavigationDecision{
		NextLocations: n.locationsFor(loc, candidates),
	}, nil
}

// viableTargets collects the targets of the element's outgoing sequence flows,
// filtered by each flow's condition expression. A flow without a condition is
// unconditional.
func (n *BpmnNavigator) viableTargets(g *graph.ParsedGraph, el *graph.Element, sctx *model.SubroutineContext) []*graph.Element {
	var targets []*graph.Element
	for _, flowId := range el.Outgoing {
		flow := g.ElementById(flowId)
		if flow == nil {
			logger.Warn("outgoing sequence flow not found", zap.String("flow", flowId), zap.String("element", el.Id))
			continue
		}
		if len(flow.ConditionExpression) > 0 && !expression.EvaluateBool(n.evaluator, flow.ConditionExpression, sctx.Variables()) {
			continue
		}
		target := g.ElementById(flow.TargetRef)
		if target == nil {
			logger.Warn("sequence flow target not found", zap.String("flow", flowId), zap.String("target", flow.TargetRef))
			continue
		}
		targets = append(targets, target)
	}
	return targets
}

// resolveGateway applies the gateway-type policy to the filtered candidate
// set. A non-nil second return value is a terminal deferred decision.
func (n *BpmnNavigator) resolveGateway(el *graph.Element, candidates []*graph.Element, loc model.Location, sctx *model.SubroutineContext) ([]*graph.Element, *model.NavigationDecision) {
	switch el.Gateway {
	case graph.GATEWAY_EXCLUSIVE:
		if len(candidates) <= 1 {
			return candidates, nil
		}
		return n.selectFromGateway(el, candidates, loc, sctx, false)
	case graph.GATEWAY_PARALLEL:
		return candidates, nil
	case graph.GATEWAY_INCLUSIVE:
		if len(candidates) == 0 {
			return candidates, nil
		}
		return n.selectFromGateway(el, candidates, loc, sctx, true)
	default:
		// Fail open: an unknown gateway type must not deadlock the run.
		logger.Warn("unrecognized gateway type, taking all candidates", zap.String("gateway", string(el.Gateway)), zap.String("element", el.Id))
		return candidates, nil
	}
}

func (n *BpmnNavigator) selectFromGateway(el *graph.Element, candidates []*graph.Element, loc model.Location, sctx *model.SubroutineContext, multiple bool) ([]*graph.Element, *model.NavigationDecision) {
	options := toSelectionOptions(candidates)
	key := decisionKey(loc.ObjectId, sctx.Id, el.Id)
	var result SelectionResult
	var err error
	if multiple {
		result, err = n.selector.ChooseMultiple(options, key, sctx.Variables())
	} else {
		result, err = n.selector.ChooseOne(options, key, sctx.Variables())
	}
	if err != nil {
		logger.Error("error selecting gateway path, deferring decision", zap.String("gateway", el.Id), zap.Error(err))
		return nil, model.DeferredDecision(model.DeferredDecisionData{DecisionKey: key, Options: options, ProcessId: el.ProcessId})
	}
	if result.Waiting || len(result.Selected) == 0 {
		return nil, model.DeferredDecision(model.DeferredDecisionData{DecisionKey: key, Options: options, ProcessId: el.ProcessId})
	}
	selected := make(map[string]struct{}, len(result.Selected))
	for _, id := range result.Selected {
		selected[id] = struct{}{}
	}
	var chosen []*graph.Element
	for _, c := range candidates {
		if _, ok := selected[c.Id]; ok {
			chosen = append(chosen, c)
		}
	}
	return chosen, nil
}

// applyDeadEndPolicy consults the run configuration when zero outgoing nodes
// remain. Gateways and plain nodes read separate config keys.
func (n *BpmnNavigator) applyDeadEndPolicy(el *graph.Element) *model.NavigationDecision {
	policy := n.navConfig.OnNormalNodeFailure
	if el.IsGateway() {
		policy = n.navConfig.OnGatewayForkFailure
	}
	switch policy {
	case config.FAILURE_POLICY_CONTINUE:
		return model.EmptyDecision()
	case config.FAILURE_POLICY_WAIT:
		return &model.NavigationDecision{IsNodeStillActive: true}
	default:
		logger.Info("no viable outgoing path, failing branch", zap.String("element", el.Id), zap.String("policy", string(policy)))
		return &model.NavigationDecision{TriggerBranchFailure: true}
	}
}

// evaluateBoundaryEvents evaluates triggering for every boundary event
// attached to the activity. Triggered events are recorded in the subroutine
// context so non-repeating events fire at most once per context.
func (n *BpmnNavigator) evaluateBoundaryEvents(g *graph.ParsedGraph, activity *graph.Element, sctx *model.SubroutineContext) ([]*graph.Element, bool) {
	var triggered []*graph.Element
	anyInterrupting := false
	for _, ev := range g.BoundaryEventsFor(activity.Id) {
		if ev.Event == nil {
			// A boundary event needs a definition to know what to wait for.
			logger.Warn("boundary event without definition, ignoring", zap.String("event", ev.Id))
			continue
		}
		if sctx.IsEventTriggered(ev.Id) {
			continue
		}
		if !n.isTriggered(ev.Event, activity.Id, sctx) {
			continue
		}
		sctx.MarkEventTriggered(ev.Id)
		triggered = append(triggered, ev)
		if ev.CancelActivity {
			anyInterrupting = true
		}
	}
	return triggered, anyInterrupting
}

// ownTriggerSatisfied checks the element's own trigger condition at the
// non-boundary position. An event without a definition is always triggered.
func (n *BpmnNavigator) ownTriggerSatisfied(el *graph.Element, sctx *model.SubroutineContext) bool {
	if el.Event == nil {
		return true
	}
	return n.isTriggered(el.Event, el.Id, sctx)
}

func (n *BpmnNavigator) locationFor(objectType string, objectId string, el *graph.Element) model.Location {
	l := model.NewLocation(objectType, objectId, el.Id)
	if el.Kind == graph.ELEMENT_CALL_ACTIVITY {
		l = l.WithSubroutine(el.CalledElement)
	}
	return l
}

func (n *BpmnNavigator) locationsFor(loc model.Location, elements []*graph.Element) []model.Location {
	var locations []model.Location
	for _, el := range elements {
		locations = append(locations, n.locationFor(loc.ObjectType, loc.ObjectId, el))
	}
	return locations
}

func toSelectionOptions(elements []*graph.Element) []model.SelectionOption {
	options := make([]model.SelectionOption, 0, len(elements))
	for _, el := range elements {
		options = append(options, model.SelectionOption{NodeId: el.Id, NodeLabel: el.Name})
	}
	return options
}

// decisionKey derives a stable key so the caller can resume the same deferred
// decision later with the same options.
func decisionKey(objectId string, contextId string, elementId string) string {
	return fmt.Sprintf("%s:%s:%s", objectId, contextId, elementId)
}
