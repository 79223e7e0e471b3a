package graph

type ElementKind string

const ELEMENT_PROCESS ElementKind = "PROCESS"
const ELEMENT_START_EVENT ElementKind = "START_EVENT"
const ELEMENT_END_EVENT ElementKind = "END_EVENT"
const ELEMENT_INTERMEDIATE_EVENT ElementKind = "INTERMEDIATE_EVENT"
const ELEMENT_BOUNDARY_EVENT ElementKind = "BOUNDARY_EVENT"
const ELEMENT_TASK ElementKind = "TASK"
const ELEMENT_CALL_ACTIVITY ElementKind = "CALL_ACTIVITY"
const ELEMENT_GATEWAY ElementKind = "GATEWAY"
const ELEMENT_SEQUENCE_FLOW ElementKind = "SEQUENCE_FLOW"

type GatewayKind string

const GATEWAY_EXCLUSIVE GatewayKind = "EXCLUSIVE"
const GATEWAY_PARALLEL GatewayKind = "PARALLEL"
const GATEWAY_INCLUSIVE GatewayKind = "INCLUSIVE"
const GATEWAY_EVENT_BASED GatewayKind = "EVENT_BASED"
const GATEWAY_UNKNOWN GatewayKind = "UNKNOWN"

type EventDefinitionKind string

const EVENT_DEF_TIMER EventDefinitionKind = "TIMER"
const EVENT_DEF_MESSAGE EventDefinitionKind = "MESSAGE"
const EVENT_DEF_SIGNAL EventDefinitionKind = "SIGNAL"
const EVENT_DEF_ERROR EventDefinitionKind = "ERROR"
const EVENT_DEF_ESCALATION EventDefinitionKind = "ESCALATION"
const EVENT_DEF_CONDITIONAL EventDefinitionKind = "CONDITIONAL"

// EventDefinition describes what an event element waits for. Exactly the
// fields for its kind are populated.
type EventDefinition struct {
	Kind      EventDefinitionKind
	Duration  string
	TimeDate  string
	TimeCycle string
	Ref       string
	Condition string
}

type IOMapping struct {
	Name        string
	FromContext string
}

// Element is one typed node or edge of a parsed graph definition. Kind is
// resolved once at parse time; elements are owned by the definition cache and
// never mutated by navigators.
type Element struct {
	Id   string
	Name string
	Kind ElementKind

	ProcessId string

	// gateway
	Gateway GatewayKind

	// events
	Event          *EventDefinition
	AttachedToRef  string
	CancelActivity bool

	// call activity
	CalledElement string

	// sequence flow
	SourceRef           string
	TargetRef           string
	ConditionExpression string

	Incoming []string
	Outgoing []string

	Inputs  []IOMapping
	Outputs []IOMapping
}

func (e *Element) IsGateway() bool {
	return e.Kind == ELEMENT_GATEWAY
}

func (e *Element) IsEvent() bool {
	switch e.Kind {
	case ELEMENT_START_EVENT, ELEMENT_END_EVENT, ELEMENT_INTERMEDIATE_EVENT, ELEMENT_BOUNDARY_EVENT:
		return true
	}
	return false
}

type Process struct {
	Id           string
	Name         string
	IsExecutable bool
	Elements     []*Element
}

// StartElements returns the start-capable elements of the process.
func (p *Process) StartElements() []*Element {
	var starts []*Element
	for _, el := range p.Elements {
		if el.Kind == ELEMENT_START_EVENT {
			starts = append(starts, el)
		}
	}
	return starts
}

// ParsedGraph is the parsed form of one raw graph document plus its flat
// id->element index.
type ParsedGraph struct {
	Processes []*Process
	index     map[string]*Element
}

// ElementById returns the element with the given id from the flat index, or
// nil if no such element exists anywhere in the graph.
func (g *ParsedGraph) ElementById(id string) *Element {
	return g.index[id]
}

// ElementCount reports the number of indexed elements.
func (g *ParsedGraph) ElementCount() int {
	return len(g.index)
}

// BoundaryEventsFor returns every boundary event attached to the given
// activity. Attachment is discovered by scanning the index for events whose
// AttachedToRef matches, not by following graph edges.
func (g *ParsedGraph) BoundaryEventsFor(activityId string) []*Element {
	var events []*Element
	for _, p := range g.Processes {
		for _, el := range p.Elements {
			if el.Kind == ELEMENT_BOUNDARY_EVENT && el.AttachedToRef == activityId {
				events = append(events, el)
			}
		}
	}
	return events
}
