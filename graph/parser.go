package graph

import (
	"encoding/xml"
	"fmt"
)

type xmlDefinitions struct {
	XMLName     xml.Name       `xml:"definitions"`
	Processes   []xmlProcess   `xml:"process"`
	Messages    []xmlNamedItem `xml:"message"`
	Signals     []xmlNamedItem `xml:"signal"`
	Errors      []xmlNamedItem `xml:"error"`
	Escalations []xmlNamedItem `xml:"escalation"`
}

type xmlNamedItem struct {
	Id   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlProcess struct {
	Id           string `xml:"id,attr"`
	Name         string `xml:"name,attr"`
	IsExecutable string `xml:"isExecutable,attr"`

	StartEvents             []xmlEvent `xml:"startEvent"`
	EndEvents               []xmlEvent `xml:"endEvent"`
	IntermediateCatchEvents []xmlEvent `xml:"intermediateCatchEvent"`
	BoundaryEvents          []xmlEvent `xml:"boundaryEvent"`

	Tasks             []xmlActivity `xml:"task"`
	UserTasks         []xmlActivity `xml:"userTask"`
	ServiceTasks      []xmlActivity `xml:"serviceTask"`
	ScriptTasks       []xmlActivity `xml:"scriptTask"`
	ManualTasks       []xmlActivity `xml:"manualTask"`
	SendTasks         []xmlActivity `xml:"sendTask"`
	ReceiveTasks      []xmlActivity `xml:"receiveTask"`
	BusinessRuleTasks []xmlActivity `xml:"businessRuleTask"`
	CallActivities    []xmlActivity `xml:"callActivity"`

	ExclusiveGateways  []xmlGateway `xml:"exclusiveGateway"`
	ParallelGateways   []xmlGateway `xml:"parallelGateway"`
	InclusiveGateways  []xmlGateway `xml:"inclusiveGateway"`
	EventBasedGateways []xmlGateway `xml:"eventBasedGateway"`
	ComplexGateways    []xmlGateway `xml:"complexGateway"`

	SequenceFlows []xmlSequenceFlow `xml:"sequenceFlow"`
}

type xmlEvent struct {
	Id             string `xml:"id,attr"`
	Name           string `xml:"name,attr"`
	AttachedToRef  string `xml:"attachedToRef,attr"`
	CancelActivity string `xml:"cancelActivity,attr"`

	Timer       *xmlTimerDefinition       `xml:"timerEventDefinition"`
	Message     *xmlRefDefinition         `xml:"messageEventDefinition"`
	Signal      *xmlRefDefinition         `xml:"signalEventDefinition"`
	Error       *xmlRefDefinition         `xml:"errorEventDefinition"`
	Escalation  *xmlRefDefinition         `xml:"escalationEventDefinition"`
	Conditional *xmlConditionalDefinition `xml:"conditionalEventDefinition"`

	Extension *xmlExtension `xml:"extensionElements"`
}

type xmlTimerDefinition struct {
	TimeDuration string `xml:"timeDuration"`
	TimeDate     string `xml:"timeDate"`
	TimeCycle    string `xml:"timeCycle"`
}

type xmlRefDefinition struct {
	MessageRef    string `xml:"messageRef,attr"`
	SignalRef     string `xml:"signalRef,attr"`
	ErrorRef      string `xml:"errorRef,attr"`
	EscalationRef string `xml:"escalationRef,attr"`
}

type xmlConditionalDefinition struct {
	Condition string `xml:"condition"`
}

type xmlActivity struct {
	Id            string        `xml:"id,attr"`
	Name          string        `xml:"name,attr"`
	CalledElement string        `xml:"calledElement,attr"`
	Extension     *xmlExtension `xml:"extensionElements"`
}

type xmlGateway struct {
	Id   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type xmlSequenceFlow struct {
	Id                  string `xml:"id,attr"`
	Name                string `xml:"name,attr"`
	SourceRef           string `xml:"sourceRef,attr"`
	TargetRef           string `xml:"targetRef,attr"`
	ConditionExpression string `xml:"conditionExpression"`
}

type xmlExtension struct {
	Inputs  []xmlIOEntry `xml:"ioMapping>input"`
	Outputs []xmlIOEntry `xml:"ioMapping>output"`
}

type xmlIOEntry struct {
	Name        string `xml:"name,attr"`
	FromContext string `xml:"fromContext,attr"`
}

// Parse parses a raw graph document into element form and builds the flat
// id->element index. Parse failures are fatal to the caller since the document
// is static.
func Parse(raw []byte) (*ParsedGraph, error) {
	var defs xmlDefinitions
	if err := xml.Unmarshal(raw, &defs); err != nil {
		return nil, ParseError{Err: err}
	}
	if len(defs.Processes) == 0 {
		return nil, ParseError{Err: fmt.Errorf("document contains no process")}
	}
	refs := newRefTable(defs)
	g := &ParsedGraph{}
	for i := range defs.Processes {
		g.Processes = append(g.Processes, convertProcess(&defs.Processes[i], refs))
	}
	g.index = buildIndex(g)
	return g, nil
}

// refTable resolves message/signal/error/escalation ids declared at the
// definitions level to their names.
type refTable struct {
	names map[string]string
}

func newRefTable(defs xmlDefinitions) *refTable {
	t := &refTable{names: make(map[string]string)}
	for _, groups := range [][]xmlNamedItem{defs.Messages, defs.Signals, defs.Errors, defs.Escalations} {
		for _, item := range groups {
			if len(item.Name) > 0 {
				t.names[item.Id] = item.Name
			}
		}
	}
	return t
}

func (t *refTable) resolve(ref string) string {
	if name, ok := t.names[ref]; ok {
		return name
	}
	return ref
}

func convertProcess(p *xmlProcess, refs *refTable) *Process {
	proc := &Process{
		Id:           p.Id,
		Name:         p.Name,
		IsExecutable: p.IsExecutable != "false",
	}
	for i := range p.StartEvents {
		proc.Elements = append(proc.Elements, convertEvent(&p.StartEvents[i], ELEMENT_START_EVENT, p.Id, refs))
	}
	for i := range p.EndEvents {
		proc.Elements = append(proc.Elements, convertEvent(&p.EndEvents[i], ELEMENT_END_EVENT, p.Id, refs))
	}
	for i := range p.IntermediateCatchEvents {
		proc.Elements = append(proc.Elements, convertEvent(&p.IntermediateCatchEvents[i], ELEMENT_INTERMEDIATE_EVENT, p.Id, refs))
	}
	for i := range p.BoundaryEvents {
		proc.Elements = append(proc.Elements, convertEvent(&p.BoundaryEvents[i], ELEMENT_BOUNDARY_EVENT, p.Id, refs))
	}
	taskGroups := [][]xmlActivity{
		p.Tasks, p.UserTasks, p.ServiceTasks, p.ScriptTasks,
		p.ManualTasks, p.SendTasks, p.ReceiveTasks, p.BusinessRuleTasks,
	}
	for _, group := range taskGroups {
		for i := range group {
			proc.Elements = append(proc.Elements, convertActivity(&group[i], ELEMENT_TASK, p.Id))
		}
	}
	for i := range p.CallActivities {
		proc.Elements = append(proc.Elements, convertActivity(&p.CallActivities[i], ELEMENT_CALL_ACTIVITY, p.Id))
	}
	gatewayGroups := map[GatewayKind][]xmlGateway{
		GATEWAY_EXCLUSIVE:   p.ExclusiveGateways,
		GATEWAY_PARALLEL:    p.ParallelGateways,
		GATEWAY_INCLUSIVE:   p.InclusiveGateways,
		GATEWAY_EVENT_BASED: p.EventBasedGateways,
		GATEWAY_UNKNOWN:     p.ComplexGateways,
	}
	for kind, group := range gatewayGroups {
		for _, gw := range group {
			proc.Elements = append(proc.Elements, &Element{
				Id:        gw.Id,
				Name:      gw.Name,
				Kind:      ELEMENT_GATEWAY,
				Gateway:   kind,
				ProcessId: p.Id,
			})
		}
	}
	for i := range p.SequenceFlows {
		fl := &p.SequenceFlows[i]
		proc.Elements = append(proc.Elements, &Element{
			Id:                  fl.Id,
			Name:                fl.Name,
			Kind:                ELEMENT_SEQUENCE_FLOW,
			ProcessId:           p.Id,
			SourceRef:           fl.SourceRef,
			TargetRef:           fl.TargetRef,
			ConditionExpression: fl.ConditionExpression,
		})
	}
	linkFlows(proc)
	return proc
}

func convertEvent(ev *xmlEvent, kind ElementKind, processId string, refs *refTable) *Element {
	el := &Element{
		Id:             ev.Id,
		Name:           ev.Name,
		Kind:           kind,
		ProcessId:      processId,
		AttachedToRef:  ev.AttachedToRef,
		CancelActivity: ev.CancelActivity != "false",
		Event:          convertEventDefinition(ev, refs),
	}
	applyExtension(el, ev.Extension)
	return el
}

func convertEventDefinition(ev *xmlEvent, refs *refTable) *EventDefinition {
	switch {
	case ev.Timer != nil:
		return &EventDefinition{
			Kind:      EVENT_DEF_TIMER,
			Duration:  ev.Timer.TimeDuration,
			TimeDate:  ev.Timer.TimeDate,
			TimeCycle: ev.Timer.TimeCycle,
		}
	case ev.Message != nil:
		return &EventDefinition{Kind: EVENT_DEF_MESSAGE, Ref: refs.resolve(ev.Message.MessageRef)}
	case ev.Signal != nil:
		return &EventDefinition{Kind: EVENT_DEF_SIGNAL, Ref: refs.resolve(ev.Signal.SignalRef)}
	case ev.Error != nil:
		return &EventDefinition{Kind: EVENT_DEF_ERROR, Ref: refs.resolve(ev.Error.ErrorRef)}
	case ev.Escalation != nil:
		return &EventDefinition{Kind: EVENT_DEF_ESCALATION, Ref: refs.resolve(ev.Escalation.EscalationRef)}
	case ev.Conditional != nil:
		return &EventDefinition{Kind: EVENT_DEF_CONDITIONAL, Condition: ev.Conditional.Condition}
	}
	return nil
}

func convertActivity(act *xmlActivity, kind ElementKind, processId string) *Element {
	el := &Element{
		Id:            act.Id,
		Name:          act.Name,
		Kind:          kind,
		ProcessId:     processId,
		CalledElement: act.CalledElement,
	}
	applyExtension(el, act.Extension)
	return el
}

func applyExtension(el *Element, ext *xmlExtension) {
	if ext == nil {
		return
	}
	for _, in := range ext.Inputs {
		el.Inputs = append(el.Inputs, IOMapping{Name: in.Name, FromContext: in.FromContext})
	}
	for _, out := range ext.Outputs {
		el.Outputs = append(el.Outputs, IOMapping{Name: out.Name, FromContext: out.FromContext})
	}
}

// linkFlows wires Incoming/Outgoing flow ids from the sequence flows of the
// process. Flow references to undeclared nodes stay dangling; missing targets
// are a local, non-fatal condition resolved at navigation time.
func linkFlows(proc *Process) {
	byId := make(map[string]*Element, len(proc.Elements))
	for _, el := range proc.Elements {
		byId[el.Id] = el
	}
	for _, el := range proc.Elements {
		if el.Kind != ELEMENT_SEQUENCE_FLOW {
			continue
		}
		if src, ok := byId[el.SourceRef]; ok {
			src.Outgoing = append(src.Outgoing, el.Id)
		}
		if dst, ok := byId[el.TargetRef]; ok {
			dst.Incoming = append(dst.Incoming, el.Id)
		}
	}
}
