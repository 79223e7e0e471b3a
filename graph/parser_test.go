package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const orderDoc = `
<definitions>
  <message id="msg_1" name="payment-received"/>
  <signal id="sig_1" name="cancel-all"/>
  <process id="proc_order" name="Order" isExecutable="true">
    <startEvent id="start_1"/>
    <serviceTask id="task_charge" name="Charge card">
      <extensionElements>
        <ioMapping>
          <input name="amount" fromContext="$.order.total"/>
          <input name="currency" fromContext="$.order.currency"/>
          <output name="chargeId"/>
        </ioMapping>
      </extensionElements>
    </serviceTask>
    <callActivity id="call_ship" calledElement="proc_shipping"/>
    <boundaryEvent id="ev_cancel" attachedToRef="task_charge">
      <signalEventDefinition signalRef="sig_1"/>
    </boundaryEvent>
    <exclusiveGateway id="gw_check"/>
    <endEvent id="end_1"/>
    <sequenceFlow id="f1" sourceRef="start_1" targetRef="task_charge"/>
    <sequenceFlow id="f2" sourceRef="task_charge" targetRef="gw_check"/>
    <sequenceFlow id="f3" sourceRef="gw_check" targetRef="call_ship">
      <conditionExpression>${charged}</conditionExpression>
    </sequenceFlow>
    <sequenceFlow id="f4" sourceRef="gw_check" targetRef="end_1"/>
  </process>
  <process id="proc_manual" isExecutable="false">
    <startEvent id="start_manual"/>
  </process>
</definitions>`

func TestParse(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, g *ParsedGraph,
	){
		"test processes and executability": testProcesses,
		"test element kinds":               testElementKinds,
		"test flow linking":                testFlowLinking,
		"test event definition refs":       testEventDefinitionRefs,
		"test io mappings":                 testIOMappings,
		"test boundary attachment":         testBoundaryAttachment,
	} {
		t.Run(scenario, func(t *testing.T) {
			g, err := Parse([]byte(orderDoc))
			require.NoError(t, err)

			fn(t, g)
		})
	}
}

func testProcesses(t *testing.T, g *ParsedGraph) {
	require.Len(t, g.Processes, 2)
	require.True(t, g.Processes[0].IsExecutable)
	require.False(t, g.Processes[1].IsExecutable)
	require.Len(t, g.Processes[0].StartElements(), 1)
	require.Equal(t, "start_1", g.Processes[0].StartElements()[0].Id)
}

func testElementKinds(t *testing.T, g *ParsedGraph) {
	require.Equal(t, ELEMENT_TASK, g.ElementById("task_charge").Kind)
	require.Equal(t, ELEMENT_CALL_ACTIVITY, g.ElementById("call_ship").Kind)
	require.Equal(t, "proc_shipping", g.ElementById("call_ship").CalledElement)
	require.Equal(t, ELEMENT_GATEWAY, g.ElementById("gw_check").Kind)
	require.Equal(t, GATEWAY_EXCLUSIVE, g.ElementById("gw_check").Gateway)
	require.Equal(t, ELEMENT_END_EVENT, g.ElementById("end_1").Kind)
	require.Nil(t, g.ElementById("nope"))
}

func testFlowLinking(t *testing.T, g *ParsedGraph) {
	charge := g.ElementById("task_charge")
	require.Equal(t, []string{"f1"}, charge.Incoming)
	require.Equal(t, []string{"f2"}, charge.Outgoing)

	gw := g.ElementById("gw_check")
	require.ElementsMatch(t, []string{"f3", "f4"}, gw.Outgoing)
	require.Equal(t, "${charged}", g.ElementById("f3").ConditionExpression)
}

func testEventDefinitionRefs(t *testing.T, g *ParsedGraph) {
	ev := g.ElementById("ev_cancel")
	require.NotNil(t, ev.Event)
	require.Equal(t, EVENT_DEF_SIGNAL, ev.Event.Kind)
	require.Equal(t, "cancel-all", ev.Event.Ref)
	require.True(t, ev.CancelActivity)
}

func testIOMappings(t *testing.T, g *ParsedGraph) {
	charge := g.ElementById("task_charge")
	require.Len(t, charge.Inputs, 2)
	require.Equal(t, "amount", charge.Inputs[0].Name)
	require.Equal(t, "$.order.total", charge.Inputs[0].FromContext)
	require.Len(t, charge.Outputs, 1)
}

func testBoundaryAttachment(t *testing.T, g *ParsedGraph) {
	events := g.BoundaryEventsFor("task_charge")
	require.Len(t, events, 1)
	require.Equal(t, "ev_cancel", events[0].Id)
	require.Empty(t, g.BoundaryEventsFor("call_ship"))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("not xml at all <"))
	require.Error(t, err)
	_, ok := err.(ParseError)
	require.True(t, ok)

	_, err = Parse([]byte("<definitions></definitions>"))
	require.Error(t, err)
	_, ok = err.(ParseError)
	require.True(t, ok)
}
