package navigator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/waypoint-labs/waypoint/model"
)

const ioDoc = `
<definitions>
  <process id="proc_io" isExecutable="true">
    <startEvent id="start_1"/>
    <serviceTask id="task_charge">
      <extensionElements>
        <ioMapping>
          <input name="amount" fromContext="$.order.total"/>
          <input name="customer" fromContext="customerName"/>
          <input name="local"/>
          <output name="chargeId"/>
        </ioMapping>
      </extensionElements>
    </serviceTask>
    <sequenceFlow id="f1" sourceRef="start_1" targetRef="task_charge"/>
  </process>
</definitions>`

func TestGetIONamesPassedIntoNode(t *testing.T) {
	nav := newTestNavigator(t, DeferringSelector{}, defaultNavConfig())

	names, err := nav.GetIONamesPassedIntoNode([]byte(ioDoc), "task_charge")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"amount":   "$.order.total",
		"customer": "customerName",
	}, names)

	// arbitrary nodes have no externally linked inputs
	names, err = nav.GetIONamesPassedIntoNode([]byte(ioDoc), "start_1")
	require.NoError(t, err)
	require.Empty(t, names)

	names, err = nav.GetIONamesPassedIntoNode([]byte(ioDoc), "gone")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestResolveNodeInputs(t *testing.T) {
	nav := newTestNavigator(t, DeferringSelector{}, defaultNavConfig())
	sctx := model.NewSubroutineContext("sub-1")
	sctx.SetInput("order", map[string]any{"total": 99.5})
	sctx.SetInput("customerName", "acme")

	inputs, err := nav.ResolveNodeInputs([]byte(ioDoc), "task_charge", sctx)
	require.NoError(t, err)
	require.Equal(t, 99.5, inputs["amount"])
	require.Equal(t, "acme", inputs["customer"])

	// unresolvable references are omitted
	bare := model.NewSubroutineContext("sub-2")
	inputs, err = nav.ResolveNodeInputs([]byte(ioDoc), "task_charge", bare)
	require.NoError(t, err)
	require.Empty(t, inputs)
}
