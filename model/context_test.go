package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubroutineContext(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, sctx *SubroutineContext,
	){
		"test runtime event consumption":  testRuntimeEventConsumption,
		"test node start time kept":       testNodeStartTimeKept,
		"test event triggered marker":     testEventTriggeredMarker,
		"test variables merge":            testVariablesMerge,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewSubroutineContext("sub-1"))
		})
	}
}

func testRuntimeEventConsumption(t *testing.T, sctx *SubroutineContext) {
	sctx.EnqueueRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m1")
	sctx.EnqueueRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m1")
	sctx.EnqueueRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m2")

	// each consumption removes exactly one matching entry
	require.True(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m1"))
	require.Equal(t, []string{"m1", "m2"}, sctx.PendingRuntimeEvents(RUNTIME_EVENT_MESSAGE))

	require.True(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m1"))
	require.False(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m1"))
	require.True(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_MESSAGE, "m2"))

	// queues are per kind
	sctx.EnqueueRuntimeEvent(RUNTIME_EVENT_SIGNAL, "s1")
	require.False(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_MESSAGE, "s1"))
	require.True(t, sctx.ConsumeRuntimeEvent(RUNTIME_EVENT_SIGNAL, "s1"))
}

func testNodeStartTimeKept(t *testing.T, sctx *SubroutineContext) {
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	require.Equal(t, first, sctx.MarkNodeStarted("task_a", first))
	// later observations never move the reference time
	require.Equal(t, first, sctx.MarkNodeStarted("task_a", later))

	got, ok := sctx.NodeStartTime("task_a")
	require.True(t, ok)
	require.Equal(t, first, got)

	_, ok = sctx.NodeStartTime("task_b")
	require.False(t, ok)
}

func testEventTriggeredMarker(t *testing.T, sctx *SubroutineContext) {
	require.False(t, sctx.IsEventTriggered("ev_1"))
	sctx.MarkEventTriggered("ev_1")
	require.True(t, sctx.IsEventTriggered("ev_1"))
	require.False(t, sctx.IsEventTriggered("ev_2"))
}

func testVariablesMerge(t *testing.T, sctx *SubroutineContext) {
	sctx.SetInput("amount", 100)
	sctx.SetInput("currency", "EUR")
	sctx.SetOutput("amount", 90)

	vars := sctx.Variables()
	require.Equal(t, 90, vars["amount"])
	require.Equal(t, "EUR", vars["currency"])

	// the merged view is a copy
	vars["currency"] = "USD"
	require.Equal(t, "EUR", sctx.Variables()["currency"])
}
