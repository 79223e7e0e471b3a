package navigator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/waypoint-labs/waypoint/model"
)

func TestBoundaryEventPoller(t *testing.T) {
	nav := newTestNavigator(t, DeferringSelector{}, defaultNavConfig())
	sctx := model.NewSubroutineContext("sub-1")
	loc := model.NewLocation("order", "order-1", "task_wait")

	var fired []*model.NavigationDecision
	poller := NewBoundaryEventPoller(nav, time.Minute, func(_ model.Location, decision *model.NavigationDecision) {
		fired = append(fired, decision)
	})
	poller.Watch([]byte(boundaryDoc), loc, sctx)

	// nothing pending yet
	poller.poll()
	require.Empty(t, fired)

	sctx.EnqueueRuntimeEvent(model.RUNTIME_EVENT_MESSAGE, "payment-received")
	poller.poll()
	require.Len(t, fired, 1)
	require.Equal(t, []string{"ev_payment"}, locationIds(fired[0].NextLocations))

	// the interrupting event unwatched the location
	poller.poll()
	require.Len(t, fired, 1)
}
