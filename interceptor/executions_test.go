package interceptor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualExecutor struct {
	mu      sync.Mutex
	handles map[string]chan error
	counter int
	stopped []string
}

func newManualExecutor() *manualExecutor {
	return &manualExecutor{handles: make(map[string]chan error)}
}

func (m *manualExecutor) Execute(context.Context, ExecutionRequest) (*ExecutionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	id := "exec-" + string(rune('0'+m.counter))
	done := make(chan error, 1)
	m.handles[id] = done
	return &ExecutionHandle{Id: id, Done: done}, nil
}

func (m *manualExecutor) Stop(executionId string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = append(m.stopped, executionId)
	return nil
}

func (m *manualExecutor) complete(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles[id] <- err
}

type recordingSwarm struct {
	mu       sync.Mutex
	released []string
}

func (*recordingSwarm) AllocateResources(parentId string, _ ResourceSpec) (*Allocation, error) {
	return &Allocation{Id: "alloc-" + parentId}, nil
}

func (r *recordingSwarm) ReleaseResources(_ string, allocationId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, allocationId)
	return nil
}

func (*recordingSwarm) GetContext(string) map[string]any {
	return nil
}

func (r *recordingSwarm) releases() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.released))
	copy(out, r.released)
	return out
}

func TestExecutionTracker(t *testing.T) {
	t.Run("test completion releases resources", func(t *testing.T) {
		executor := newManualExecutor()
		swarm := &recordingSwarm{}
		tracker := NewExecutionTracker(executor, swarm)
		defer tracker.Close()

		handle, err := tracker.Start(context.Background(), ExecutionRequest{ResourceVersionId: "routine-a"}, "bot-a", &Allocation{Id: "alloc-a"})
		require.NoError(t, err)
		require.Equal(t, 1, tracker.Active())

		executor.complete(handle.Id, nil)
		require.Eventually(t, func() bool {
			return tracker.Active() == 0 && len(swarm.releases()) == 1
		}, time.Second, time.Millisecond)
		require.Equal(t, []string{"alloc-a"}, swarm.releases())
	})

	t.Run("test stop all clears registry", func(t *testing.T) {
		executor := newManualExecutor()
		swarm := &recordingSwarm{}
		tracker := NewExecutionTracker(executor, swarm)
		defer tracker.Close()

		_, err := tracker.Start(context.Background(), ExecutionRequest{ResourceVersionId: "routine-a"}, "bot-a", &Allocation{Id: "alloc-a"})
		require.NoError(t, err)
		_, err = tracker.Start(context.Background(), ExecutionRequest{ResourceVersionId: "routine-b"}, "bot-b", nil)
		require.NoError(t, err)

		require.NoError(t, tracker.StopAll("shutting down"))
		require.Equal(t, 0, tracker.Active())
		require.Len(t, executor.stopped, 2)
		require.Equal(t, []string{"alloc-a"}, swarm.releases())
	})

	t.Run("test close with running executions returns", func(t *testing.T) {
		executor := newManualExecutor()
		swarm := &recordingSwarm{}
		tracker := NewExecutionTracker(executor, swarm)

		handle, err := tracker.Start(context.Background(), ExecutionRequest{ResourceVersionId: "routine-a"}, "bot-a", nil)
		require.NoError(t, err)

		closed := make(chan struct{})
		go func() {
			tracker.Close()
			close(closed)
		}()
		select {
		case <-closed:
		case <-time.After(time.Second):
			t.Fatal("tracker close did not return with a running execution")
		}

		// Late completion after close must not wedge anything either.
		executor.complete(handle.Id, nil)
	})
}
