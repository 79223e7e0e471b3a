package interceptor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/util"
	"go.uber.org/zap"
)

type ResourceSpec struct {
	Limits map[string]any
}

type Allocation struct {
	Id     string
	Limits map[string]any
}

// SwarmContextManager is the external resource/credit allocation subsystem.
type SwarmContextManager interface {
	AllocateResources(parentId string, spec ResourceSpec) (*Allocation, error)
	ReleaseResources(parentId string, allocationId string) error
	GetContext(id string) map[string]any
}

type ExecutionRequest struct {
	ResourceVersionId string
	Input             map[string]any
}

// ExecutionHandle is returned by a routine executor. Done delivers the final
// outcome exactly once; it can be awaited or ignored.
type ExecutionHandle struct {
	Id   string
	Done <-chan error
}

// RoutineExecutor is the external runtime that actually runs a routine once
// selected.
type RoutineExecutor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionHandle, error)
	Stop(executionId string, reason string) error
}

type trackedExecution struct {
	id           string
	parentId     string
	allocationId string
}

type executionDone struct {
	id  string
	err error
}

// ExecutionTracker registers fire-and-forget routine executions. Completion,
// whether success or failure, always funnels into the same cleanup path:
// release resources, then drop the registry entry.
type ExecutionTracker struct {
	mu         sync.Mutex
	executions map[string]trackedExecution

	executor RoutineExecutor
	swarm    SwarmContextManager
	cleanup  *util.Worker
	wg       sync.WaitGroup
	closed   chan struct{}
	pending  sync.WaitGroup
}

func NewExecutionTracker(executor RoutineExecutor, swarm SwarmContextManager) *ExecutionTracker {
	t := &ExecutionTracker{
		executions: make(map[string]trackedExecution),
		executor:   executor,
		swarm:      swarm,
		closed:     make(chan struct{}),
	}
	t.cleanup = util.NewWorker("execution-cleanup", &t.wg, t.handleDone, 64)
	t.cleanup.Start()
	return t
}

// Start launches a routine and tracks it. The interception call never blocks
// on completion.
func (t *ExecutionTracker) Start(ctx context.Context, req ExecutionRequest, parentId string, allocation *Allocation) (*ExecutionHandle, error) {
	handle, err := t.executor.Execute(ctx, req)
	if err != nil {
		if allocation != nil {
			if relErr := t.swarm.ReleaseResources(parentId, allocation.Id); relErr != nil {
				logger.Error("error releasing resources after failed start", zap.String("parent", parentId), zap.Error(relErr))
			}
		}
		return nil, err
	}
	tracked := trackedExecution{id: handle.Id, parentId: parentId}
	if allocation != nil {
		tracked.allocationId = allocation.Id
	}
	t.mu.Lock()
	t.executions[handle.Id] = tracked
	t.mu.Unlock()

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		// Once the tracker closes there is nobody draining the cleanup
		// channel, so bail out rather than block on the send.
		select {
		case err := <-handle.Done:
			select {
			case t.cleanup.Sender() <- executionDone{id: handle.Id, err: err}:
			case <-t.closed:
			}
		case <-t.closed:
		}
	}()
	return handle, nil
}

func (t *ExecutionTracker) handleDone(a util.Action) error {
	done, ok := a.(executionDone)
	if !ok {
		return fmt.Errorf("unexpected cleanup action %T", a)
	}
	t.mu.Lock()
	tracked, found := t.executions[done.id]
	delete(t.executions, done.id)
	t.mu.Unlock()
	if !found {
		return nil
	}
	if done.err != nil {
		logger.Error("routine execution failed", zap.String("execution", done.id), zap.Error(done.err))
	}
	if len(tracked.allocationId) > 0 {
		if err := t.swarm.ReleaseResources(tracked.parentId, tracked.allocationId); err != nil {
			logger.Error("error releasing resources", zap.String("execution", done.id), zap.Error(err))
		}
	}
	return nil
}

// StopAll attempts to stop every tracked execution, tolerating individual
// failures, and clears the registry regardless of individual outcomes.
func (t *ExecutionTracker) StopAll(reason string) error {
	t.mu.Lock()
	snapshot := make([]trackedExecution, 0, len(t.executions))
	for _, tracked := range t.executions {
		snapshot = append(snapshot, tracked)
	}
	t.executions = make(map[string]trackedExecution)
	t.mu.Unlock()

	var errs []error
	for _, tracked := range snapshot {
		if err := t.executor.Stop(tracked.id, reason); err != nil {
			logger.Error("error stopping execution", zap.String("execution", tracked.id), zap.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", tracked.id, err))
		}
		if len(tracked.allocationId) > 0 {
			if err := t.swarm.ReleaseResources(tracked.parentId, tracked.allocationId); err != nil {
				logger.Error("error releasing resources on stop", zap.String("execution", tracked.id), zap.Error(err))
			}
		}
	}
	return errors.Join(errs...)
}

func (t *ExecutionTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.executions)
}

func (t *ExecutionTracker) Close() {
	close(t.closed)
	t.pending.Wait()
	t.cleanup.Stop()
	t.wg.Wait()
}
