package interceptor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/waypoint-labs/waypoint/config"
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/model"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	counter  int
}

func (f *fakeExecutor) Execute(_ context.Context, req ExecutionRequest) (*ExecutionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	f.executed = append(f.executed, req.ResourceVersionId)
	done := make(chan error, 1)
	done <- nil
	return &ExecutionHandle{Id: fmt.Sprintf("exec-%d", f.counter), Done: done}, nil
}

func (f *fakeExecutor) Stop(string, string) error {
	return nil
}

func (f *fakeExecutor) executions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.executed))
	copy(out, f.executed)
	return out
}

type fakeSwarm struct{}

func (fakeSwarm) AllocateResources(parentId string, _ ResourceSpec) (*Allocation, error) {
	return &Allocation{Id: "alloc-" + parentId}, nil
}

func (fakeSwarm) ReleaseResources(string, string) error {
	return nil
}

func (fakeSwarm) GetContext(string) map[string]any {
	return nil
}

type busyLockService struct{}

func (busyLockService) Acquire(key string, _ time.Duration, _ int) (Lock, error) {
	return nil, LockBusyError{Key: key}
}

type staticDecision struct {
	handle bool
	err    error
}

func (d staticDecision) Decide(DecisionContext) (Decision, error) {
	return Decision{ShouldHandle: d.handle}, d.err
}

type barrierRegistry struct{}

func (barrierRegistry) GetEventBehavior(string) EventBehavior {
	return EventBehavior{Interceptable: true, BlockOnFirst: true}
}

func invokeBot(id string, role model.BotRole, trigger string, behavior model.BotBehavior) *model.Bot {
	behavior.Trigger = trigger
	if behavior.Action.Type == "" {
		behavior.Action = model.BotAction{Type: model.BOT_ACTION_INVOKE, Name: "handler-" + id}
	}
	return &model.Bot{Id: id, Name: id, Role: role, Behaviors: []model.BotBehavior{behavior}}
}

func event(eventType string, data map[string]any) *model.ServiceEvent {
	return &model.ServiceEvent{Id: "evt-" + eventType, Type: eventType, Data: data, Timestamp: time.Now()}
}

func TestInterceptor(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, in *Interceptor, exec *fakeExecutor,
	){
		"test idempotent interception":       testIdempotentInterception,
		"test exclusive stops pipeline":      testExclusiveStopsPipeline,
		"test no matching bot continues":     testNoMatchContinues,
		"test priority ordering":             testPriorityOrdering,
		"test when guard":                    testWhenGuard,
		"test conditional progression":       testConditionalProgression,
		"test unregister removes bot":        testUnregisterRemovesBot,
		"test exact trigger outranks":        testExactTriggerOutranks,
		"test continue responses aggregated": testContinueResponsesAggregated,
		"test decision maker error blocks":   testDecisionMakerErrorBlocks,
		"test decision maker per bot":        testDecisionMakerPerBot,
		"test concurrent interception":       testConcurrentInterception,
	} {
		t.Run(scenario, func(t *testing.T) {
			exec := &fakeExecutor{}
			in := NewInterceptor(
				config.DefaultInterceptorConfig(),
				NewLocalLockService(time.Millisecond),
				expression.NewExprEvaluator(),
				WithSwarm(fakeSwarm{}, exec),
			)
			defer in.Close()

			fn(t, in, exec)
		})
	}
}

func testIdempotentInterception(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "payment/requested", model.BotBehavior{
		Progression: model.BEHAVIOR_PROGRESSION_BLOCK,
	}))
	evt := event("payment/requested", nil)

	first, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.True(t, first.Intercepted)
	require.Equal(t, model.PROGRESSION_BLOCK, first.Progression)
	require.NotNil(t, evt.Progression)

	second, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.Equal(t, first.Progression, second.Progression)
	require.Equal(t, first.Reason, second.Reason)
	require.Len(t, exec.executions(), 1)
}

func testExclusiveStopsPipeline(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("bot-a", model.BOT_ROLE_SPECIALIST, "task/created", model.BotBehavior{}))
	in.RegisterBot(invokeBot("bot-b", model.BOT_ROLE_SPECIALIST, "task/created", model.BotBehavior{Exclusive: true}))
	in.RegisterBot(invokeBot("bot-c", model.BOT_ROLE_SPECIALIST, "task/created", model.BotBehavior{}))

	result, err := in.CheckInterception(event("task/created", nil))
	require.NoError(t, err)
	require.Len(t, result.Responses, 2)
	require.Equal(t, []string{"handler-bot-a", "handler-bot-b"}, exec.executions())
}

func testNoMatchContinues(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "payment/#", model.BotBehavior{}))
	evt := event("inventory/updated", nil)

	result, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.False(t, result.Intercepted)
	require.Equal(t, model.PROGRESSION_CONTINUE, result.Progression)
	require.NotNil(t, evt.Progression)
	require.Empty(t, exec.executions())
}

func testPriorityOrdering(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("spec", model.BOT_ROLE_SPECIALIST, "order/#", model.BotBehavior{}))
	in.RegisterBot(invokeBot("coord", model.BOT_ROLE_COORDINATOR, "order/#", model.BotBehavior{}))
	in.RegisterBot(invokeBot("watch", model.BOT_ROLE_MONITOR, "order/#", model.BotBehavior{}))

	_, err := in.CheckInterception(event("order/placed", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"handler-coord", "handler-watch", "handler-spec"}, exec.executions())
}

func testWhenGuard(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "payment/requested", model.BotBehavior{
		When:        "${amount > 100}",
		Progression: model.BEHAVIOR_PROGRESSION_BLOCK,
	}))

	result, err := in.CheckInterception(event("payment/requested", map[string]any{"amount": 50}))
	require.NoError(t, err)
	require.False(t, result.Intercepted)
	require.Empty(t, result.Responses)
	require.Empty(t, exec.executions())
}

func testConditionalProgression(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("checker", model.BOT_ROLE_SPECIALIST, "deploy/requested", model.BotBehavior{
		Progression:           model.BEHAVIOR_PROGRESSION_CONDITIONAL,
		ProgressionExpression: `${result.status == "completed"}`,
	}))

	result, err := in.CheckInterception(event("deploy/requested", nil))
	require.NoError(t, err)
	require.True(t, result.Intercepted)
	require.Equal(t, model.PROGRESSION_CONTINUE, result.Progression)
	require.Len(t, exec.executions(), 1)
}

func testContinueResponsesAggregated(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("auditor", model.BOT_ROLE_SPECIALIST, "order/placed", model.BotBehavior{}))
	evt := event("order/placed", nil)

	result, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.True(t, result.Intercepted)
	require.Equal(t, model.PROGRESSION_CONTINUE, result.Progression)
	require.Len(t, result.Responses, 1)
	require.Contains(t, result.AggregatedData, "auditor")
	require.Equal(t, "completed", result.AggregatedData["auditor"]["status"])

	cached, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.True(t, cached.Intercepted)
	require.Equal(t, result.AggregatedData, cached.AggregatedData)
	require.Len(t, exec.executions(), 1)
}

func testDecisionMakerErrorBlocks(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBotWithDecisionMaker(invokeBot("flaky", model.BOT_ROLE_SPECIALIST, "deploy/requested", model.BotBehavior{}),
		staticDecision{err: errors.New("policy store unavailable")})

	result, err := in.CheckInterception(event("deploy/requested", nil))
	require.NoError(t, err)
	require.True(t, result.Intercepted)
	require.Equal(t, model.PROGRESSION_BLOCK, result.Progression)
	require.Len(t, result.Responses, 1)
	require.Equal(t, model.PROGRESSION_BLOCK, result.Responses[0].Progression)
	require.Equal(t, "Bot error during interception", result.Responses[0].Reason)
	require.Empty(t, exec.executions())
}

func testDecisionMakerPerBot(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBotWithDecisionMaker(invokeBot("abstainer", model.BOT_ROLE_SPECIALIST, "task/created", model.BotBehavior{}),
		staticDecision{handle: false})
	in.RegisterBot(invokeBot("worker", model.BOT_ROLE_SPECIALIST, "task/created", model.BotBehavior{}))

	result, err := in.CheckInterception(event("task/created", nil))
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Equal(t, "worker", result.Responses[0].BotId)
	require.Equal(t, []string{"handler-worker"}, exec.executions())
}

func testConcurrentInterception(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "payment/requested", model.BotBehavior{
		Progression: model.BEHAVIOR_PROGRESSION_BLOCK,
	}))
	evt := event("payment/requested", nil)

	var wg sync.WaitGroup
	results := make([]*InterceptionResult, 2)
	checkErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], checkErrs[i] = in.CheckInterception(evt)
		}(i)
	}
	wg.Wait()

	require.NoError(t, checkErrs[0])
	require.NoError(t, checkErrs[1])
	require.Equal(t, results[0].Progression, results[1].Progression)
	require.Equal(t, model.PROGRESSION_BLOCK, results[0].Progression)
	require.Len(t, exec.executions(), 1)
}

func testUnregisterRemovesBot(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "task/#", model.BotBehavior{}))
	require.Equal(t, 1, in.GetStats().RegisteredBots)

	in.UnregisterBot("guard")
	require.Equal(t, 0, in.GetStats().RegisteredBots)

	result, err := in.CheckInterception(event("task/created", nil))
	require.NoError(t, err)
	require.False(t, result.Intercepted)
	require.Empty(t, exec.executions())
}

func testExactTriggerOutranks(t *testing.T, in *Interceptor, exec *fakeExecutor) {
	in.RegisterBot(invokeBot("wildcard", model.BOT_ROLE_SPECIALIST, "order/#", model.BotBehavior{}))
	in.RegisterBot(invokeBot("exact", model.BOT_ROLE_SPECIALIST, "order/placed", model.BotBehavior{}))

	_, err := in.CheckInterception(event("order/placed", nil))
	require.NoError(t, err)
	require.Equal(t, []string{"handler-exact", "handler-wildcard"}, exec.executions())
}

func TestInterceptorBarriers(t *testing.T) {
	exec := &fakeExecutor{}
	in := NewInterceptor(
		config.DefaultInterceptorConfig(),
		NewLocalLockService(time.Millisecond),
		expression.NewExprEvaluator(),
		WithSwarm(fakeSwarm{}, exec),
		WithBehaviorRegistry(barrierRegistry{}),
	)
	defer in.Close()

	in.RegisterBot(invokeBot("bot-a", model.BOT_ROLE_SPECIALIST, "release/requested", model.BotBehavior{}))
	in.RegisterBot(invokeBot("bot-b", model.BOT_ROLE_SPECIALIST, "release/requested", model.BotBehavior{
		Progression: model.BEHAVIOR_PROGRESSION_BLOCK,
	}))
	in.RegisterBot(invokeBot("bot-c", model.BOT_ROLE_SPECIALIST, "release/requested", model.BotBehavior{}))

	result, err := in.CheckInterception(event("release/requested", nil))
	require.NoError(t, err)
	require.True(t, result.Intercepted)
	require.Len(t, result.Responses, 2)
	require.Equal(t, []string{"handler-bot-a", "handler-bot-b"}, exec.executions())
}

func TestInterceptorLockBusy(t *testing.T) {
	in := NewInterceptor(
		config.DefaultInterceptorConfig(),
		busyLockService{},
		expression.NewExprEvaluator(),
	)
	in.RegisterBot(invokeBot("guard", model.BOT_ROLE_SPECIALIST, "payment/#", model.BotBehavior{
		Progression: model.BEHAVIOR_PROGRESSION_BLOCK,
	}))

	evt := event("payment/requested", nil)
	result, err := in.CheckInterception(evt)
	require.NoError(t, err)
	require.False(t, result.Intercepted)
	require.Equal(t, model.PROGRESSION_CONTINUE, result.Progression)
	require.Nil(t, evt.Progression)
}
