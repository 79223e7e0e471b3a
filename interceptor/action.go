package interceptor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/util"
	"go.uber.org/zap"
)

// executeAction carries out the behavior's action. Routine launches are
// fire-and-forget; invokes wait for the target up to InvokeTimeout; emits
// publish a derived event tagged with its origin.
func (in *Interceptor) executeAction(event *model.ServiceEvent, bot *model.Bot, behavior *model.BotBehavior) (map[string]any, error) {
	params := util.ResolveParams(in.evaluationContext(event, bot), behavior.Action.Params)
	switch behavior.Action.Type {
	case model.BOT_ACTION_ROUTINE:
		return in.startRoutine(bot, behavior.Action.Name, params)
	case model.BOT_ACTION_INVOKE:
		return in.invoke(behavior.Action.Name, params)
	case model.BOT_ACTION_EMIT:
		return in.emitDerived(event, bot, behavior.Action.Name, params)
	default:
		return nil, fmt.Errorf("unknown bot action type %s", behavior.Action.Type)
	}
}

func (in *Interceptor) startRoutine(bot *model.Bot, routine string, params map[string]any) (map[string]any, error) {
	if in.swarm == nil || in.tracker == nil {
		return nil, fmt.Errorf("no swarm manager configured for routine action %s", routine)
	}
	allocation, err := in.swarm.AllocateResources(bot.Id, ResourceSpec{Limits: map[string]any{"routine": routine}})
	if err != nil {
		return nil, fmt.Errorf("allocating resources for routine %s: %w", routine, err)
	}
	handle, err := in.tracker.Start(context.Background(), ExecutionRequest{
		ResourceVersionId: routine,
		Input:             params,
	}, bot.Id, allocation)
	if err != nil {
		return nil, fmt.Errorf("starting routine %s: %w", routine, err)
	}
	logger.Info("routine started by bot", zap.String("bot", bot.Id), zap.String("routine", routine), zap.String("execution", handle.Id))
	return map[string]any{"executionId": handle.Id, "status": "started"}, nil
}

func (in *Interceptor) invoke(name string, params map[string]any) (map[string]any, error) {
	if in.executor == nil {
		return nil, fmt.Errorf("no executor configured for invoke action %s", name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), in.conf.InvokeTimeout)
	defer cancel()
	handle, err := in.executor.Execute(ctx, ExecutionRequest{ResourceVersionId: name, Input: params})
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", name, err)
	}
	select {
	case err := <-handle.Done:
		if err != nil {
			return nil, fmt.Errorf("invoke %s failed: %w", name, err)
		}
		return map[string]any{"executionId": handle.Id, "status": "completed"}, nil
	case <-ctx.Done():
		if stopErr := in.executor.Stop(handle.Id, "invoke timeout"); stopErr != nil {
			logger.Error("error stopping timed out invoke", zap.String("execution", handle.Id), zap.Error(stopErr))
		}
		return nil, fmt.Errorf("invoke %s timed out after %s", name, in.conf.InvokeTimeout)
	}
}

func (in *Interceptor) emitDerived(source *model.ServiceEvent, bot *model.Bot, eventType string, params map[string]any) (map[string]any, error) {
	if in.emitter == nil {
		return nil, fmt.Errorf("no emitter configured for emit action %s", eventType)
	}
	derived := &model.ServiceEvent{
		Id:        uuid.New().String(),
		Type:      eventType,
		Data:      params,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"emittedBy":   bot.Id,
			"sourceEvent": source.Id,
		},
	}
	if err := in.emitter.Emit(derived); err != nil {
		return nil, fmt.Errorf("emitting %s: %w", eventType, err)
	}
	return map[string]any{"emittedEventId": derived.Id}, nil
}
