package interceptor

import (
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

// runPipeline invokes the matched bots in priority order. An exclusive
// response stops further bots; under a block-on-first barrier the first
// blocking response does the same.
func (in *Interceptor) runPipeline(event *model.ServiceEvent, matched []*registration, behavior EventBehavior) []model.BotResponse {
	var responses []model.BotResponse
	for _, reg := range matched {
		response, handled := in.processBotInterception(event, reg)
		if !handled {
			continue
		}
		responses = append(responses, response)
		if response.Exclusive {
			logger.Debug("exclusive bot response, stopping pipeline", zap.String("bot", reg.bot.Id), zap.String("event", event.Id))
			break
		}
		if behavior.BlockOnFirst && response.Progression == model.PROGRESSION_BLOCK {
			logger.Debug("block-on-first barrier hit, stopping pipeline", zap.String("bot", reg.bot.Id), zap.String("event", event.Id))
			break
		}
	}
	return responses
}

// processBotInterception runs one bot against the event. A panicking bot is
// contained and counts as a block, so a broken bot fails closed.
func (in *Interceptor) processBotInterception(event *model.ServiceEvent, reg *registration) (response model.BotResponse, handled bool) {
	bot := reg.bot
	defer func() {
		if r := recover(); r != nil {
			logger.Error("bot panicked during interception", zap.String("bot", bot.Id), zap.String("event", event.Id), zap.Any("panic", r))
			response = model.BotResponse{
				BotId:       bot.Id,
				Progression: model.PROGRESSION_BLOCK,
				Reason:      "Bot error during interception",
			}
			handled = true
		}
	}()

	behavior := firstMatchingBehavior(bot, event.Type)
	if behavior == nil {
		return model.BotResponse{}, false
	}
	evalCtx := in.evaluationContext(event, bot)
	if len(behavior.When) > 0 && !expression.EvaluateBool(in.evaluator, behavior.When, evalCtx) {
		return model.BotResponse{}, false
	}

	decision, err := in.decisionMakerFor(reg).Decide(DecisionContext{Event: event, Bot: bot, SwarmState: in.swarmState(bot)})
	if err != nil {
		// A failing decision maker blocks the event, the same as a panicking
		// bot or a failed action.
		logger.Error("decision maker error", zap.String("bot", bot.Id), zap.String("event", event.Id), zap.Error(err))
		return model.BotResponse{
			BotId:       bot.Id,
			Progression: model.PROGRESSION_BLOCK,
			Reason:      "Bot error during interception",
		}, true
	}
	if !decision.ShouldHandle {
		return model.BotResponse{}, false
	}

	actionData, actionErr := in.executeAction(event, bot, behavior)
	if actionErr != nil {
		logger.Error("bot action failed", zap.String("bot", bot.Id), zap.String("action", string(behavior.Action.Type)), zap.Error(actionErr))
		return model.BotResponse{
			BotId:       bot.Id,
			Progression: model.PROGRESSION_BLOCK,
			Exclusive:   behavior.Exclusive,
			Reason:      "Bot error during interception",
		}, true
	}

	progression, reason := in.behaviorProgression(behavior, evalCtx, actionData)
	return model.BotResponse{
		BotId:       bot.Id,
		Progression: progression,
		Exclusive:   behavior.Exclusive,
		Reason:      reason,
		Data:        actionData,
	}, true
}

// firstMatchingBehavior picks the bot's behavior for the event type, first
// declared match wins.
func firstMatchingBehavior(bot *model.Bot, eventType string) *model.BotBehavior {
	for i := range bot.Behaviors {
		if MatchTopic(bot.Behaviors[i].Trigger, eventType) {
			return &bot.Behaviors[i]
		}
	}
	return nil
}

func (in *Interceptor) evaluationContext(event *model.ServiceEvent, bot *model.Bot) map[string]any {
	evalCtx := map[string]any{
		"event": map[string]any{
			"id":        event.Id,
			"type":      event.Type,
			"data":      event.Data,
			"timestamp": event.Timestamp,
			"metadata":  event.Metadata,
		},
		"bot": map[string]any{
			"id":   bot.Id,
			"name": bot.Name,
			"role": string(bot.Role),
		},
	}
	for k, v := range event.Data {
		evalCtx[k] = v
	}
	return evalCtx
}

func (in *Interceptor) decisionMakerFor(reg *registration) DecisionMaker {
	if reg.decisions != nil {
		return reg.decisions
	}
	return in.decisions
}

func (in *Interceptor) swarmState(bot *model.Bot) map[string]any {
	if in.swarm == nil {
		return nil
	}
	return in.swarm.GetContext(bot.Id)
}

// behaviorProgression resolves the behavior's declared progression. The
// conditional form evaluates its expression with the action result bound to
// "result"; a truthy value lets the event continue.
func (in *Interceptor) behaviorProgression(behavior *model.BotBehavior, evalCtx map[string]any, actionData map[string]any) (model.Progression, string) {
	switch behavior.Progression {
	case model.BEHAVIOR_PROGRESSION_BLOCK:
		return model.PROGRESSION_BLOCK, "blocked by behavior on " + behavior.Trigger
	case model.BEHAVIOR_PROGRESSION_CONDITIONAL:
		condCtx := make(map[string]any, len(evalCtx)+1)
		for k, v := range evalCtx {
			condCtx[k] = v
		}
		condCtx["result"] = actionData
		if expression.EvaluateBool(in.evaluator, behavior.ProgressionExpression, condCtx) {
			return model.PROGRESSION_CONTINUE, ""
		}
		return model.PROGRESSION_BLOCK, "progression condition not met on " + behavior.Trigger
	default:
		return model.PROGRESSION_CONTINUE, ""
	}
}
