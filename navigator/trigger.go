package navigator

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sosodev/duration"
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/graph"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

// isTriggered evaluates one event definition against the subroutine context.
// Message, signal, error and escalation triggers consume exactly one matching
// entry from the corresponding runtime-events queue.
func (n *BpmnNavigator) isTriggered(def *graph.EventDefinition, refNodeId string, sctx *model.SubroutineContext) bool {
	switch def.Kind {
	case graph.EVENT_DEF_TIMER:
		return n.timerDue(def, refNodeId, sctx)
	case graph.EVENT_DEF_MESSAGE:
		return sctx.ConsumeRuntimeEvent(model.RUNTIME_EVENT_MESSAGE, def.Ref)
	case graph.EVENT_DEF_SIGNAL:
		return sctx.ConsumeRuntimeEvent(model.RUNTIME_EVENT_SIGNAL, def.Ref)
	case graph.EVENT_DEF_ERROR:
		return sctx.ConsumeRuntimeEvent(model.RUNTIME_EVENT_ERROR, def.Ref)
	case graph.EVENT_DEF_ESCALATION:
		return sctx.ConsumeRuntimeEvent(model.RUNTIME_EVENT_ESCALATION, def.Ref)
	case graph.EVENT_DEF_CONDITIONAL:
		return expression.EvaluateBool(n.evaluator, def.Condition, sctx.Variables())
	default:
		logger.Warn("unknown event definition kind", zap.String("kind", string(def.Kind)))
		return false
	}
}

// timerDue checks whether a timer definition has elapsed. The reference time
// is the first moment the node was observed executing. Invalid durations,
// dates and cron expressions are logged and treated as not due; a broken timer
// must never crash navigation.
func (n *BpmnNavigator) timerDue(def *graph.EventDefinition, refNodeId string, sctx *model.SubroutineContext) bool {
	now := n.clock()
	start := sctx.MarkNodeStarted(refNodeId, now)
	switch {
	case len(def.Duration) > 0:
		d, err := duration.Parse(def.Duration)
		if err != nil {
			logger.Error("invalid timer duration", zap.String("duration", def.Duration), zap.Error(err))
			return false
		}
		return !now.Before(start.Add(d.ToTimeDuration()))
	case len(def.TimeDate) > 0:
		due, err := time.Parse(time.RFC3339, def.TimeDate)
		if err != nil {
			logger.Error("invalid timer date", zap.String("date", def.TimeDate), zap.Error(err))
			return false
		}
		return !now.Before(due)
	case len(def.TimeCycle) > 0:
		schedule, err := cron.ParseStandard(def.TimeCycle)
		if err != nil {
			logger.Error("invalid cron expression, treated as not due", zap.String("cycle", def.TimeCycle), zap.Error(err))
			return false
		}
		next := schedule.Next(n.inContextZone(start, sctx))
		return !now.Before(next)
	}
	return false
}

// inContextZone shifts the reference time into the context's timezone so cron
// occurrences line up with the run's locale.
func (n *BpmnNavigator) inContextZone(t time.Time, sctx *model.SubroutineContext) time.Time {
	if len(sctx.Timezone) == 0 {
		return t
	}
	loc, err := time.LoadLocation(sctx.Timezone)
	if err != nil {
		logger.Warn("unknown timezone in subroutine context", zap.String("timezone", sctx.Timezone))
		return t
	}
	return t.In(loc)
}
