package model

type BotRole string

const BOT_ROLE_COORDINATOR BotRole = "coordinator"
const BOT_ROLE_MONITOR BotRole = "monitor"
const BOT_ROLE_SPECIALIST BotRole = "specialist"

type BotActionType string

const BOT_ACTION_ROUTINE BotActionType = "routine"
const BOT_ACTION_INVOKE BotActionType = "invoke"
const BOT_ACTION_EMIT BotActionType = "emit"

type BehaviorProgression string

const BEHAVIOR_PROGRESSION_BLOCK BehaviorProgression = "block"
const BEHAVIOR_PROGRESSION_CONDITIONAL BehaviorProgression = "conditional"

type Bot struct {
	Id            string
	Name          string
	Role          BotRole
	Subscriptions []string
	Behaviors     []BotBehavior
}

// BotBehavior binds a topic trigger to an action. The first behavior whose
// trigger matches an incoming event type wins, in declaration order.
type BotBehavior struct {
	Trigger               string
	When                  string
	Action                BotAction
	Progression           BehaviorProgression
	ProgressionExpression string
	Exclusive             bool
}

type BotAction struct {
	Type   BotActionType
	Name   string
	Params map[string]any
}
