package interceptor

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/waypoint-labs/waypoint/analytics"
	"github.com/waypoint-labs/waypoint/config"
	"github.com/waypoint-labs/waypoint/expression"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

const EXACT_TRIGGER_BONUS = 10

// EventBehavior lets the surrounding system mark whole event types as
// uninteresting or as first-blocker-wins barriers.
type EventBehavior struct {
	Interceptable bool
	BlockOnFirst  bool
}

type BehaviorRegistry interface {
	GetEventBehavior(eventType string) EventBehavior
}

// Aggregator folds the individual bot responses into the event's final
// decision once the pipeline has run.
type Aggregator interface {
	Aggregate(behavior EventBehavior, responses []model.BotResponse) (model.Progression, string)
}

type EventEmitter interface {
	Emit(event *model.ServiceEvent) error
}

type DecisionContext struct {
	Event      *model.ServiceEvent
	Bot        *model.Bot
	SwarmState map[string]any
}

type Decision struct {
	ShouldHandle bool
	Response     map[string]any
}

// DecisionMaker is the pluggable policy that decides whether a matched bot
// actually handles the event. The default handles everything.
type DecisionMaker interface {
	Decide(dc DecisionContext) (Decision, error)
}

// InterceptionResult reports the outcome of running an event through the
// registered bots. Intercepted is true when at least one bot responded,
// regardless of the final decision; AggregatedData collects each responding
// bot's data keyed by bot id and is nil when no bot produced any.
type InterceptionResult struct {
	Intercepted    bool
	Progression    model.Progression
	Reason         string
	Responses      []model.BotResponse
	AggregatedData map[string]map[string]any
}

type Stats struct {
	RegisteredBots    int
	EventsIntercepted int64
	EventsPassed      int64
	ActiveExecutions  int
}

type registration struct {
	bot       *model.Bot
	patterns  []string
	priority  int
	decisions DecisionMaker
}

// Interceptor routes live events through registered bots before the engine
// acts on them. Registration state is guarded by mu; interception of a given
// event is serialized by a distributed per-event lock.
type Interceptor struct {
	mu            sync.RWMutex
	registrations map[string]*registration
	byPattern     map[string][]*registration

	locks      LockService
	behaviors  BehaviorRegistry
	aggregator Aggregator
	evaluator  expression.Evaluator
	emitter    EventEmitter
	decisions  DecisionMaker
	swarm      SwarmContextManager
	executor   RoutineExecutor
	tracker    *ExecutionTracker
	conf       config.InterceptorConfig

	intercepted atomic.Int64
	passed      atomic.Int64
}

type Option func(*Interceptor)

func WithEmitter(emitter EventEmitter) Option {
	return func(in *Interceptor) { in.emitter = emitter }
}

func WithDecisionMaker(dm DecisionMaker) Option {
	return func(in *Interceptor) { in.decisions = dm }
}

func WithSwarm(swarm SwarmContextManager, executor RoutineExecutor) Option {
	return func(in *Interceptor) {
		in.swarm = swarm
		in.executor = executor
		in.tracker = NewExecutionTracker(executor, swarm)
	}
}

func WithBehaviorRegistry(reg BehaviorRegistry) Option {
	return func(in *Interceptor) { in.behaviors = reg }
}

func WithAggregator(agg Aggregator) Option {
	return func(in *Interceptor) { in.aggregator = agg }
}

func NewInterceptor(conf config.InterceptorConfig, locks LockService, evaluator expression.Evaluator, opts ...Option) *Interceptor {
	in := &Interceptor{
		registrations: make(map[string]*registration),
		byPattern:     make(map[string][]*registration),
		locks:         locks,
		evaluator:     evaluator,
		conf:          conf,
		behaviors:     allInterceptable{},
		aggregator:    &blockWinsAggregator{},
		decisions:     alwaysHandle{},
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// RegisterBot adds or replaces a bot. Subscription patterns come from the
// bot's explicit subscriptions plus its behavior triggers; a bot declaring
// neither gets role defaults. The bot participates through the interceptor's
// default decision maker.
func (in *Interceptor) RegisterBot(bot *model.Bot) {
	in.RegisterBotWithDecisionMaker(bot, nil)
}

// RegisterBotWithDecisionMaker registers a bot with its own participation
// policy. A nil decision maker falls back to the interceptor default.
func (in *Interceptor) RegisterBotWithDecisionMaker(bot *model.Bot, dm DecisionMaker) {
	reg := &registration{
		bot:       bot,
		patterns:  derivePatterns(bot),
		priority:  rolePriority(bot.Role),
		decisions: dm,
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, exists := in.registrations[bot.Id]; exists {
		in.removePatternsLocked(bot.Id)
	}
	in.registrations[bot.Id] = reg
	for _, pattern := range reg.patterns {
		in.byPattern[pattern] = append(in.byPattern[pattern], reg)
	}
	logger.Info("bot registered", zap.String("bot", bot.Id), zap.String("role", string(bot.Role)), zap.Strings("patterns", reg.patterns))
}

func (in *Interceptor) UnregisterBot(botId string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if _, exists := in.registrations[botId]; !exists {
		return
	}
	in.removePatternsLocked(botId)
	delete(in.registrations, botId)
	logger.Info("bot unregistered", zap.String("bot", botId))
}

func (in *Interceptor) removePatternsLocked(botId string) {
	reg := in.registrations[botId]
	for _, pattern := range reg.patterns {
		regs := in.byPattern[pattern]
		for i, candidate := range regs {
			if candidate.bot.Id == botId {
				in.byPattern[pattern] = append(regs[:i:i], regs[i+1:]...)
				break
			}
		}
		if len(in.byPattern[pattern]) == 0 {
			delete(in.byPattern, pattern)
		}
	}
}

func derivePatterns(bot *model.Bot) []string {
	seen := make(map[string]struct{})
	var patterns []string
	add := func(pattern string) {
		if len(pattern) == 0 {
			return
		}
		if _, dup := seen[pattern]; dup {
			return
		}
		seen[pattern] = struct{}{}
		patterns = append(patterns, pattern)
	}
	for _, sub := range bot.Subscriptions {
		add(sub)
	}
	for _, behavior := range bot.Behaviors {
		add(behavior.Trigger)
	}
	if len(patterns) > 0 {
		return patterns
	}
	switch bot.Role {
	case model.BOT_ROLE_COORDINATOR:
		return []string{"swarm/#", "coordination/#", "routine/lifecycle/#"}
	case model.BOT_ROLE_MONITOR:
		return []string{"#"}
	default:
		return []string{"#"}
	}
}

func rolePriority(role model.BotRole) int {
	switch role {
	case model.BOT_ROLE_COORDINATOR:
		return 100
	case model.BOT_ROLE_MONITOR:
		return 50
	case model.BOT_ROLE_SPECIALIST:
		return 25
	default:
		return 0
	}
}

// CheckInterception runs the event through every interested bot and records
// the final decision on the event itself. Calling it again for an event that
// already carries a final decision returns the recorded outcome unchanged.
func (in *Interceptor) CheckInterception(event *model.ServiceEvent) (*InterceptionResult, error) {
	behavior := in.behaviors.GetEventBehavior(event.Type)
	if !behavior.Interceptable {
		in.passed.Add(1)
		return &InterceptionResult{Intercepted: false, Progression: model.PROGRESSION_CONTINUE}, nil
	}

	lock, err := in.locks.Acquire("event:"+event.Id, in.conf.LockTTL, in.conf.LockRetries)
	if err != nil {
		logger.Warn("could not acquire event lock, letting event through", zap.String("event", event.Id), zap.Error(err))
		return &InterceptionResult{Intercepted: false, Progression: model.PROGRESSION_CONTINUE}, nil
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("error releasing event lock", zap.String("event", event.Id), zap.Error(err))
		}
	}()

	// An already decided event returns the recorded outcome unchanged. The
	// read happens under the per-event lock so it never races the write below
	// when callers share the event across goroutines.
	if result := cachedResult(event); result != nil {
		return result, nil
	}

	matched := in.matchBots(event)
	if len(matched) == 0 {
		event.Progression = &model.EventProgression{FinalDecision: model.PROGRESSION_CONTINUE}
		in.passed.Add(1)
		analytics.RecordInterception(event.Id, event.Type, string(model.PROGRESSION_CONTINUE), 0)
		return &InterceptionResult{Intercepted: false, Progression: model.PROGRESSION_CONTINUE}, nil
	}

	responses := in.runPipeline(event, matched, behavior)
	decision, reason := in.aggregator.Aggregate(behavior, responses)

	progression := &model.EventProgression{FinalDecision: decision, FinalReason: reason}
	now := time.Now()
	for _, response := range responses {
		progression.ProcessedBy = append(progression.ProcessedBy, model.ProcessedRecord{
			BotId:     response.BotId,
			Response:  response,
			Timestamp: now,
		})
	}
	event.Progression = progression

	if decision == model.PROGRESSION_BLOCK {
		in.intercepted.Add(1)
	} else {
		in.passed.Add(1)
	}
	analytics.RecordInterception(event.Id, event.Type, string(decision), len(responses))
	logger.Info("event interception decided", zap.String("event", event.Id), zap.String("type", event.Type),
		zap.String("decision", string(decision)), zap.Int("bots", len(responses)))
	return &InterceptionResult{
		Intercepted:    len(responses) > 0,
		Progression:    decision,
		Reason:         reason,
		Responses:      responses,
		AggregatedData: aggregateResponseData(responses),
	}, nil
}

func cachedResult(event *model.ServiceEvent) *InterceptionResult {
	if event.Progression == nil || len(event.Progression.FinalDecision) == 0 {
		return nil
	}
	result := &InterceptionResult{
		Progression: event.Progression.FinalDecision,
		Reason:      event.Progression.FinalReason,
	}
	for _, record := range event.Progression.ProcessedBy {
		result.Responses = append(result.Responses, record.Response)
	}
	result.Intercepted = len(result.Responses) > 0
	result.AggregatedData = aggregateResponseData(result.Responses)
	return result
}

func aggregateResponseData(responses []model.BotResponse) map[string]map[string]any {
	var aggregated map[string]map[string]any
	for _, response := range responses {
		if len(response.Data) == 0 {
			continue
		}
		if aggregated == nil {
			aggregated = make(map[string]map[string]any)
		}
		aggregated[response.BotId] = response.Data
	}
	return aggregated
}

// matchBots returns the registrations interested in the event, highest
// effective priority first. Ties break on bot id for a stable order.
func (in *Interceptor) matchBots(event *model.ServiceEvent) []*registration {
	in.mu.RLock()
	defer in.mu.RUnlock()
	seen := make(map[string]struct{})
	var matched []*registration
	bonuses := make(map[string]int)
	for pattern, regs := range in.byPattern {
		if !MatchTopic(pattern, event.Type) {
			continue
		}
		for _, reg := range regs {
			if _, dup := seen[reg.bot.Id]; dup {
				continue
			}
			seen[reg.bot.Id] = struct{}{}
			matched = append(matched, reg)
		}
	}
	for _, reg := range matched {
		for _, behavior := range reg.bot.Behaviors {
			if behavior.Trigger == event.Type {
				bonuses[reg.bot.Id] = EXACT_TRIGGER_BONUS
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		pi := matched[i].priority + bonuses[matched[i].bot.Id]
		pj := matched[j].priority + bonuses[matched[j].bot.Id]
		if pi != pj {
			return pi > pj
		}
		return strings.Compare(matched[i].bot.Id, matched[j].bot.Id) < 0
	})
	return matched
}

func (in *Interceptor) GetStats() Stats {
	in.mu.RLock()
	registered := len(in.registrations)
	in.mu.RUnlock()
	stats := Stats{
		RegisteredBots:    registered,
		EventsIntercepted: in.intercepted.Load(),
		EventsPassed:      in.passed.Load(),
	}
	if in.tracker != nil {
		stats.ActiveExecutions = in.tracker.Active()
	}
	return stats
}

// StopAllActiveExecutions halts every routine started through interception.
func (in *Interceptor) StopAllActiveExecutions(reason string) error {
	if in.tracker == nil {
		return nil
	}
	return in.tracker.StopAll(reason)
}

func (in *Interceptor) Close() {
	if in.tracker != nil {
		in.tracker.Close()
	}
}

type allInterceptable struct{}

func (allInterceptable) GetEventBehavior(string) EventBehavior {
	return EventBehavior{Interceptable: true}
}

type alwaysHandle struct{}

func (alwaysHandle) Decide(DecisionContext) (Decision, error) {
	return Decision{ShouldHandle: true}, nil
}

// blockWinsAggregator lets any single block response block the event.
type blockWinsAggregator struct{}

func (blockWinsAggregator) Aggregate(_ EventBehavior, responses []model.BotResponse) (model.Progression, string) {
	for _, response := range responses {
		if response.Progression == model.PROGRESSION_BLOCK {
			reason := response.Reason
			if len(reason) == 0 {
				reason = "blocked by bot " + response.BotId
			}
			return model.PROGRESSION_BLOCK, reason
		}
	}
	return model.PROGRESSION_CONTINUE, ""
}
