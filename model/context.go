package model

import (
	"sync"
	"time"
)

type RuntimeEventType string

const RUNTIME_EVENT_MESSAGE RuntimeEventType = "MESSAGE"
const RUNTIME_EVENT_SIGNAL RuntimeEventType = "SIGNAL"
const RUNTIME_EVENT_ERROR RuntimeEventType = "ERROR"
const RUNTIME_EVENT_ESCALATION RuntimeEventType = "ESCALATION"

// SubroutineContext carries all per-execution mutable state a navigator reads
// and updates: node start timestamps, already-triggered boundary event ids,
// queues of pending runtime events and the input/output variable maps.
type SubroutineContext struct {
	mu sync.Mutex

	Id       string
	Locale   string
	Timezone string

	nodeStartTimes  map[string]time.Time
	triggeredEvents map[string]struct{}
	runtimeEvents   map[RuntimeEventType][]string

	Input  map[string]any
	Output map[string]any
}

func NewSubroutineContext(id string) *SubroutineContext {
	return &SubroutineContext{
		Id:              id,
		nodeStartTimes:  make(map[string]time.Time),
		triggeredEvents: make(map[string]struct{}),
		runtimeEvents:   make(map[RuntimeEventType][]string),
		Input:           make(map[string]any),
		Output:          make(map[string]any),
	}
}

// MarkNodeStarted records the first time a node was observed executing. Later
// calls for the same node keep the original timestamp.
func (c *SubroutineContext) MarkNodeStarted(nodeId string, at time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if started, ok := c.nodeStartTimes[nodeId]; ok {
		return started
	}
	c.nodeStartTimes[nodeId] = at
	return at
}

func (c *SubroutineContext) NodeStartTime(nodeId string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.nodeStartTimes[nodeId]
	return t, ok
}

func (c *SubroutineContext) IsEventTriggered(eventId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.triggeredEvents[eventId]
	return ok
}

func (c *SubroutineContext) MarkEventTriggered(eventId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggeredEvents[eventId] = struct{}{}
}

func (c *SubroutineContext) EnqueueRuntimeEvent(kind RuntimeEventType, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtimeEvents[kind] = append(c.runtimeEvents[kind], name)
}

// ConsumeRuntimeEvent removes exactly one matching entry from the queue of the
// given kind. Returns false if no entry matches.
func (c *SubroutineContext) ConsumeRuntimeEvent(kind RuntimeEventType, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.runtimeEvents[kind]
	for i, entry := range queue {
		if entry == name {
			c.runtimeEvents[kind] = append(queue[:i:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

func (c *SubroutineContext) PendingRuntimeEvents(kind RuntimeEventType) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.runtimeEvents[kind]
	out := make([]string, len(queue))
	copy(out, queue)
	return out
}

// Variables returns the merged input and output variable map. Outputs win on
// name collision.
func (c *SubroutineContext) Variables() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	merged := make(map[string]any, len(c.Input)+len(c.Output))
	for k, v := range c.Input {
		merged[k] = v
	}
	for k, v := range c.Output {
		merged[k] = v
	}
	return merged
}

func (c *SubroutineContext) SetInput(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Input[name] = value
}

func (c *SubroutineContext) SetOutput(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Output[name] = value
}
