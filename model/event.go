package model

import "time"

type Progression string

const PROGRESSION_CONTINUE Progression = "continue"
const PROGRESSION_BLOCK Progression = "block"

// ServiceEvent is a live runtime event delivered by the event bus. Progression,
// once populated with a final decision, acts as an idempotency cache for
// interception.
type ServiceEvent struct {
	Id          string
	Type        string
	Data        map[string]any
	Timestamp   time.Time
	Progression *EventProgression
	Metadata    map[string]any
}

type EventProgression struct {
	ProcessedBy   []ProcessedRecord
	FinalDecision Progression
	FinalReason   string
}

type ProcessedRecord struct {
	BotId     string
	Response  BotResponse
	Timestamp time.Time
}

type BotResponse struct {
	BotId       string
	Progression Progression
	Exclusive   bool
	Reason      string
	Data        map[string]any
}
