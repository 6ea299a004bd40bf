// Package events defines the event types flowing through the automation
// pipeline: dispatch events on the task bus and row events pushed to live
// observers.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event bus topic carrying automation dispatch events.
const Topic = "gridflow.automations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// AutomationTriggeredEvent is published when a rule matched a row
	// update and a worker should run the action.
	AutomationTriggeredEvent EventType = "automation.triggered"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent creates the common envelope for a bus event.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// AutomationTriggered asks a worker to run one rule against one row. The
// worker re-loads both by ID; either may have vanished since enqueue.
type AutomationTriggered struct {
	BaseEvent

	SheetID string `json:"sheet_id"`
	RuleID  string `json:"rule_id"`
	RowID   string `json:"row_id"`
}

func (a AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}
