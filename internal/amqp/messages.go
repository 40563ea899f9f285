package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by ledger event messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Entities carried by ledger event messages.
const (
	EntityTransaction = "transaction"
	EntityStudent     = "student"
)

// LedgerEventMessage is a lightweight change notification. It carries only
// the entity reference; consumers fetch current state from the store.
type LedgerEventMessage struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(entity, id, action string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Entity:    entity,
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
