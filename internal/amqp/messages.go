package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record event types
const (
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
)

// RecordEvent announces a confirmed write to a personal record.
// It carries ids only; consumers read the record from storage if they need it.
type RecordEvent struct {
	Type      string    `json:"type"`
	RecordID  string    `json:"record_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(eventType, recordID, userID string) *RecordEvent {
	return &RecordEvent{
		Type:      eventType,
		RecordID:  recordID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects events no consumer can act on.
func (m *RecordEvent) Validate() error {
	switch m.Type {
	case EventRecordCreated, EventRecordUpdated, EventRecordDeleted:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.RecordID == "" || m.UserID == "" {
		return errors.New("event is missing record or user id")
	}
	return nil
}

// RecordEventFromJSON decodes and validates a message body.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
