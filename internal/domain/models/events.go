package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

// Notification is a transient, user-visible outcome of an operation.
type Notification struct {
	ID        uuid.UUID         `json:"id"`
	Level     NotificationLevel `json:"level"`
	Op        string            `json:"op"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewNotification stamps a notification with a fresh id and time.
func NewNotification(level NotificationLevel, op, message string) Notification {
	return Notification{
		ID:        uuid.New(),
		Level:     level,
		Op:        op,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// ChangeAction describes a successful parameter mutation.
type ChangeAction string

const (
	ChangeSaved   ChangeAction = "saved"
	ChangeDeleted ChangeAction = "deleted"
)

// TickerChange is the audit record for one successful mutation.
type TickerChange struct {
	ID       uuid.UUID    `json:"id"`
	Strategy StrategyKind `json:"strategy"`
	Symbol   string       `json:"symbol"`
	Action   ChangeAction `json:"action"`
	Actor    string       `json:"actor"`
	Fields   []string     `json:"fields,omitempty"`
	// Row is the record in backend wire layout after the change.
	Row []string  `json:"row,omitempty"`
	At  time.Time `json:"at"`
}
