package models

import "time"

// Event kinds published by the gateway.
const (
	EventBookingRequested    = "booking.requested"
	EventTaskCreated         = "task.created"
	EventConversationStarted = "conversation.started"
)

// Event is the Kafka payload for a user action performed through the gateway.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	UserEmail  string    `json:"user_email"`
	UserID     string    `json:"user_id,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	Reference  string    `json:"reference,omitempty"` // booking or conversation id
	Affected   []string  `json:"affected,omitempty"`  // user ids whose appointments changed
	OccurredAt time.Time `json:"occurred_at"`
}

// Activity is an event as stored in the activity table.
type Activity struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	UserEmail string    `json:"userEmail"`
	TaskID    string    `json:"taskId,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
