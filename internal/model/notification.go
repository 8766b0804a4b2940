package model

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies a delivery channel. Each channel has its own
// notification table and its own sender client.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Channels lists all delivery channels in fan-out order.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelSMS}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelPush, ChannelEmail, ChannelSMS:
		return true
	}
	return false
}

// Status is the lifecycle state of a notification record.
//
// Transitions: scheduled -> processing -> sent | failed | scheduled (retry);
// scheduled -> cancelled. sent, failed and cancelled are terminal.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed || s == StatusCancelled
}

// Category selects the message template family for a reminder.
type Category string

const (
	CategoryHardware     Category = "hardware"
	CategorySoftware     Category = "software"
	CategorySubscription Category = "subscription"
	CategoryTest         Category = "test"
	CategoryGeneral      Category = "general"
)

// Notification represents a scheduled reminder delivery on one channel.
type Notification struct {
	ID           uuid.UUID `json:"id"`
	Channel      Channel   `json:"channel"`       // filled in on reads, implied by the table
	OwnerID      string    `json:"owner_id"`      // user the reminder belongs to
	SubjectID    string    `json:"subject_id"`    // inventory item id, opaque to the engine
	SubjectLabel string    `json:"subject_label"` // display name for message composition
	Category     Category  `json:"category"`
	Kind         string    `json:"kind"` // free-form intent tag, e.g. "warranty_expiration"
	DueAt        time.Time `json:"due_at"`
	// Contacts holds the channel destination: device tokens for push,
	// a single email address or phone number otherwise.
	Contacts     []string   `json:"contacts"`
	LeadDays     int        `json:"lead_days"`
	Status       Status     `json:"status"`
	AttemptCount int        `json:"attempt_count"`
	AttemptLimit int        `json:"attempt_limit"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}
