// internal/model/engagement_event.go
package model

import (
	"encoding/json"
	"time"
)

// Event types written to the email_events log.
const (
	EventOpen       = "open"
	EventClick      = "click"
	EventDelivered  = "delivered"
	EventSoftBounce = "soft_bounce"
	EventHardBounce = "hard_bounce"
	EventSpam       = "spam"
	EventInvalid    = "invalid_email"
	EventBlocked    = "blocked"
	EventReply      = "reply"
)

// EngagementEvent is an append-only log entry for one observed interaction
// with a sent email. Rows are never updated or deleted.
type EngagementEvent struct {
	ID         int             `db:"id" json:"id"`
	CampaignID int             `db:"campaign_id" json:"campaign_id"`
	EventType  string          `db:"event_type" json:"event_type"`
	IPAddress  string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string          `db:"user_agent" json:"user_agent,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Reply is a reply event joined with its campaign's agent fields, used by the
// replies reporting endpoints.
type Reply struct {
	PropertyAddress string    `json:"property_address"`
	AgentName       string    `json:"agent_name"`
	AgentEmail      string    `json:"agent_email"`
	AgentPhone      string    `json:"agent_phone"`
	ReplyDate       time.Time `json:"reply_date"`
	ReplyFrom       string    `json:"reply_from"`
	ReplySubject    string    `json:"reply_subject"`
	ReplyText       string    `json:"reply_text"`
}
