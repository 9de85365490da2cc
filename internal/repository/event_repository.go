package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/staystra/outreach-backend/internal/model"
)

// EventRepositoryInterface is the append-only engagement log.
type EventRepositoryInterface interface {
	Insert(campaignID int, eventType, ipAddress, userAgent string, metadata json.RawMessage) error
	ListByCampaign(campaignID int) ([]model.EngagementEvent, error)
	RecentReplies(days int) ([]model.Reply, error)
	ReplyStats() (*ReplyStats, error)
}

type EventRepository struct {
	DB *sql.DB
}

// ReplyStats summarizes reply events across all campaigns.
type ReplyStats struct {
	CampaignsWithReplies int        `json:"total_campaigns_with_replies"`
	TotalReplies         int        `json:"total_replies"`
	FirstReply           *time.Time `json:"first_reply,omitempty"`
	LatestReply          *time.Time `json:"latest_reply,omitempty"`
}

func (r *EventRepository) Insert(campaignID int, eventType, ipAddress, userAgent string, metadata json.RawMessage) error {
	query := `
		INSERT INTO email_events (campaign_id, event_type, ip_address, user_agent, metadata)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
	`
	var meta interface{}
	if len(metadata) > 0 {
		meta = []byte(metadata)
	}
	_, err := r.DB.Exec(query, campaignID, eventType, ipAddress, userAgent, meta)
	return err
}

func (r *EventRepository) ListByCampaign(campaignID int) ([]model.EngagementEvent, error) {
	query := `
		SELECT id, campaign_id, event_type, COALESCE(ip_address, ''), COALESCE(user_agent, ''), metadata, created_at
		FROM email_events
		WHERE campaign_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.EngagementEvent{}
	for rows.Next() {
		var e model.EngagementEvent
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.EventType, &e.IPAddress, &e.UserAgent, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// RecentReplies joins reply events with their campaign's agent fields for the
// replies report.
func (r *EventRepository) RecentReplies(days int) ([]model.Reply, error) {
	query := `
		SELECT
			c.property_address,
			c.agent_name,
			c.agent_email,
			c.agent_phone,
			e.created_at AS reply_date,
			COALESCE(e.metadata->>'from', '') AS reply_from,
			COALESCE(e.metadata->>'subject', '') AS reply_subject,
			COALESCE(e.metadata->>'text', '') AS reply_text
		FROM email_events e
		JOIN outreach_campaigns c ON c.id = e.campaign_id
		WHERE e.event_type = 'reply'
		AND e.created_at >= NOW() - make_interval(days => $1)
		ORDER BY e.created_at DESC
	`
	rows, err := r.DB.Query(query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []model.Reply{}
	for rows.Next() {
		var rep model.Reply
		if err := rows.Scan(
			&rep.PropertyAddress, &rep.AgentName, &rep.AgentEmail, &rep.AgentPhone,
			&rep.ReplyDate, &rep.ReplyFrom, &rep.ReplySubject, &rep.ReplyText,
		); err != nil {
			return nil, err
		}
		replies = append(replies, rep)
	}
	return replies, rows.Err()
}

func (r *EventRepository) ReplyStats() (*ReplyStats, error) {
	query := `
		SELECT
			COUNT(DISTINCT c.id) AS total_campaigns_with_replies,
			COUNT(e.id) AS total_replies,
			MIN(e.created_at) AS first_reply,
			MAX(e.created_at) AS latest_reply
		FROM email_events e
		JOIN outreach_campaigns c ON c.id = e.campaign_id
		WHERE e.event_type = 'reply'
	`
	var s ReplyStats
	if err := r.DB.QueryRow(query).Scan(&s.CampaignsWithReplies, &s.TotalReplies, &s.FirstReply, &s.LatestReply); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
