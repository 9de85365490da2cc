// internal/service/tracker.go
package service

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/staystra/outreach-backend/internal/model"
)

// TrackerCampaignStore is the campaign-side contract the tracker mutates
// through. RecordOpen/RecordClick must be atomic single-statement updates
// because webhook deliveries race the first-party pixel path.
type TrackerCampaignStore interface {
	GetByTrackingToken(token string) (*model.Campaign, error)
	TokenByMessageID(messageID string) (string, error)
	RecordOpen(id int) error
	RecordClick(id int) error
}

// EventStore appends to the engagement log.
type EventStore interface {
	Insert(campaignID int, eventType, ipAddress, userAgent string, metadata json.RawMessage) error
}

// ProviderEvent is one event from the email provider's webhook. Field names
// follow the provider's wire format.
type ProviderEvent struct {
	Event     string   `json:"event"`
	Email     string   `json:"email"`
	MessageID string   `json:"message-id"`
	Tags      []string `json:"tags"`
	Link      string   `json:"link"`
	Reason    string   `json:"reason"`
	IP        string   `json:"ip"`
	UserAgent string   `json:"user-agent"`
	From      string   `json:"from"`
	Subject   string   `json:"subject"`
	Text      string   `json:"text"`
	Date      string   `json:"date"`
}

// Tracker ingests engagement signals from the first-party pixel/redirect
// endpoints and the provider webhook, appends to the event log, and updates
// the campaign aggregates. Counters increment on every qualifying event with
// no deduplication by provider event id.
type Tracker struct {
	Campaigns TrackerCampaignStore
	Events    EventStore
}

// TrackOpen records a first-party pixel hit for a tracking token.
func (t *Tracker) TrackOpen(token, ipAddress, userAgent string) error {
	campaign, err := t.Campaigns.GetByTrackingToken(token)
	if err != nil {
		return err
	}

	if err := t.Campaigns.RecordOpen(campaign.ID); err != nil {
		return err
	}
	return t.Events.Insert(campaign.ID, model.EventOpen, ipAddress, userAgent, nil)
}

// TrackClick records a first-party redirect hit and returns the campaign so
// the handler can fall back to its share URL.
func (t *Tracker) TrackClick(token, ipAddress, userAgent string) (*model.Campaign, error) {
	campaign, err := t.Campaigns.GetByTrackingToken(token)
	if err != nil {
		return nil, err
	}

	if err := t.Campaigns.RecordClick(campaign.ID); err != nil {
		return nil, err
	}
	if err := t.Events.Insert(campaign.ID, model.EventClick, ipAddress, userAgent, nil); err != nil {
		return nil, err
	}
	return campaign, nil
}

// HandleProviderEvent absorbs one webhook event. Events without a resolvable
// tracking token are discarded with a log line, never retried. Errors are
// returned for logging only; the HTTP boundary answers success regardless.
func (t *Tracker) HandleProviderEvent(ev ProviderEvent) error {
	token, err := t.resolveToken(ev)
	if err != nil {
		return err
	}
	if token == "" {
		log.Printf("webhook: no tracking token found for event %q (message-id %q), discarding\n", ev.Event, ev.MessageID)
		return nil
	}

	campaign, err := t.Campaigns.GetByTrackingToken(token)
	if err != nil {
		log.Printf("webhook: campaign not found for tracking token %s\n", token)
		return nil
	}

	switch ev.Event {
	case "opened", "unique_opened":
		if err := t.Campaigns.RecordOpen(campaign.ID); err != nil {
			return err
		}
		return t.Events.Insert(campaign.ID, model.EventOpen, ev.IP, ev.UserAgent, nil)

	case "click":
		if err := t.Campaigns.RecordClick(campaign.ID); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]string{"url": ev.Link})
		return t.Events.Insert(campaign.ID, model.EventClick, ev.IP, ev.UserAgent, meta)

	case "delivered":
		return t.Events.Insert(campaign.ID, model.EventDelivered, "", "", nil)

	case "soft_bounce", "hard_bounce", "spam", "invalid_email", "blocked":
		meta, _ := json.Marshal(map[string]string{"reason": ev.Reason})
		return t.Events.Insert(campaign.ID, ev.Event, "", "", meta)

	case "reply":
		meta, _ := json.Marshal(map[string]string{
			"from":      ev.From,
			"subject":   ev.Subject,
			"text":      ev.Text,
			"timestamp": ev.Date,
		})
		return t.Events.Insert(campaign.ID, model.EventReply, "", "", meta)

	default:
		log.Printf("webhook: unrecognized event kind %q for token %s, ignoring\n", ev.Event, token)
		return nil
	}
}

// resolveToken finds the tracking token for a provider event, first from a
// tid- tag, then by looking up the campaign whose stored message id matches.
func (t *Tracker) resolveToken(ev ProviderEvent) (string, error) {
	for _, tag := range ev.Tags {
		if strings.HasPrefix(tag, "tid-") {
			return strings.TrimPrefix(tag, "tid-"), nil
		}
	}
	if ev.MessageID != "" {
		return t.Campaigns.TokenByMessageID(ev.MessageID)
	}
	return "", nil
}
