// internal/service/dispatcher.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/staystra/outreach-backend/internal/model"
	"github.com/staystra/outreach-backend/internal/queue"
)

// OutboundEmail is the rendered message handed to the transport.
type OutboundEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    []string
}

// EmailTransport hands a rendered message to the email provider and returns
// the provider-assigned message id.
type EmailTransport interface {
	SendEmail(ctx context.Context, msg OutboundEmail) (string, error)
}

// DeliveryStore records the post-send delivery metadata on a campaign.
type DeliveryStore interface {
	MarkEmailSent(id int, messageID string) error
}

// CRMSyncTopic is the queue topic carrying campaign ids whose contacts need a
// CRM upsert.
const CRMSyncTopic = "crm_sync"

// Dispatcher renders and sends the outreach email for a campaign. The
// transport is invoked exactly once per call; retries belong to the caller.
type Dispatcher struct {
	Transport EmailTransport
	Store     DeliveryStore
	Queue     queue.Queue
	BaseURL   string // public base URL embedded in tracking links
	TestMode  bool
	TestEmail string
}

// Send renders the email, invokes the transport, and on success persists the
// delivery metadata and queues a best-effort CRM sync. A transport failure is
// returned without mutating the campaign, leaving it eligible for a retry.
func (d *Dispatcher) Send(ctx context.Context, c *model.Campaign) (string, error) {
	subject, html, text := RenderOutreachEmail(c, d.BaseURL, d.TestMode)

	recipient := c.AgentEmail
	if d.TestMode {
		recipient = d.TestEmail
	}

	var score float64
	if c.AnalysisData != nil {
		score = analysisScore(c.AnalysisData)
	}

	msg := OutboundEmail{
		To:      recipient,
		Subject: subject,
		HTML:    html,
		Text:    text,
		Tags: []string{
			"str-outreach",
			"high-score-property",
			fmt.Sprintf("score-%.0f", score),
			"tid-" + c.TrackingToken,
		},
	}

	messageID, err := d.Transport.SendEmail(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", recipient, err)
	}

	if err := d.Store.MarkEmailSent(c.ID, messageID); err != nil {
		return "", fmt.Errorf("email sent but failed to record delivery: %w", err)
	}
	c.EmailSent = true
	now := time.Now()
	c.EmailSentAt = &now
	c.EmailMessageID = messageID

	log.Printf("✅ Email sent to %s (%s)\n", recipient, sendMode(d.TestMode))

	// Best-effort CRM sync; a publish failure must not fail the dispatch.
	if d.Queue != nil {
		if err := d.Queue.Publish(CRMSyncTopic, c.ID); err != nil {
			log.Println("⚠️ failed to queue CRM sync for campaign", c.ID, ":", err)
		}
	}

	return messageID, nil
}

func analysisScore(raw json.RawMessage) float64 {
	var snap struct {
		Score float64 `json:"score"`
	}
	_ = json.Unmarshal(raw, &snap)
	return snap.Score
}

func sendMode(testMode bool) string {
	if testMode {
		return "TEST MODE"
	}
	return "LIVE"
}
