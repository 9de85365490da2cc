// internal/model/campaign.go
package model

import (
	"encoding/json"
	"time"
)

// Campaign is one outreach attempt to one listing agent about one property.
// Engagement counters are mutated by the tracker through atomic SQL updates,
// never through this struct.
type Campaign struct {
	ID                      int             `db:"id" json:"id"`
	ListingURL              string          `db:"listing_url" json:"listing_url"`
	PropertyAddress         string          `db:"property_address" json:"property_address"`
	City                    string          `db:"city" json:"city"`
	State                   string          `db:"state" json:"state"`
	ZipCode                 string          `db:"zip_code" json:"zip_code"`
	ListingPrice            float64         `db:"listing_price" json:"listing_price"`
	AgentName               string          `db:"agent_name" json:"agent_name"`
	AgentEmail              string          `db:"agent_email" json:"agent_email"`
	AgentPhone              string          `db:"agent_phone" json:"agent_phone"`
	TrackingToken           string          `db:"tracking_token" json:"tracking_token"`
	EstimatedAnnualRevenue  float64         `db:"estimated_annual_revenue" json:"estimated_annual_revenue"`
	EstimatedMonthlyRevenue float64         `db:"estimated_monthly_revenue" json:"estimated_monthly_revenue"`
	AnalysisData            json.RawMessage `db:"analysis_data" json:"analysis_data,omitempty"`
	AnalysisRunAt           *time.Time      `db:"analysis_run_at" json:"analysis_run_at,omitempty"`
	ShareURL                string          `db:"share_url" json:"share_url"`
	EmailSent               bool            `db:"email_sent" json:"email_sent"`
	EmailSentAt             *time.Time      `db:"email_sent_at" json:"email_sent_at,omitempty"`
	EmailMessageID          string          `db:"email_message_id" json:"email_message_id,omitempty"`
	EmailOpened             bool            `db:"email_opened" json:"email_opened"`
	EmailOpenedAt           *time.Time      `db:"email_opened_at" json:"email_opened_at,omitempty"`
	EmailOpenCount          int             `db:"email_open_count" json:"email_open_count"`
	LinkClicked             bool            `db:"link_clicked" json:"link_clicked"`
	LinkClickedAt           *time.Time      `db:"link_clicked_at" json:"link_clicked_at,omitempty"`
	LinkClickCount          int             `db:"link_click_count" json:"link_click_count"`
	LastActivityAt          *time.Time      `db:"last_activity_at" json:"last_activity_at,omitempty"`
	CreatedAt               time.Time       `db:"created_at" json:"created_at"`
}
