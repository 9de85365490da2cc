package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/staystra/outreach-backend/internal/errors"
	"github.com/staystra/outreach-backend/internal/model"
)

// placeholderEmail marks campaigns created in dry runs; it must never be
// treated as a real resolved contact.
const placeholderEmail = "mock-agent@example.com"

type CampaignRepositoryInterface interface {
	// Campaign lifecycle
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	GetByTrackingToken(token string) (*model.Campaign, error)
	TokenByMessageID(messageID string) (string, error)
	MarkEmailSent(id int, messageID string) error

	// Engagement aggregates (atomic, safe under concurrent webhook delivery)
	RecordOpen(id int) error
	RecordClick(id int) error

	// Contact history
	FindPastEmailByPhone(phone string) (string, error)

	// Reporting
	Stats() (*OutreachStats, error)
	Recent(limit int) ([]model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// OutreachStats is the aggregate reporting row for all campaigns.
type OutreachStats struct {
	TotalCampaigns      int        `json:"total_campaigns"`
	EmailsSent          int        `json:"emails_sent"`
	EmailsOpened        int        `json:"emails_opened"`
	LinksClicked        int        `json:"links_clicked"`
	AvgAnnualRevenue    float64    `json:"avg_annual_revenue"`
	LastCampaignCreated *time.Time `json:"last_campaign_created,omitempty"`
}

const campaignColumns = `
	id, listing_url, property_address, city, state, zip_code, listing_price,
	agent_name, agent_email, agent_phone, tracking_token,
	estimated_annual_revenue, estimated_monthly_revenue,
	analysis_data, analysis_run_at, share_url,
	email_sent, email_sent_at, email_message_id,
	email_opened, email_opened_at, email_open_count,
	link_clicked, link_clicked_at, link_click_count,
	last_activity_at, created_at
`

// ====================== Campaign lifecycle ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	query := `
		INSERT INTO outreach_campaigns (
			listing_url, property_address, city, state, zip_code,
			listing_price, agent_name, agent_email, agent_phone,
			tracking_token, estimated_annual_revenue, estimated_monthly_revenue,
			analysis_data, analysis_run_at, share_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`
	return r.DB.QueryRow(query,
		c.ListingURL, c.PropertyAddress, c.City, c.State, c.ZipCode,
		c.ListingPrice, c.AgentName, c.AgentEmail, c.AgentPhone,
		c.TrackingToken, c.EstimatedAnnualRevenue, c.EstimatedMonthlyRevenue,
		c.AnalysisData, c.AnalysisRunAt, c.ShareURL, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT` + campaignColumns + `FROM outreach_campaigns WHERE id=$1`
	return r.scanOne(r.DB.QueryRow(query, id), "")
}

func (r *CampaignRepository) GetByTrackingToken(token string) (*model.Campaign, error) {
	query := `SELECT` + campaignColumns + `FROM outreach_campaigns WHERE tracking_token=$1`
	return r.scanOne(r.DB.QueryRow(query, token), token)
}

func (r *CampaignRepository) scanOne(row *sql.Row, token string) (*model.Campaign, error) {
	var c model.Campaign
	var messageID sql.NullString
	err := row.Scan(
		&c.ID, &c.ListingURL, &c.PropertyAddress, &c.City, &c.State, &c.ZipCode,
		&c.ListingPrice, &c.AgentName, &c.AgentEmail, &c.AgentPhone, &c.TrackingToken,
		&c.EstimatedAnnualRevenue, &c.EstimatedMonthlyRevenue,
		&c.AnalysisData, &c.AnalysisRunAt, &c.ShareURL,
		&c.EmailSent, &c.EmailSentAt, &messageID,
		&c.EmailOpened, &c.EmailOpenedAt, &c.EmailOpenCount,
		&c.LinkClicked, &c.LinkClickedAt, &c.LinkClickCount,
		&c.LastActivityAt, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(token)
		}
		return nil, err
	}
	c.EmailMessageID = messageID.String
	return &c, nil
}

// TokenByMessageID resolves a transport message id back to a tracking token.
// Returns "" when no campaign carries that message id.
func (r *CampaignRepository) TokenByMessageID(messageID string) (string, error) {
	var token string
	err := r.DB.QueryRow(
		`SELECT tracking_token FROM outreach_campaigns WHERE email_message_id=$1`,
		messageID,
	).Scan(&token)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return token, nil
}

func (r *CampaignRepository) MarkEmailSent(id int, messageID string) error {
	query := `
		UPDATE outreach_campaigns
		SET email_sent = true,
			email_sent_at = NOW(),
			email_message_id = $1
		WHERE id = $2
	`
	_, err := r.DB.Exec(query, messageID, id)
	return err
}

// ====================== Engagement aggregates ======================

// RecordOpen applies the open aggregate in a single statement: flag set, first
// timestamp via COALESCE, counter incremented unconditionally. Safe to race.
func (r *CampaignRepository) RecordOpen(id int) error {
	query := `
		UPDATE outreach_campaigns
		SET email_opened = true,
			email_opened_at = COALESCE(email_opened_at, NOW()),
			email_open_count = email_open_count + 1,
			last_activity_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.Exec(query, id)
	return err
}

func (r *CampaignRepository) RecordClick(id int) error {
	query := `
		UPDATE outreach_campaigns
		SET link_clicked = true,
			link_clicked_at = COALESCE(link_clicked_at, NOW()),
			link_click_count = link_click_count + 1,
			last_activity_at = NOW()
		WHERE id = $1
	`
	_, err := r.DB.Exec(query, id)
	return err
}

// ====================== Contact history ======================

// FindPastEmailByPhone returns a real email already used for this agent's
// phone in a prior campaign, or "" when none exists.
func (r *CampaignRepository) FindPastEmailByPhone(phone string) (string, error) {
	var email string
	err := r.DB.QueryRow(
		`SELECT DISTINCT agent_email
		 FROM outreach_campaigns
		 WHERE agent_phone = $1
		 AND agent_email IS NOT NULL
		 AND agent_email != $2
		 LIMIT 1`,
		phone, placeholderEmail,
	).Scan(&email)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return email, nil
}

// ====================== Reporting ======================

func (r *CampaignRepository) Stats() (*OutreachStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_campaigns,
			COUNT(CASE WHEN email_sent = true THEN 1 END) AS emails_sent,
			COUNT(CASE WHEN email_opened = true THEN 1 END) AS emails_opened,
			COUNT(CASE WHEN link_clicked = true THEN 1 END) AS links_clicked,
			COALESCE(ROUND(AVG(estimated_annual_revenue)), 0) AS avg_annual_revenue,
			MAX(created_at) AS last_campaign_created
		FROM outreach_campaigns
	`
	var s OutreachStats
	err := r.DB.QueryRow(query).Scan(
		&s.TotalCampaigns, &s.EmailsSent, &s.EmailsOpened, &s.LinksClicked,
		&s.AvgAnnualRevenue, &s.LastCampaignCreated,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CampaignRepository) Recent(limit int) ([]model.Campaign, error) {
	query := `
		SELECT property_address, agent_name, agent_email,
			   email_sent, email_opened, link_clicked,
			   estimated_annual_revenue, created_at
		FROM outreach_campaigns
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(
			&c.PropertyAddress, &c.AgentName, &c.AgentEmail,
			&c.EmailSent, &c.EmailOpened, &c.LinkClicked,
			&c.EstimatedAnnualRevenue, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
