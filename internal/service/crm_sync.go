// internal/service/crm_sync.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/staystra/outreach-backend/internal/model"
)

// CampaignReader loads a campaign by id for the CRM sync worker.
type CampaignReader interface {
	GetByID(id int) (*model.Campaign, error)
}

// CRMSyncer upserts the contacted agent into the CRM after a successful send.
// It runs from a queue consumer, in-process or via RabbitMQ, and is
// best-effort: a failure is retried by the queue and never affects the
// dispatch that produced it.
type CRMSyncer struct {
	Campaigns CampaignReader
	Directory ContactDirectory
}

func (s *CRMSyncer) Sync(campaignID int) error {
	campaign, err := s.Campaigns.GetByID(campaignID)
	if err != nil {
		return fmt.Errorf("failed to load campaign %d: %w", campaignID, err)
	}

	firstName, lastName := SplitName(campaign.AgentName)

	upsert := ContactUpsert{
		Email:            campaign.AgentEmail,
		FirstName:        firstName,
		LastName:         lastName,
		FullName:         campaign.AgentName,
		Phone:            campaign.AgentPhone,
		City:             campaign.City,
		State:            campaign.State,
		PropertyAddress:  campaign.PropertyAddress,
		PropertyValue:    campaign.ListingPrice,
		EstimatedRevenue: campaign.EstimatedAnnualRevenue,
		LastOutreachAt:   time.Now(),
	}
	if campaign.EmailSentAt != nil {
		upsert.LastOutreachAt = *campaign.EmailSentAt
	}

	return s.Directory.UpsertContact(context.Background(), upsert)
}
