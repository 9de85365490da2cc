// internal/service/candidate.go
package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/staystra/outreach-backend/internal/model"
)

// ValidateMetrics re-checks the "too good to be true" bounds on a candidate's
// financial metrics. The eligibility query applies the same bounds, but
// backing data can drift between the read and the send, so each item is
// validated again before a campaign is created. A zero value means the metric
// was absent and its check is skipped. Returns one message per violated bound.
func ValidateMetrics(c *model.PropertyCandidate) []string {
	var errs []string

	if c.CashOnCashReturn != 0 {
		if c.CashOnCashReturn > 0.50 {
			errs = append(errs, fmt.Sprintf("cash on cash return too high: %.1f%%", c.CashOnCashReturn*100))
		}
		if c.CashOnCashReturn <= 0.05 {
			errs = append(errs, fmt.Sprintf("cash on cash return too low: %.1f%%", c.CashOnCashReturn*100))
		}
	}

	if c.GrossYield != 0 {
		if c.GrossYield > 0.30 {
			errs = append(errs, fmt.Sprintf("gross yield too high: %.1f%%", c.GrossYield*100))
		}
		if c.GrossYield <= 0.05 {
			errs = append(errs, fmt.Sprintf("gross yield too low: %.1f%%", c.GrossYield*100))
		}
	}

	if c.ProjectedRevenueTypical != 0 && c.PropertyValue != 0 {
		ratio := c.ProjectedRevenueTypical / c.PropertyValue
		if ratio > 0.50 {
			errs = append(errs, fmt.Sprintf("revenue to price ratio too high: %.1f%%", ratio*100))
		}
	}

	if c.DebtServiceCoverage != 0 {
		if c.DebtServiceCoverage > 5.0 {
			errs = append(errs, fmt.Sprintf("DSCR too high: %.2f", c.DebtServiceCoverage))
		}
		if c.DebtServiceCoverage <= 0.8 {
			errs = append(errs, fmt.Sprintf("DSCR too low: %.2f", c.DebtServiceCoverage))
		}
	}

	if c.GrossRentMultiplier != 0 {
		if c.GrossRentMultiplier <= 5 {
			errs = append(errs, fmt.Sprintf("GRM too low: %.1f", c.GrossRentMultiplier))
		}
		if c.GrossRentMultiplier > 30 {
			errs = append(errs, fmt.Sprintf("GRM too high: %.1f", c.GrossRentMultiplier))
		}
	}

	return errs
}

// listingJSON is the subset of the cached listing payload the outreach flow
// reads. The rest of the payload is carried opaquely.
type listingJSON struct {
	ListingAgent struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"listingAgent"`
	Address struct {
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zipcode"`
	} `json:"address"`
	City  string `json:"city"`
	State string `json:"state"`
}

// ExtractAgentInfo pulls the listing-agent contact block out of the cached
// listing JSON. Missing fields come back empty.
func ExtractAgentInfo(listing json.RawMessage) model.AgentInfo {
	var l listingJSON
	if err := json.Unmarshal(listing, &l); err != nil {
		return model.AgentInfo{}
	}

	info := model.AgentInfo{
		Name:    l.ListingAgent.Name,
		Phone:   l.ListingAgent.Phone,
		City:    l.Address.City,
		State:   l.Address.State,
		ZipCode: l.Address.ZipCode,
	}
	if info.City == "" {
		info.City = l.City
	}
	if info.State == "" {
		info.State = l.State
	}
	return info
}

// NewTrackingToken returns a short, URL-safe, collision-resistant token used
// to correlate inbound engagement with a campaign.
func NewTrackingToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// BuildCampaign assembles the pre-send campaign record for a resolved
// candidate, including the tracking token, the analyzer share URL derived from
// the address, and an immutable snapshot of the analysis that justified the
// outreach.
func BuildCampaign(cand *model.PropertyCandidate, agent model.AgentInfo, email, analyzerBaseURL string) *model.Campaign {
	token := NewTrackingToken()
	shareURL := fmt.Sprintf("%s/analyzer/?a1=%s", strings.TrimRight(analyzerBaseURL, "/"), url.QueryEscape(cand.Address))

	snapshot, _ := json.Marshal(map[string]interface{}{
		"score":                     cand.Score,
		"score_note":                cand.ScoreNote,
		"analysis_version":          cand.AnalysisVersion,
		"projected_revenue_typical": cand.ProjectedRevenueTypical,
		"projected_revenue_top_25":  cand.ProjectedRevenueTop25,
	})

	analyzedAt := cand.AnalyzedAt
	c := &model.Campaign{
		// No listing URL is available from the analysis store; a synthetic
		// one keyed by the token keeps the column unique.
		ListingURL:             fmt.Sprintf("https://listings.invalid/property/%s", token),
		PropertyAddress:        cand.Address,
		City:                   agent.City,
		State:                  agent.State,
		ZipCode:                agent.ZipCode,
		ListingPrice:           cand.PropertyValue,
		AgentName:              agent.Name,
		AgentEmail:             email,
		AgentPhone:             agent.Phone,
		TrackingToken:          token,
		EstimatedAnnualRevenue: cand.ProjectedRevenueTop25,
		AnalysisData:           snapshot,
		AnalysisRunAt:          &analyzedAt,
		ShareURL:               shareURL,
	}
	if cand.ProjectedRevenueTop25 != 0 {
		c.EstimatedMonthlyRevenue = cand.ProjectedRevenueTop25 / 12
	}
	return c
}
