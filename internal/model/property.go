// internal/model/property.go
package model

import (
	"encoding/json"
	"time"
)

// PropertyCandidate is a read-only projection of a scored analysis row joined
// with its cached listing record. It is sourced from the analysis store and
// never written back.
type PropertyCandidate struct {
	Address                 string          `db:"property_address" json:"property_address"`
	Score                   float64         `db:"score" json:"score"`
	ScoreNote               string          `db:"score_note" json:"score_note"`
	PropertyValue           float64         `db:"property_value" json:"property_value"`
	ProjectedRevenueTypical float64         `db:"projected_revenue_typical" json:"projected_revenue_typical"`
	ProjectedRevenueTop25   float64         `db:"projected_revenue_top_25" json:"projected_revenue_top_25"`
	CashOnCashReturn        float64         `db:"cash_on_cash_return" json:"cash_on_cash_return"`
	GrossYield              float64         `db:"gross_yield" json:"gross_yield"`
	DebtServiceCoverage     float64         `db:"debt_service_coverage_ratio" json:"debt_service_coverage_ratio"`
	GrossRentMultiplier     float64         `db:"gross_rent_multiplier" json:"gross_rent_multiplier"`
	AnalysisVersion         string          `db:"analysis_version" json:"analysis_version"`
	AnalyzedAt              time.Time       `db:"analysis_timestamp" json:"analysis_timestamp"`
	ListingData             json.RawMessage `db:"listing_data" json:"listing_data,omitempty"`
}

// AgentInfo is the raw listing-agent contact block pulled out of the cached
// listing JSON. Any field may be empty.
type AgentInfo struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipcode"`
}
