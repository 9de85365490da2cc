package repository

import (
	"database/sql"

	"github.com/staystra/outreach-backend/internal/model"
)

// PropertyRepositoryInterface defines the read side of the analysis store.
type PropertyRepositoryInterface interface {
	SelectEligible(limit int, scoreThreshold float64) ([]model.PropertyCandidate, error)
}

type PropertyRepository struct {
	DB *sql.DB
}

// SelectEligible returns the most recent analysis per unique address for
// properties that clear the score threshold, were analyzed in the last 24
// hours, carry listing-agent info, look like a real US address, pass the
// "too good to be true" metric bounds, and have not already received a sent
// campaign. A query failure is fatal to the run and is propagated as-is.
func (r *PropertyRepository) SelectEligible(limit int, scoreThreshold float64) ([]model.PropertyCandidate, error) {
	query := `
		SELECT DISTINCT ON (a.property_address)
			a.property_address,
			a.score,
			a.score_note,
			a.list_price AS property_value,
			a.revenue_median AS projected_revenue_typical,
			a.revenue_top_25 AS projected_revenue_top_25,
			a.coc_return AS cash_on_cash_return,
			a.gross_yield,
			a.dscr AS debt_service_coverage_ratio,
			a.grm AS gross_rent_multiplier,
			a.analysis_version,
			a.analysis_timestamp,
			l.listing_data
		FROM property_analysis a
		LEFT JOIN listing_cache l ON l.address = a.property_address
		WHERE a.score > $1
		AND l.listing_data IS NOT NULL
		AND l.listing_data->'listingAgent' IS NOT NULL
		AND a.analysis_timestamp >= NOW() - INTERVAL '24 hours'
		-- US address validation: must carry a state code and ZIP, and a
		-- plausible street number
		AND a.property_address ~ ', [A-Z]{2} [0-9]{5}'
		AND a.property_address NOT LIKE '0 %'
		AND a.property_address NOT LIKE '00 %'
		AND (l.listing_data->>'state')::text IN (
			'AL', 'AK', 'AZ', 'AR', 'CA', 'CO', 'CT', 'DE', 'FL', 'GA',
			'HI', 'ID', 'IL', 'IN', 'IA', 'KS', 'KY', 'LA', 'ME', 'MD',
			'MA', 'MI', 'MN', 'MS', 'MO', 'MT', 'NE', 'NV', 'NH', 'NJ',
			'NM', 'NY', 'NC', 'ND', 'OH', 'OK', 'OR', 'PA', 'RI', 'SC',
			'SD', 'TN', 'TX', 'UT', 'VT', 'VA', 'WA', 'WV', 'WI', 'WY'
		)
		-- Data quality: exclude "too good to be true" metrics
		AND a.coc_return <= 0.50
		AND a.coc_return > 0.05
		AND a.gross_yield <= 0.30
		AND a.gross_yield > 0.05
		AND a.dscr <= 5.0
		AND a.dscr > 0.8
		AND a.list_price >= 50000
		AND a.list_price < 5000000
		AND a.revenue_median > 10000
		AND a.revenue_median < a.list_price * 0.5
		AND a.grm > 5
		AND a.grm <= 30
		AND NOT EXISTS (
			SELECT 1 FROM outreach_campaigns c
			WHERE c.property_address = a.property_address
			AND c.email_sent = true
		)
		ORDER BY a.property_address, a.analysis_timestamp DESC
		LIMIT $2
	`

	rows, err := r.DB.Query(query, scoreThreshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []model.PropertyCandidate{}
	for rows.Next() {
		var c model.PropertyCandidate
		var scoreNote, version sql.NullString
		if err := rows.Scan(
			&c.Address, &c.Score, &scoreNote, &c.PropertyValue,
			&c.ProjectedRevenueTypical, &c.ProjectedRevenueTop25,
			&c.CashOnCashReturn, &c.GrossYield, &c.DebtServiceCoverage,
			&c.GrossRentMultiplier, &version, &c.AnalyzedAt, &c.ListingData,
		); err != nil {
			return nil, err
		}
		c.ScoreNote = scoreNote.String
		c.AnalysisVersion = version.String
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

var _ PropertyRepositoryInterface = (*PropertyRepository)(nil)
