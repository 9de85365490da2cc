// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrRunBusy is returned when an outreach run is requested while another run
// is still in progress. Callers treat it as a busy indicator, not a failure.
var ErrRunBusy = errors.New("outreach run already in progress")

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	TrackingToken string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with tracking token %q not found", e.TrackingToken)
}

// Helper constructor
func NewCampaignNotFound(token string) error {
	return &ErrCampaignNotFound{TrackingToken: token}
}
