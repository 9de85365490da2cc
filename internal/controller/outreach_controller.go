// internal/controller/outreach_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/staystra/outreach-backend/internal/repository"
	"github.com/staystra/outreach-backend/internal/service"
)

type OutreachController struct {
	Runner       *service.Runner
	Scheduler    *service.Scheduler
	CampaignRepo repository.CampaignRepositoryInterface
	EventRepo    repository.EventRepositoryInterface
}

// Run starts an outreach batch if idle and returns immediately; it never
// blocks for completion.
func (c *OutreachController) Run(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit int `json:"limit"`
	}
	// An empty body means "use the default limit".
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Limit <= 0 {
		body.Limit = service.DefaultRunLimit
	}

	if !c.Runner.TryRun(context.Background(), body.Limit) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Job is already running",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Outreach job started",
		"limit":   body.Limit,
	})
}

func (c *OutreachController) Status(w http.ResponseWriter, r *http.Request) {
	schedule := "manual only"
	if c.Scheduler != nil {
		schedule = c.Scheduler.Schedule()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"status": map[string]interface{}{
			"is_running": c.Runner.IsRunning(),
			"state":      c.Runner.State().String(),
			"schedule":   schedule,
		},
	})
}

func (c *OutreachController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.CampaignRepo.Stats()
	if err != nil {
		httpError(w, err)
		return
	}

	recent, err := c.CampaignRepo.Recent(10)
	if err != nil {
		httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":         true,
		"stats":           stats,
		"recentCampaigns": recent,
	})
}

// CampaignByToken returns one campaign with its full engagement event log.
func (c *OutreachController) CampaignByToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	campaign, err := c.CampaignRepo.GetByTrackingToken(token)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Campaign not found",
		})
		return
	}

	events, err := c.EventRepo.ListByCampaign(campaign.ID)
	if err != nil {
		httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"campaign": campaign,
		"events":   events,
	})
}

func (c *OutreachController) Replies(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	replies, err := c.EventRepo.RecentReplies(days)
	if err != nil {
		httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"count":   len(replies),
		"replies": replies,
	})
}

func (c *OutreachController) ReplyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.EventRepo.ReplyStats()
	if err != nil {
		httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func httpError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": err.Error(),
	})
}
