// internal/handler/tracking_handler.go
package handler

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/staystra/outreach-backend/internal/repository"
	"github.com/staystra/outreach-backend/internal/service"
)

// 1x1 transparent GIF returned by the open-tracking endpoint.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7",
)

// TrackingHandler serves the first-party pixel and redirect endpoints. Both
// must produce a benign response even when tracking fails, so the surrounding
// email client or browser experience never breaks.
type TrackingHandler struct {
	Tracker     *service.Tracker
	Campaigns   repository.CampaignRepositoryInterface
	FallbackURL string
}

// Open records an email open and always answers with the pixel.
func (h *TrackingHandler) Open(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.Tracker.TrackOpen(token, clientIP(r), r.UserAgent()); err != nil {
		log.Println("⚠️ error tracking email open:", err)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// Click records a link click and redirects: to the url parameter when
// present, else the campaign's share URL, else the fallback site.
func (h *TrackingHandler) Click(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	target := r.URL.Query().Get("url")
	if decoded, err := url.QueryUnescape(target); err == nil {
		target = decoded
	}

	campaign, err := h.Tracker.TrackClick(token, clientIP(r), r.UserAgent())
	if err != nil {
		log.Println("⚠️ error tracking link click:", err)
	}

	switch {
	case target != "":
		http.Redirect(w, r, target, http.StatusFound)
	case campaign != nil && campaign.ShareURL != "":
		http.Redirect(w, r, campaign.ShareURL, http.StatusFound)
	default:
		http.Redirect(w, r, h.FallbackURL, http.StatusFound)
	}
}

// Stats returns the engagement aggregates for one campaign.
func (h *TrackingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	campaign, err := h.Campaigns.GetByTrackingToken(token)
	if err != nil {
		http.Error(w, "campaign not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"campaign": campaign,
	})
}

// clientIP prefers the X-Forwarded-For chain, falling back to the socket
// address without its port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
