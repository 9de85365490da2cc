// internal/handler/webhook_handler.go
package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/staystra/outreach-backend/internal/contracts"
	"github.com/staystra/outreach-backend/internal/service"
)

// WebhookHandler ingests provider engagement events. It answers 200 to every
// request regardless of internal outcome, so a persistently failing event can
// never trigger a provider retry storm.
type WebhookHandler struct {
	Tracker *service.Tracker
}

// HandleProviderEvents accepts a batch of events (or a single event object)
// and processes each independently.
func (h *WebhookHandler) HandleProviderEvents(w http.ResponseWriter, r *http.Request) {
	defer func() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Println("⚠️ webhook: failed to read body:", err)
		return
	}

	var rawEvents []json.RawMessage
	if err := json.Unmarshal(body, &rawEvents); err != nil {
		// The provider sends single events as a bare object.
		rawEvents = []json.RawMessage{body}
	}

	for _, raw := range rawEvents {
		if err := contracts.ValidateProviderEvent(raw); err != nil {
			log.Println("⚠️ webhook: skipping malformed event:", err)
			continue
		}

		var ev service.ProviderEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Println("⚠️ webhook: failed to decode event:", err)
			continue
		}

		if err := h.Tracker.HandleProviderEvent(ev); err != nil {
			log.Println("⚠️ webhook: failed to process event:", err)
		}
	}
}
