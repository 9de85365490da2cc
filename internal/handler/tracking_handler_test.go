package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/staystra/outreach-backend/internal/errors"
	"github.com/staystra/outreach-backend/internal/handler"
	"github.com/staystra/outreach-backend/internal/model"
	"github.com/staystra/outreach-backend/internal/repository"
	"github.com/staystra/outreach-backend/internal/service"
)

// --- Mock Repositories ---

// MockCampaignRepo keeps campaigns keyed by tracking token and mirrors the
// aggregate update semantics of the SQL store.
type MockCampaignRepo struct {
	byToken map[string]*model.Campaign
}

func NewMockCampaignRepo(campaigns ...*model.Campaign) *MockCampaignRepo {
	m := &MockCampaignRepo{byToken: map[string]*model.Campaign{}}
	for _, c := range campaigns {
		m.byToken[c.TrackingToken] = c
	}
	return m
}

func (m *MockCampaignRepo) Create(c *model.Campaign) error { return nil }

func (m *MockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	for _, c := range m.byToken {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound("")
}

func (m *MockCampaignRepo) GetByTrackingToken(token string) (*model.Campaign, error) {
	if c, ok := m.byToken[token]; ok {
		return c, nil
	}
	return nil, appErrors.NewCampaignNotFound(token)
}

func (m *MockCampaignRepo) TokenByMessageID(messageID string) (string, error) {
	for token, c := range m.byToken {
		if c.EmailMessageID == messageID {
			return token, nil
		}
	}
	return "", nil
}

func (m *MockCampaignRepo) MarkEmailSent(id int, messageID string) error { return nil }

func (m *MockCampaignRepo) RecordOpen(id int) error {
	c, err := m.GetByID(id)
	if err != nil {
		return err
	}
	c.EmailOpened = true
	if c.EmailOpenedAt == nil {
		now := time.Now()
		c.EmailOpenedAt = &now
	}
	c.EmailOpenCount++
	return nil
}

func (m *MockCampaignRepo) RecordClick(id int) error {
	c, err := m.GetByID(id)
	if err != nil {
		return err
	}
	c.LinkClicked = true
	if c.LinkClickedAt == nil {
		now := time.Now()
		c.LinkClickedAt = &now
	}
	c.LinkClickCount++
	return nil
}

func (m *MockCampaignRepo) FindPastEmailByPhone(phone string) (string, error) { return "", nil }

func (m *MockCampaignRepo) Stats() (*repository.OutreachStats, error) {
	return &repository.OutreachStats{TotalCampaigns: len(m.byToken)}, nil
}

func (m *MockCampaignRepo) Recent(limit int) ([]model.Campaign, error) {
	return []model.Campaign{}, nil
}

var _ repository.CampaignRepositoryInterface = (*MockCampaignRepo)(nil)

type MockEventRepo struct {
	inserted int
}

func (m *MockEventRepo) Insert(campaignID int, eventType, ipAddress, userAgent string, metadata json.RawMessage) error {
	m.inserted++
	return nil
}

func (m *MockEventRepo) ListByCampaign(campaignID int) ([]model.EngagementEvent, error) {
	return []model.EngagementEvent{}, nil
}

func (m *MockEventRepo) RecentReplies(days int) ([]model.Reply, error) {
	return []model.Reply{}, nil
}

func (m *MockEventRepo) ReplyStats() (*repository.ReplyStats, error) {
	return &repository.ReplyStats{}, nil
}

var _ repository.EventRepositoryInterface = (*MockEventRepo)(nil)

func newTrackingRouter(repo *MockCampaignRepo, events *MockEventRepo) *chi.Mux {
	h := &handler.TrackingHandler{
		Tracker:     &service.Tracker{Campaigns: repo, Events: events},
		Campaigns:   repo,
		FallbackURL: "https://www.staystra.com",
	}
	r := chi.NewRouter()
	r.Get("/api/tracking/open/{token}", h.Open)
	r.Get("/api/tracking/click/{token}", h.Click)
	r.Get("/api/tracking/stats/{token}", h.Stats)
	return r
}

// --- Tests ---

func TestOpenServesPixel(t *testing.T) {
	campaign := &model.Campaign{ID: 1, TrackingToken: "abc123def4"}
	repo := NewMockCampaignRepo(campaign)
	events := &MockEventRepo{}
	r := newTrackingRouter(repo, events)

	req := httptest.NewRequest("GET", "/api/tracking/open/abc123def4", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/gif" {
		t.Errorf("expected image/gif, got %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("expected pixel body")
	}
	if campaign.EmailOpenCount != 1 {
		t.Errorf("expected open recorded, got %d", campaign.EmailOpenCount)
	}
	if events.inserted != 1 {
		t.Errorf("expected 1 event, got %d", events.inserted)
	}
}

func TestOpenUnknownTokenStillServesPixel(t *testing.T) {
	r := newTrackingRouter(NewMockCampaignRepo(), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/open/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("tracking failure must not leak to the email client, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("expected image/gif, got %s", ct)
	}
}

func TestClickRedirectsToURLParam(t *testing.T) {
	campaign := &model.Campaign{ID: 1, TrackingToken: "abc123def4", ShareURL: "https://staystra.com/analyzer/"}
	r := newTrackingRouter(NewMockCampaignRepo(campaign), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/click/abc123def4?url=https%3A%2F%2Fstaystra.com%2Fanalyzer%2F%3Fa1%3Dx", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://staystra.com/analyzer/?a1=x" {
		t.Errorf("expected url param target, got %s", loc)
	}
	if campaign.LinkClickCount != 1 {
		t.Errorf("expected click recorded, got %d", campaign.LinkClickCount)
	}
}

func TestClickFallsBackToShareURL(t *testing.T) {
	campaign := &model.Campaign{ID: 1, TrackingToken: "abc123def4", ShareURL: "https://staystra.com/analyzer/?a1=x"}
	r := newTrackingRouter(NewMockCampaignRepo(campaign), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/click/abc123def4", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if loc := w.Header().Get("Location"); loc != campaign.ShareURL {
		t.Errorf("expected share URL fallback, got %s", loc)
	}
}

func TestClickUnknownTokenRedirectsToFallback(t *testing.T) {
	r := newTrackingRouter(NewMockCampaignRepo(), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/click/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://www.staystra.com" {
		t.Errorf("expected site fallback, got %s", loc)
	}
}

func TestStats(t *testing.T) {
	campaign := &model.Campaign{ID: 1, TrackingToken: "abc123def4", EmailOpenCount: 2}
	r := newTrackingRouter(NewMockCampaignRepo(campaign), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/stats/abc123def4", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Success  bool           `json:"success"`
		Campaign model.Campaign `json:"campaign"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Success || body.Campaign.EmailOpenCount != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestStatsUnknownToken(t *testing.T) {
	r := newTrackingRouter(NewMockCampaignRepo(), &MockEventRepo{})

	req := httptest.NewRequest("GET", "/api/tracking/stats/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
