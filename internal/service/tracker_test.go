package service_test

import (
	"encoding/json"
	"testing"
	"time"

	appErrors "github.com/staystra/outreach-backend/internal/errors"
	"github.com/staystra/outreach-backend/internal/model"
	"github.com/staystra/outreach-backend/internal/service"
)

// MockTrackerStore keeps campaigns in memory and mirrors the SQL aggregate
// semantics: the first-event timestamp is set once, counters always increment.
type MockTrackerStore struct {
	byToken    map[string]*model.Campaign
	byMsgID    map[string]string
	openCalls  int
	clickCalls int
}

func NewMockTrackerStore(campaigns ...*model.Campaign) *MockTrackerStore {
	s := &MockTrackerStore{byToken: map[string]*model.Campaign{}, byMsgID: map[string]string{}}
	for _, c := range campaigns {
		s.byToken[c.TrackingToken] = c
		if c.EmailMessageID != "" {
			s.byMsgID[c.EmailMessageID] = c.TrackingToken
		}
	}
	return s
}

func (s *MockTrackerStore) GetByTrackingToken(token string) (*model.Campaign, error) {
	if c, ok := s.byToken[token]; ok {
		return c, nil
	}
	return nil, appErrors.NewCampaignNotFound(token)
}

func (s *MockTrackerStore) TokenByMessageID(messageID string) (string, error) {
	return s.byMsgID[messageID], nil
}

func (s *MockTrackerStore) find(id int) *model.Campaign {
	for _, c := range s.byToken {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *MockTrackerStore) RecordOpen(id int) error {
	s.openCalls++
	c := s.find(id)
	c.EmailOpened = true
	if c.EmailOpenedAt == nil {
		now := time.Now()
		c.EmailOpenedAt = &now
	}
	c.EmailOpenCount++
	return nil
}

func (s *MockTrackerStore) RecordClick(id int) error {
	s.clickCalls++
	c := s.find(id)
	c.LinkClicked = true
	if c.LinkClickedAt == nil {
		now := time.Now()
		c.LinkClickedAt = &now
	}
	c.LinkClickCount++
	return nil
}

type recordedEvent struct {
	campaignID int
	eventType  string
	ip         string
	userAgent  string
	metadata   json.RawMessage
}

type MockEventStore struct {
	events []recordedEvent
}

func (s *MockEventStore) Insert(campaignID int, eventType, ipAddress, userAgent string, metadata json.RawMessage) error {
	s.events = append(s.events, recordedEvent{campaignID, eventType, ipAddress, userAgent, metadata})
	return nil
}

func trackedCampaign() *model.Campaign {
	return &model.Campaign{
		ID:             42,
		TrackingToken:  "abc123def4",
		EmailMessageID: "<msg-42@provider>",
		EmailSent:      true,
	}
}

func TestTrackOpenIncrementsWithoutDedup(t *testing.T) {
	c := trackedCampaign()
	store := NewMockTrackerStore(c)
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	for i := 0; i < 3; i++ {
		if err := tracker.TrackOpen("abc123def4", "203.0.113.9", "Mozilla/5.0"); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}

	if c.EmailOpenCount != 3 {
		t.Errorf("expected open count 3, got %d", c.EmailOpenCount)
	}
	if !c.EmailOpened || c.EmailOpenedAt == nil {
		t.Error("open flag and first-open timestamp must be set")
	}
	if len(events.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events.events))
	}
	if events.events[0].eventType != model.EventOpen || events.events[0].ip != "203.0.113.9" {
		t.Errorf("unexpected event: %+v", events.events[0])
	}
}

func TestTrackClickReturnsCampaign(t *testing.T) {
	c := trackedCampaign()
	c.ShareURL = "https://staystra.com/analyzer/?a1=x"
	store := NewMockTrackerStore(c)
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	got, err := tracker.TrackClick("abc123def4", "203.0.113.9", "Mozilla/5.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ShareURL != c.ShareURL {
		t.Errorf("expected the tracked campaign back, got %+v", got)
	}
	if c.LinkClickCount != 1 || !c.LinkClicked {
		t.Errorf("click aggregate not applied: %+v", c)
	}
}

func TestTrackOpenUnknownToken(t *testing.T) {
	tracker := &service.Tracker{Campaigns: NewMockTrackerStore(), Events: &MockEventStore{}}
	if err := tracker.TrackOpen("nope", "", ""); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestHandleProviderEventOpenViaTag(t *testing.T) {
	c := trackedCampaign()
	store := NewMockTrackerStore(c)
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event: "unique_opened",
		Tags:  []string{"str-outreach", "tid-abc123def4"},
		IP:    "198.51.100.1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.EmailOpenCount != 1 {
		t.Errorf("expected open recorded, got count %d", c.EmailOpenCount)
	}
	if len(events.events) != 1 || events.events[0].eventType != model.EventOpen {
		t.Errorf("unexpected events: %+v", events.events)
	}
}

func TestHandleProviderEventClickViaMessageID(t *testing.T) {
	c := trackedCampaign()
	store := NewMockTrackerStore(c)
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event:     "click",
		MessageID: "<msg-42@provider>",
		Link:      "https://staystra.com/analyzer/?tid=abc123def4",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.LinkClickCount != 1 {
		t.Errorf("expected click recorded, got count %d", c.LinkClickCount)
	}

	var meta map[string]string
	if err := json.Unmarshal(events.events[0].metadata, &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["url"] != "https://staystra.com/analyzer/?tid=abc123def4" {
		t.Errorf("expected clicked url in metadata, got %v", meta)
	}
}

func TestHandleProviderEventUnresolvableIsDiscarded(t *testing.T) {
	store := NewMockTrackerStore(trackedCampaign())
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event:     "opened",
		MessageID: "<unknown@provider>",
	})
	if err != nil {
		t.Fatalf("discard must not error: %v", err)
	}
	if store.openCalls != 0 || len(events.events) != 0 {
		t.Error("unresolvable event must not mutate anything")
	}
}

func TestHandleProviderEventBounce(t *testing.T) {
	c := trackedCampaign()
	store := NewMockTrackerStore(c)
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event:  "hard_bounce",
		Tags:   []string{"tid-abc123def4"},
		Reason: "mailbox does not exist",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.openCalls != 0 || store.clickCalls != 0 {
		t.Error("bounce must not touch engagement aggregates")
	}
	if events.events[0].eventType != model.EventHardBounce {
		t.Errorf("expected hard_bounce event, got %s", events.events[0].eventType)
	}

	var meta map[string]string
	json.Unmarshal(events.events[0].metadata, &meta)
	if meta["reason"] != "mailbox does not exist" {
		t.Errorf("expected bounce reason in metadata, got %v", meta)
	}
}

func TestHandleProviderEventReply(t *testing.T) {
	store := NewMockTrackerStore(trackedCampaign())
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event:   "reply",
		Tags:    []string{"tid-abc123def4"},
		From:    "sandy@example.com",
		Subject: "Re: Investment Opportunity",
		Text:    "Tell me more",
		Date:    "2026-08-30T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var meta map[string]string
	if err := json.Unmarshal(events.events[0].metadata, &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["from"] != "sandy@example.com" || meta["subject"] != "Re: Investment Opportunity" || meta["text"] != "Tell me more" {
		t.Errorf("reply metadata incomplete: %v", meta)
	}
}

func TestHandleProviderEventDelivered(t *testing.T) {
	store := NewMockTrackerStore(trackedCampaign())
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event: "delivered",
		Tags:  []string{"tid-abc123def4"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.events) != 1 || events.events[0].eventType != model.EventDelivered {
		t.Errorf("expected delivered event, got %+v", events.events)
	}
}

func TestHandleProviderEventUnknownKind(t *testing.T) {
	store := NewMockTrackerStore(trackedCampaign())
	events := &MockEventStore{}
	tracker := &service.Tracker{Campaigns: store, Events: events}

	err := tracker.HandleProviderEvent(service.ProviderEvent{
		Event: "deferred",
		Tags:  []string{"tid-abc123def4"},
	})
	if err != nil {
		t.Fatalf("unknown kinds are ignored, got %v", err)
	}
	if len(events.events) != 0 {
		t.Error("unknown kind must not append an event")
	}
}
