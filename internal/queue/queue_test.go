package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/staystra/outreach-backend/internal/queue"
)

func TestInMemoryQueuePublishSubscribe(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	var got any
	q.Subscribe("crm_sync", func(payload any) error {
		got = payload
		wg.Done()
		return nil
	})

	if err := q.Publish("crm_sync", 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wg.Wait()

	if got != 42 {
		t.Errorf("expected payload 42, got %v", got)
	}
}

func TestInMemoryQueuePublishWithoutSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue()
	if err := q.Publish("crm_sync", 1); err == nil {
		t.Error("expected error when no subscribers")
	}
}

func TestInMemoryQueueRetries(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	q.Subscribe("crm_sync", func(payload any) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	q.Publish("crm_sync", 7)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestStartCRMSyncSubscriber(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	var syncedID int
	queue.StartCRMSyncSubscriber(q, "crm_sync", func(campaignID int) error {
		syncedID = campaignID
		wg.Done()
		return nil
	})

	// Subscriber registration happens in a goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := q.Publish("crm_sync", 42); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	if syncedID != 42 {
		t.Errorf("expected campaign id 42, got %d", syncedID)
	}
}
