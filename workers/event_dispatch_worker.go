package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"bounty-vault-system/models"
	"bounty-vault-system/utils"

	"gorm.io/gorm"
)

// EventDispatchClient pushes committed ledger events to the external
// payment/indexing webhook. Delivery is at-least-once: an event is only
// stamped delivered after the webhook accepts it, so a crash between POST
// and stamp redelivers — consumers dedupe on event id.
type EventDispatchClient struct {
	WebhookURL string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewEventDispatchClient(db *gorm.DB) *EventDispatchClient {
	webhookURL := os.Getenv("EVENT_WEBHOOK_URL")
	if webhookURL == "" {
		log.Fatal("EVENT_WEBHOOK_URL environment variable is required")
	}
	token := os.Getenv("BOUNTY_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("BOUNTY_SERVICE_TOKEN environment variable is required for event dispatch")
	}

	return &EventDispatchClient{
		WebhookURL: webhookURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

// PendingEvents returns the oldest undelivered events, bounded per tick so
// a backlog drains without one giant request.
func (c *EventDispatchClient) PendingEvents(limit int) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := c.DB.
		Where("delivered_at IS NULL").
		Order("emitted_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// Push POSTs one event to the webhook. Any non-2xx is a failure and the
// event stays pending for the next tick.
func (c *EventDispatchClient) Push(ctx context.Context, ev models.LedgerEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call event webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("event webhook returned status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}

// DispatchEvents is the worker loop: poll pending events, push in emission
// order, stamp delivered on success, stop on the first failure of a tick so
// ordering holds per tick.
func DispatchEvents(ctx context.Context, client *EventDispatchClient, pollInterval time.Duration) {
	log.Println("Starting ledger event dispatch...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Event dispatch stopped.")
			return
		case <-ticker.C:
			events, err := client.PendingEvents(100)
			if err != nil {
				log.Printf("❌ Error loading pending events: %v", err)
				continue
			}
			if len(events) == 0 {
				continue
			}

			delivered := 0
			for _, ev := range events {
				if err := client.Push(ctx, ev); err != nil {
					log.Printf("❌ Failed to dispatch event %s (%s): %v", ev.ID, ev.Type, err)
					break // keep per-tick ordering; retry next tick
				}

				now := time.Now().UTC()
				if err := client.DB.Model(&models.LedgerEvent{}).
					Where("id = ?", ev.ID).
					Update("delivered_at", now).Error; err != nil {
					log.Printf("❌ Failed to stamp event %s delivered: %v", ev.ID, err)
					break
				}
				delivered++
			}

			if delivered > 0 {
				log.Printf("📤 Dispatched %d ledger event(s) to webhook.", delivered)
			}
		}
	}
}
