// services/events.go
package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"time"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// recordEvent appends a ledger event inside the caller's transaction, so an
// event exists iff the state change it describes committed. Delivery to the
// outside world is the dispatch worker's problem.
func recordEvent(tx *gorm.DB, ev *models.LedgerEvent) error {
	ev.ID = uuid.NewString()
	return tx.Create(ev).Error
}

type EventService struct {
	DB *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{DB: db}
}

// StreamLedgerEventsSSE streams committed ledger events to the presentation
// layer, newest-first cursor advancing on emitted_at.
func (s *EventService) StreamLedgerEventsSSE(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	db := s.DB

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var cursor time.Time

		// Initialize cursor at the newest committed event
		var latest models.LedgerEvent
		if err := db.Order("emitted_at DESC").First(&latest).Error; err == nil {
			cursor = latest.EmittedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for caller %s: %v", caller, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for range ticker.C {
			var fresh []models.LedgerEvent
			err := db.
				Where("emitted_at > ?", cursor).
				Order("emitted_at ASC").
				Find(&fresh).Error
			if err != nil {
				log.Printf("SSE query error for caller %s: %v", caller, err)
				continue
			}

			if len(fresh) == 0 {
				// keepalive so proxies don't cut the stream
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
				continue
			}

			for _, ev := range fresh {
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Printf("SSE marshal error: %v", err)
					continue
				}
				w.WriteString("event: " + string(ev.Type) + "\n")
				w.WriteString("data: " + string(payload) + "\n\n")
				cursor = ev.EmittedAt
			}
			if err := w.Flush(); err != nil {
				// client went away
				return
			}
		}
	})

	return nil
}
