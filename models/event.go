// models/event.go
package models

import "time"

// LedgerEventType enumerates what external indexers can subscribe to
type LedgerEventType string

const (
	EventBountyCreated     LedgerEventType = "bounty_created"
	EventSolutionSubmitted LedgerEventType = "solution_submitted"
	EventBountyCompleted   LedgerEventType = "bounty_completed"
	EventBountyExpired     LedgerEventType = "bounty_expired"
	EventRewardClaimed     LedgerEventType = "reward_claimed"
)

// LedgerEvent is an append-only row written in the same transaction as the
// state change it describes. The dispatch worker pushes undelivered rows to
// the configured webhook and stamps DeliveredAt on success — at-least-once,
// consumers dedupe on ID.
type LedgerEvent struct {
	ID   string          `json:"id" gorm:"primaryKey;type:uuid"`
	Type LedgerEventType `json:"type" gorm:"not null;index"`

	BountyID   uint64  `json:"bounty_id" gorm:"index"`
	SolutionID *uint64 `json:"solution_id,omitempty"`

	// Actor is the creator/solver the event is about; empty when the
	// solver chose anonymity.
	Actor  string `json:"actor,omitempty"`
	Title  string `json:"title,omitempty"`  // empty for encrypted bounties
	Amount int64  `json:"amount,omitempty"` // reward for completed/claimed events

	EmittedAt   time.Time  `json:"emitted_at" gorm:"autoCreateTime;index"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" gorm:"index"`
}
