// models/reputation.go
package models

import "time"

// ReputationRecord is the per-identity running tally. Created lazily on the
// identity's first bounty or solution, never deleted.
type ReputationRecord struct {
	ID      string `json:"id" gorm:"primaryKey;type:uuid"`
	Address string `json:"address" gorm:"uniqueIndex;not null"`

	Reputation        int64 `json:"reputation" gorm:"not null;default:0"`
	CompletedBounties uint32 `json:"completed_bounties" gorm:"not null;default:0"`

	// Sum of rewards this identity has actually claimed (not merely won)
	TotalEarnings int64 `json:"total_earnings" gorm:"not null;default:0"`

	// Set only by the verifier role
	IsVerified bool `json:"is_verified" gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
