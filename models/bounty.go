// models/bounty.go
package models

import "time"

// Difficulty is the four-step scale shown on bounty cards
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// DifficultyWeight orders difficulties for reputation math.
// Returns 0 for unknown values so callers can reject them.
func DifficultyWeight(d Difficulty) int64 {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	case DifficultyExpert:
		return 5
	}
	return 0
}

// BountyStatus moves forward only: active → completed | expired
type BountyStatus string

const (
	BountyStatusActive    BountyStatus = "active"
	BountyStatusCompleted BountyStatus = "completed"
	BountyStatusExpired   BountyStatus = "expired"
)

type Bounty struct {
	ID      uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	Creator string `json:"creator" gorm:"index;not null"` // wallet address forwarded by gateway

	// 🔒 Content — withheld from callers outside the disclosure set when IsEncrypted
	Title       string `json:"title"`
	Description string `json:"description" gorm:"type:text"`
	IsEncrypted bool   `json:"is_encrypted" gorm:"not null"`

	// Public URL handle. Derived from the title for open bounties; for
	// encrypted ones it is derived from the id so it leaks nothing.
	Slug string `json:"slug" gorm:"index"`

	Reward     int64      `json:"reward" gorm:"not null"` // integral amount, fixed at creation
	Difficulty Difficulty `json:"difficulty" gorm:"not null"`
	Deadline   time.Time  `json:"deadline" gorm:"not null;index"`

	// Incremented once per submitted solution, never per view
	ApplicantCount uint32 `json:"applicant_count" gorm:"not null;default:0"`

	Status  BountyStatus `json:"status" gorm:"not null;default:'active';index"`
	Claimed bool         `json:"claimed" gorm:"not null;default:false"` // one-shot reward release flag

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Closed reports whether the bounty can no longer take submissions at t.
func (b *Bounty) Closed(t time.Time) bool {
	return b.Status != BountyStatusActive || !b.Deadline.After(t)
}
