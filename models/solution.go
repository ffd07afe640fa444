// models/solution.go
package models

import "time"

// SolutionStatus: submitted → accepted | rejected (both terminal)
type SolutionStatus string

const (
	SolutionStatusSubmitted SolutionStatus = "submitted"
	SolutionStatusAccepted  SolutionStatus = "accepted"
	SolutionStatusRejected  SolutionStatus = "rejected"
)

type Solution struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	BountyID uint64 `json:"bounty_id" gorm:"index;not null"`

	// Solver is always kept — payout needs it — but is withheld from
	// responses when IsAnonymous is set.
	Solver      string `json:"solver" gorm:"index;not null"`
	IsAnonymous bool   `json:"is_anonymous" gorm:"not null"`

	Quality      uint32 `json:"quality" gorm:"not null"` // self-assessed, clamped to 0..100
	SolutionHash string `json:"solution_hash" gorm:"not null"` // content address of the artifact

	Status SolutionStatus `json:"status" gorm:"not null;default:'submitted';index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
