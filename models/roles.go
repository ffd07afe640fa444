// models/roles.go
package models

import "time"

// RoleAssignment is a single-row table holding the privileged addresses.
// Owner is fixed at bootstrap; verifier can be handed over by the owner.
// Both are single-holder relations, never sets.
type RoleAssignment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Owner     string    `json:"owner" gorm:"not null"`
	Verifier  string    `json:"verifier" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
