// models/disclosure.go
package models

import "time"

// DisclosureGrant opens one encrypted bounty to one grantee. Grants are
// additive and permanent; re-granting is a no-op via upsert.
type DisclosureGrant struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	BountyID  uint64    `json:"bounty_id" gorm:"uniqueIndex:idx_grant_bounty_grantee;not null"`
	Grantee   string    `json:"grantee" gorm:"uniqueIndex:idx_grant_bounty_grantee;not null"`
	GrantedBy string    `json:"granted_by" gorm:"not null"` // creator or verifier
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
