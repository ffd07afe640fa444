// services/reputation_service.go
package services

import (
	"fmt"
	"log"
	"strings"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reputation gain per completed bounty: difficulty weight × (10 + quality),
// quality clamped to 0..100. Non-decreasing in both inputs; a single bounty
// awards at most 5 × 110 = 550. The running score saturates at
// ReputationCeiling instead of wrapping.
const (
	MaxQuality        = 100
	ReputationCeiling = int64(100_000_000)
)

func reputationGain(difficulty models.Difficulty, quality uint32) int64 {
	if quality > MaxQuality {
		quality = MaxQuality
	}
	return models.DifficultyWeight(difficulty) * (10 + int64(quality))
}

type ReputationService struct {
	DB *gorm.DB
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{DB: db}
}

// ensureReputationRecord creates the zero record on an identity's first
// interaction (idempotent). Records are never deleted.
func ensureReputationRecord(tx *gorm.DB, address string) (*models.ReputationRecord, error) {
	var rec models.ReputationRecord
	err := tx.Where("address = ?", address).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		rec = models.ReputationRecord{
			ID:      uuid.NewString(),
			Address: address,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return nil, err
		}
		return &rec, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// creditCompletion applies the accepted-solution bump inside the caller's
// transaction: completedBounties exactly once per completed bounty, score
// bumped by the difficulty/quality curve.
func creditCompletion(tx *gorm.DB, solver string, difficulty models.Difficulty, quality uint32) error {
	rec, err := ensureReputationRecord(tx, solver)
	if err != nil {
		return err
	}

	rec.CompletedBounties++
	rec.Reputation += reputationGain(difficulty, quality)
	if rec.Reputation > ReputationCeiling {
		rec.Reputation = ReputationCeiling
	}

	return tx.Save(rec).Error
}

// creditEarnings adds a claimed reward to the identity's running total.
func creditEarnings(tx *gorm.DB, solver string, amount int64) error {
	rec, err := ensureReputationRecord(tx, solver)
	if err != nil {
		return err
	}
	rec.TotalEarnings += amount
	return tx.Save(rec).Error
}

// GetUserReputation returns the per-identity tally. Unknown identities read
// as the zero record — lazily-created rows and never-seen addresses are
// indistinguishable from outside, matching the contract's view function.
func (s *ReputationService) GetUserReputation(c *fiber.Ctx) error {
	address := strings.ToLower(strings.TrimSpace(c.Params("address")))
	if address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address is required"})
	}

	var rec models.ReputationRecord
	if err := s.DB.Where("address = ?", address).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(fiber.Map{
				"address":            address,
				"reputation":         0,
				"completed_bounties": 0,
				"total_earnings":     0,
				"is_verified":        false,
			})
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"address":            rec.Address,
		"reputation":         rec.Reputation,
		"completed_bounties": rec.CompletedBounties,
		"total_earnings":     rec.TotalEarnings,
		"is_verified":        rec.IsVerified,
	})
}

// MarkVerified sets the verified badge on an identity (verifier only).
func (s *ReputationService) MarkVerified(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	address := strings.ToLower(strings.TrimSpace(c.Params("address")))
	if address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address is required"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		roles, err := currentRoles(tx)
		if err != nil {
			return err
		}
		if roles.Verifier != caller {
			return fmt.Errorf("%w: only the verifier can mark identities verified", ErrUnauthorized)
		}

		rec, err := ensureReputationRecord(tx, address)
		if err != nil {
			return err
		}
		if rec.IsVerified {
			return nil // already verified — idempotent
		}
		rec.IsVerified = true
		return tx.Save(rec).Error
	})
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("✅ Identity %s marked verified by %s", address, caller)
	return c.JSON(fiber.Map{"message": "identity verified", "address": address})
}
