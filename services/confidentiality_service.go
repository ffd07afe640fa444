// services/confidentiality_service.go
package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConfidentialityService decides who gets to read encrypted bounty content.
// It is strictly a view predicate: content always exists in full in the
// registry, the gate only decides exposure.
type ConfidentialityService struct {
	DB *gorm.DB
}

func NewConfidentialityService(db *gorm.DB) *ConfidentialityService {
	return &ConfidentialityService{DB: db}
}

// canView is the whole confidentiality rule: open bounty, creator,
// verifier, or explicit disclosure grantee.
func canView(tx *gorm.DB, bounty *models.Bounty, caller string) (bool, error) {
	if !bounty.IsEncrypted {
		return true, nil
	}
	if caller == "" {
		return false, nil
	}
	if caller == bounty.Creator {
		return true, nil
	}

	roles, err := currentRoles(tx)
	if err != nil {
		return false, err
	}
	if caller == roles.Verifier {
		return true, nil
	}

	var count int64
	err = tx.Model(&models.DisclosureGrant{}).
		Where("bounty_id = ? AND grantee = ?", bounty.ID, caller).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Disclose grants one caller access to one encrypted bounty's content.
// Only the verifier or the bounty's creator can grant; repeat grants are
// no-ops, not errors.
func (s *ConfidentialityService) Disclose(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	bountyID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
	}

	var req struct {
		Grantee string `json:"grantee"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	grantee := strings.ToLower(strings.TrimSpace(req.Grantee))

	if err := s.disclose(bountyID, grantee, caller); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "disclosure granted", "bounty_id": bountyID, "grantee": grantee})
}

func (s *ConfidentialityService) disclose(bountyID uint64, grantee, caller string) error {
	if grantee == "" {
		return fmt.Errorf("%w: grantee address is required", ErrInvalidInput)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var bounty models.Bounty
		if err := tx.First(&bounty, "id = ?", bountyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: bounty %d", ErrNotFound, bountyID)
			}
			return err
		}

		roles, err := currentRoles(tx)
		if err != nil {
			return err
		}
		if caller != bounty.Creator && caller != roles.Verifier {
			return fmt.Errorf("%w: only the creator or verifier can disclose", ErrUnauthorized)
		}

		// Idempotent insert — the unique (bounty, grantee) index plus
		// DoNothing makes a repeat grant a clean no-op.
		grant := models.DisclosureGrant{
			ID:        uuid.NewString(),
			BountyID:  bountyID,
			Grantee:   grantee,
			GrantedBy: caller,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bounty_id"}, {Name: "grantee"}},
			DoNothing: true,
		}).Create(&grant).Error; err != nil {
			return err
		}

		log.Printf("🔓 Bounty %d disclosed to %s by %s", bountyID, grantee, caller)
		return nil
	})
}
