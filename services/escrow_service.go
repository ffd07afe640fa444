// services/escrow_service.go
package services

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// EscrowService authorizes exactly one reward release per bounty. It never
// moves value — it records who is owed what and hands the amount to the
// payment collaborator via the reward_claimed event.
type EscrowService struct {
	DB *gorm.DB

	Now func() time.Time
}

func NewEscrowService(db *gorm.DB) *EscrowService {
	return &EscrowService{DB: db, Now: time.Now}
}

// ClaimReward releases a completed bounty's reward to its accepted solver.
func (s *EscrowService) ClaimReward(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	bountyID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
	}

	amount, err := s.claim(bountyID, caller)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":   "reward released",
		"bounty_id": bountyID,
		"amount":    amount,
	})
}

func (s *EscrowService) claim(bountyID uint64, caller string) (int64, error) {
	unlock := ledgerLocks.lock(bountyID)
	defer unlock.Unlock()

	var amount int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var bounty models.Bounty
		if err := tx.First(&bounty, "id = ?", bountyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: bounty %d", ErrNotFound, bountyID)
			}
			return err
		}

		if bounty.Status != models.BountyStatusCompleted {
			return fmt.Errorf("%w: bounty %d is %s, rewards release only after completion", ErrInvalidTransition, bountyID, bounty.Status)
		}
		if bounty.Claimed {
			return fmt.Errorf("%w: bounty %d", ErrAlreadyClaimed, bountyID)
		}

		var accepted models.Solution
		err := tx.Where("bounty_id = ? AND status = ?", bountyID, models.SolutionStatusAccepted).
			First(&accepted).Error
		if err != nil {
			return fmt.Errorf("completed bounty %d has no accepted solution: %w", bountyID, err)
		}
		if accepted.Solver != caller {
			return fmt.Errorf("%w: only the accepted solver can claim", ErrUnauthorized)
		}

		// One-shot flag flips inside the same transaction as the earnings
		// credit, so a failure anywhere leaves both untouched.
		if err := tx.Model(&bounty).Update("claimed", true).Error; err != nil {
			return err
		}
		if err := creditEarnings(tx, caller, bounty.Reward); err != nil {
			return err
		}

		amount = bounty.Reward
		return recordEvent(tx, &models.LedgerEvent{
			Type:       models.EventRewardClaimed,
			BountyID:   bountyID,
			SolutionID: &accepted.ID,
			Actor:      caller,
			Amount:     bounty.Reward,
		})
	})
	if err != nil {
		return 0, err
	}

	log.Printf("💰 Reward %d released to %s for bounty %d", amount, caller, bountyID)
	return amount, nil
}
