// services/solution_service.go
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

type SolutionService struct {
	DB *gorm.DB

	Now func() time.Time
}

func NewSolutionService(db *gorm.DB) *SolutionService {
	return &SolutionService{DB: db, Now: time.Now}
}

// SubmitSolution files a solution against an active bounty. The solver is
// the authenticated caller; anonymity only affects what other callers see,
// payout always knows who to pay.
func (s *SolutionService) SubmitSolution(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	bountyID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
	}

	var req struct {
		Quality      uint32 `json:"quality"`
		IsAnonymous  bool   `json:"is_anonymous"`
		SolutionHash string `json:"solution_hash"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	solution, err := s.submit(bountyID, caller, req.Quality, req.IsAnonymous, req.SolutionHash)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"solution_id": solution.ID,
		"bounty_id":   solution.BountyID,
		"status":      solution.Status,
	})
}

func (s *SolutionService) submit(bountyID uint64, solver string, quality uint32, isAnonymous bool, solutionHash string) (*models.Solution, error) {
	if solutionHash == "" {
		return nil, fmt.Errorf("%w: solution hash is required", ErrInvalidInput)
	}
	if quality > MaxQuality {
		quality = MaxQuality
	}

	unlock := ledgerLocks.lock(bountyID)
	defer unlock.Unlock()

	now := s.Now()
	solution := &models.Solution{
		BountyID:     bountyID,
		Solver:       solver,
		Quality:      quality,
		IsAnonymous:  isAnonymous,
		SolutionHash: solutionHash,
		Status:       models.SolutionStatusSubmitted,
		CreatedAt:    now,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var bounty models.Bounty
		if err := tx.First(&bounty, "id = ?", bountyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("%w: bounty %d", ErrNotFound, bountyID)
			}
			return err
		}

		// An Active bounty past its deadline is already closed for
		// submissions, whether or not the sweep has flipped it yet.
		if bounty.Closed(now) {
			return fmt.Errorf("%w: bounty %d no longer accepts solutions", ErrBountyClosed, bountyID)
		}

		if err := tx.Create(solution).Error; err != nil {
			return err
		}

		// One bump per submission, never per view
		if err := tx.Model(&bounty).
			Update("applicant_count", gorm.Expr("applicant_count + 1")).Error; err != nil {
			return err
		}

		// Solver's reputation record comes into being on first submission
		if _, err := ensureReputationRecord(tx, solver); err != nil {
			return err
		}

		actor := solver
		if isAnonymous {
			actor = "" // withheld from the event feed; payout still knows
		}
		return recordEvent(tx, &models.LedgerEvent{
			Type:       models.EventSolutionSubmitted,
			BountyID:   bountyID,
			SolutionID: &solution.ID,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📬 Solution %d submitted for bounty %d (anonymous=%t)", solution.ID, bountyID, isAnonymous)
	return solution, nil
}

// DecideSolution accepts or rejects a submitted solution. Only the bounty's
// creator decides. Accepting completes the bounty, mass-rejects every other
// submitted solution, and credits the solver's reputation — all in one
// transaction.
func (s *SolutionService) DecideSolution(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	solutionID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid solution id"})
	}

	var req struct {
		IsAccepted bool `json:"is_accepted"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	if err := s.decide(solutionID, req.IsAccepted, caller); err != nil {
		return respondError(c, err)
	}

	outcome := "rejected"
	if req.IsAccepted {
		outcome = "accepted"
	}
	return c.JSON(fiber.Map{"message": "solution " + outcome, "solution_id": solutionID})
}

func (s *SolutionService) decide(solutionID uint64, isAccepted bool, caller string) error {
	// The solution's bounty id is needed before the per-bounty lock can be
	// taken. The pre-read is safe: BountyID is immutable once submitted.
	var probe models.Solution
	if err := s.DB.First(&probe, "id = ?", solutionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: solution %d", ErrNotFound, solutionID)
		}
		return err
	}

	unlock := ledgerLocks.lock(probe.BountyID)
	defer unlock.Unlock()

	now := s.Now()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var solution models.Solution
		if err := tx.First(&solution, "id = ?", solutionID).Error; err != nil {
			return err
		}

		var bounty models.Bounty
		if err := tx.First(&bounty, "id = ?", solution.BountyID).Error; err != nil {
			return err
		}

		if caller != bounty.Creator {
			return fmt.Errorf("%w: only the bounty creator decides on solutions", ErrUnauthorized)
		}

		// Double decisions are rejected, never silently absorbed
		if solution.Status != models.SolutionStatusSubmitted {
			return fmt.Errorf("%w: solution %d already %s", ErrInvalidTransition, solutionID, solution.Status)
		}

		if !isAccepted {
			// Rejection is solution-local; the bounty stays open for
			// further submissions while its deadline holds.
			if err := tx.Model(&solution).Update("status", models.SolutionStatusRejected).Error; err != nil {
				return err
			}
			log.Printf("🚫 Solution %d rejected on bounty %d", solutionID, bounty.ID)
			return nil
		}

		// Acceptance path. A closed bounty can never complete through a
		// late decision — the expiry determination is permanent.
		if bounty.Closed(now) {
			return fmt.Errorf("%w: bounty %d is past its deadline", ErrBountyClosed, bounty.ID)
		}

		if err := tx.Model(&solution).Update("status", models.SolutionStatusAccepted).Error; err != nil {
			return err
		}

		// Mass rejection: every other still-submitted solution loses
		// eligibility in the same commit.
		if err := tx.Model(&models.Solution{}).
			Where("bounty_id = ? AND id <> ? AND status = ?", bounty.ID, solution.ID, models.SolutionStatusSubmitted).
			Update("status", models.SolutionStatusRejected).Error; err != nil {
			return err
		}

		// Active → Completed, the only route into Completed
		if bounty.Status != models.BountyStatusActive {
			return fmt.Errorf("%w: bounty %d is %s", ErrInvalidTransition, bounty.ID, bounty.Status)
		}
		if err := tx.Model(&bounty).Update("status", models.BountyStatusCompleted).Error; err != nil {
			return err
		}

		if err := creditCompletion(tx, solution.Solver, bounty.Difficulty, solution.Quality); err != nil {
			return err
		}

		actor := solution.Solver
		if solution.IsAnonymous {
			actor = ""
		}
		if err := recordEvent(tx, &models.LedgerEvent{
			Type:       models.EventBountyCompleted,
			BountyID:   bounty.ID,
			SolutionID: &solution.ID,
			Actor:      actor,
			Amount:     bounty.Reward,
		}); err != nil {
			return err
		}

		log.Printf("🏆 Solution %d accepted — bounty %d completed (reward=%d)", solutionID, bounty.ID, bounty.Reward)
		return nil
	})
}

// GetBountySolutions lists a bounty's solutions. Solver addresses of
// anonymous submissions are withheld from everyone but the solver, the
// bounty creator and the verifier.
func (s *SolutionService) GetBountySolutions(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	bountyID, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
	}

	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondError(c, fmt.Errorf("%w: bounty %d", ErrNotFound, bountyID))
		}
		return respondError(c, err)
	}

	roles, err := currentRoles(s.DB)
	if err != nil {
		return respondError(c, err)
	}

	var solutions []models.Solution
	if err := s.DB.Where("bounty_id = ?", bountyID).Order("id ASC").Find(&solutions).Error; err != nil {
		return respondError(c, err)
	}

	out := make([]fiber.Map, 0, len(solutions))
	for _, sol := range solutions {
		solver := sol.Solver
		if sol.IsAnonymous && caller != sol.Solver && caller != bounty.Creator && caller != roles.Verifier {
			solver = ""
		}
		out = append(out, fiber.Map{
			"id":            sol.ID,
			"bounty_id":     sol.BountyID,
			"solver":        solver,
			"is_anonymous":  sol.IsAnonymous,
			"quality":       sol.Quality,
			"solution_hash": sol.SolutionHash,
			"status":        sol.Status,
			"created_at":    sol.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{"solutions": out, "count": len(out)})
}
