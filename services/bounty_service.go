// services/bounty_service.go
package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type BountyService struct {
	DB *gorm.DB

	// Now is swappable in tests; everything deadline-related goes through it
	Now func() time.Time
}

func NewBountyService(db *gorm.DB) *BountyService {
	return &BountyService{DB: db, Now: time.Now}
}

var difficultyTitle = cases.Title(language.AmericanEnglish)

// parseDifficulty accepts the four card labels case-insensitively.
func parseDifficulty(raw string) (models.Difficulty, error) {
	d := models.Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	if models.DifficultyWeight(d) == 0 {
		return "", fmt.Errorf("%w: difficulty must be one of easy, medium, hard, expert", ErrInvalidInput)
	}
	return d, nil
}

// difficultyLabel renders the stored lowercase value back into the display
// form the cards use ("expert" → "Expert").
func difficultyLabel(d models.Difficulty) string {
	return difficultyTitle.String(string(d))
}

// CreateBounty posts a new bounty. The caller becomes its creator and the
// only identity allowed to accept or reject its solutions.
func (s *BountyService) CreateBounty(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Reward      int64  `json:"reward"`
		Difficulty  string `json:"difficulty"`
		IsEncrypted bool   `json:"is_encrypted"`
		Deadline    int64  `json:"deadline"` // unix seconds
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	bounty, err := s.createBounty(caller, req.Title, req.Description, req.Reward, req.Difficulty, req.IsEncrypted, time.Unix(req.Deadline, 0))
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"bounty_id": bounty.ID,
		"slug":      bounty.Slug,
		"status":    bounty.Status,
	})
}

func (s *BountyService) createBounty(creator, title, description string, reward int64, difficultyRaw string, isEncrypted bool, deadline time.Time) (*models.Bounty, error) {
	now := s.Now()

	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if reward <= 0 {
		return nil, fmt.Errorf("%w: reward must be positive", ErrInvalidInput)
	}
	if !deadline.After(now) {
		return nil, fmt.Errorf("%w: deadline must be in the future", ErrInvalidInput)
	}
	difficulty, err := parseDifficulty(difficultyRaw)
	if err != nil {
		return nil, err
	}

	bounty := &models.Bounty{
		Creator:     creator,
		Title:       strings.TrimSpace(title),
		Description: description,
		Reward:      reward,
		Difficulty:  difficulty,
		IsEncrypted: isEncrypted,
		Deadline:    deadline,
		Status:      models.BountyStatusActive,
		CreatedAt:   now,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bounty).Error; err != nil {
			return err
		}

		// Slug needs the assigned id for encrypted bounties, so it is set
		// after the insert, inside the same transaction.
		if bounty.IsEncrypted {
			bounty.Slug = fmt.Sprintf("scroll-%d", bounty.ID)
		} else {
			bounty.Slug = slug.Make(bounty.Title)
		}
		if err := tx.Model(bounty).Update("slug", bounty.Slug).Error; err != nil {
			return err
		}

		// Creator's reputation record comes into being on first posting
		if _, err := ensureReputationRecord(tx, creator); err != nil {
			return err
		}

		eventTitle := bounty.Title
		if bounty.IsEncrypted {
			eventTitle = "" // never leak encrypted content through the event feed
		}
		return recordEvent(tx, &models.LedgerEvent{
			Type:     models.EventBountyCreated,
			BountyID: bounty.ID,
			Actor:    creator,
			Title:    eventTitle,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📜 Bounty %d created by %s (reward=%d, difficulty=%s, encrypted=%t)",
		bounty.ID, creator, reward, difficulty, isEncrypted)
	return bounty, nil
}

// bountyInfo mirrors the shape the detail view expects. Title and
// description are blanked when the caller fails the confidentiality gate.
func (s *BountyService) bountyInfo(bounty *models.Bounty, visible bool) fiber.Map {
	title, description := bounty.Title, bounty.Description
	if !visible {
		title, description = "", ""
	}
	now := s.Now()
	return fiber.Map{
		"id":               bounty.ID,
		"slug":             bounty.Slug,
		"title":            title,
		"description":      description,
		"reward":           bounty.Reward,
		"difficulty":       difficultyLabel(bounty.Difficulty),
		"applicant_count":  bounty.ApplicantCount,
		"is_active":        bounty.Status == models.BountyStatusActive && bounty.Deadline.After(now),
		"is_completed":     bounty.Status == models.BountyStatusCompleted,
		"is_encrypted":     bounty.IsEncrypted,
		"is_visible":       visible,
		"claimed":          bounty.Claimed,
		"creator":          bounty.Creator,
		"deadline":         bounty.Deadline.Unix(),
		"created_at":       bounty.CreatedAt.Unix(),
	}
}

// GetBountyInfo returns one bounty, content-gated for the caller.
func (s *BountyService) GetBountyInfo(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid bounty id"})
	}

	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondError(c, fmt.Errorf("%w: bounty %d", ErrNotFound, id))
		}
		return respondError(c, err)
	}

	visible, err := canView(s.DB, &bounty, caller)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(s.bountyInfo(&bounty, visible))
}

// GetActiveBounties lists bounties still open for submissions. A bounty
// whose deadline has passed is excluded immediately even if the sweep has
// not flipped its status yet. Optional filters match the board's chips:
// ?difficulty=expert and ?encrypted=true.
func (s *BountyService) GetActiveBounties(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)
	now := s.Now()

	query := s.DB.
		Where("status = ?", models.BountyStatusActive).
		Where("deadline > ?", now)

	if raw := c.Query("difficulty"); raw != "" {
		difficulty, err := parseDifficulty(raw)
		if err != nil {
			return respondError(c, err)
		}
		query = query.Where("difficulty = ?", difficulty)
	}
	if raw := c.Query("encrypted"); raw != "" {
		query = query.Where("is_encrypted = ?", strings.EqualFold(raw, "true"))
	}

	var bounties []models.Bounty
	if err := query.Order("created_at DESC").Find(&bounties).Error; err != nil {
		return respondError(c, err)
	}

	out := make([]fiber.Map, 0, len(bounties))
	for i := range bounties {
		visible, err := canView(s.DB, &bounties[i], caller)
		if err != nil {
			return respondError(c, err)
		}
		out = append(out, s.bountyInfo(&bounties[i], visible))
	}

	return c.JSON(fiber.Map{"bounties": out, "count": len(out)})
}

// ExpireDueBounties flips Active bounties past their deadline to Expired
// and emits the expiry event. Called by the scheduler; also safe to call
// ad hoc. Expiry is permanent — nothing ever transitions out of Expired.
func (s *BountyService) ExpireDueBounties() (int, error) {
	now := s.Now()

	var due []models.Bounty
	if err := s.DB.
		Where("status = ? AND deadline <= ?", models.BountyStatusActive, now).
		Find(&due).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		bounty := &due[i]
		unlock := ledgerLocks.lock(bounty.ID)

		err := s.DB.Transaction(func(tx *gorm.DB) error {
			// Re-check under the lock — a decide may have completed the
			// bounty between the scan and now. Completed stays completed.
			var fresh models.Bounty
			if err := tx.First(&fresh, "id = ?", bounty.ID).Error; err != nil {
				return err
			}
			if fresh.Status != models.BountyStatusActive {
				return nil
			}

			if err := tx.Model(&fresh).Update("status", models.BountyStatusExpired).Error; err != nil {
				return err
			}
			return recordEvent(tx, &models.LedgerEvent{
				Type:     models.EventBountyExpired,
				BountyID: fresh.ID,
			})
		})
		unlock.Unlock()

		if err != nil {
			log.Printf("❌ [Sweep] Failed to expire bounty %d: %v", bounty.ID, err)
			continue
		}
		expired++
	}

	return expired, nil
}
