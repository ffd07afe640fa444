// services/artifact_service.go
package services

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"
	"bounty-vault-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ArtifactService parks solution content in the off-ledger vault before
// submission. The returned content hash is what SubmitSolution expects in
// solution_hash — the ledger itself never stores artifact bytes.
type ArtifactService struct {
	DB *gorm.DB

	Now func() time.Time
}

func NewArtifactService(db *gorm.DB) *ArtifactService {
	return &ArtifactService{DB: db, Now: time.Now}
}

// UploadSolutionArtifact accepts a multipart "artifact" file for a bounty
// still open for submissions and returns its content address.
func (s *ArtifactService) UploadSolutionArtifact(c *fiber.Ctx) error {
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
	if bounty.Closed(s.Now()) {
		return respondError(c, fmt.Errorf("%w: bounty %d no longer accepts solutions", ErrBountyClosed, bountyID))
	}

	fileHeader, err := c.FormFile("artifact")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "artifact file is required"})
	}

	contentHash, err := utils.UploadArtifactToR2(c.Context(), fileHeader)
	if err != nil {
		log.Printf("❌ Artifact upload failed for bounty %d: %v", bountyID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store artifact"})
	}

	log.Printf("📦 Artifact stored for bounty %d by %s (hash=%.12s...)", bountyID, caller, contentHash)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"bounty_id":     bountyID,
		"solution_hash": contentHash,
	})
}
