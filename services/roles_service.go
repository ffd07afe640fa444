// services/roles_service.go
package services

import (
	"fmt"
	"log"
	"strings"

	"bounty-vault-system/middleware"
	"bounty-vault-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RolesService owns the single owner/verifier assignment row. There is no
// mutation path for roles other than TransferVerifier.
type RolesService struct {
	DB *gorm.DB
}

func NewRolesService(db *gorm.DB) *RolesService {
	return &RolesService{DB: db}
}

// Bootstrap seeds the role row from configuration on first start. On later
// starts the stored row wins — the verifier may have been transferred since
// deploy, and re-seeding would silently undo that.
func (s *RolesService) Bootstrap(owner, verifier string) error {
	owner = strings.ToLower(strings.TrimSpace(owner))
	verifier = strings.ToLower(strings.TrimSpace(verifier))
	if owner == "" || verifier == "" {
		return fmt.Errorf("%w: owner and verifier addresses are required", ErrInvalidInput)
	}

	var existing models.RoleAssignment
	err := s.DB.First(&existing).Error
	if err == nil {
		log.Printf("🔑 Roles already assigned (owner=%s, verifier=%s) — keeping stored row", existing.Owner, existing.Verifier)
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	row := models.RoleAssignment{Owner: owner, Verifier: verifier}
	if err := s.DB.Create(&row).Error; err != nil {
		return err
	}
	log.Printf("🔑 Roles bootstrapped: owner=%s verifier=%s", owner, verifier)
	return nil
}

func currentRoles(tx *gorm.DB) (models.RoleAssignment, error) {
	var roles models.RoleAssignment
	if err := tx.First(&roles).Error; err != nil {
		return roles, fmt.Errorf("role assignment missing: %w", err)
	}
	return roles, nil
}

func (s *RolesService) IsOwner(addr string) bool {
	roles, err := currentRoles(s.DB)
	return err == nil && addr != "" && roles.Owner == addr
}

func (s *RolesService) IsVerifier(addr string) bool {
	roles, err := currentRoles(s.DB)
	return err == nil && addr != "" && roles.Verifier == addr
}

// TransferVerifier hands the verifier role to a new address (owner only).
func (s *RolesService) TransferVerifier(c *fiber.Ctx) error {
	caller := middleware.CallerAddress(c)

	var req struct {
		NewVerifier string `json:"new_verifier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	newVerifier := strings.ToLower(strings.TrimSpace(req.NewVerifier))
	if err := s.transferVerifier(caller, newVerifier); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "verifier transferred", "verifier": newVerifier})
}

func (s *RolesService) transferVerifier(caller, newVerifier string) error {
	if newVerifier == "" {
		return fmt.Errorf("%w: new verifier address is required", ErrInvalidInput)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		roles, err := currentRoles(tx)
		if err != nil {
			return err
		}
		if roles.Owner != caller {
			return fmt.Errorf("%w: only the owner can transfer the verifier role", ErrUnauthorized)
		}

		roles.Verifier = newVerifier
		if err := tx.Save(&roles).Error; err != nil {
			return err
		}

		log.Printf("🔑 Verifier transferred to %s by %s", newVerifier, caller)
		return nil
	})
}
