// services/errors.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Ledger error taxonomy. Every mutating call fails with exactly one of
// these (or a wrapped DB error); nothing is retried internally and no
// partial state is ever committed alongside them.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrBountyClosed      = errors.New("bounty closed")
	ErrAlreadyClaimed    = errors.New("reward already claimed")
)

// respondError maps ledger errors onto HTTP statuses. 401 is reserved for
// the middleware (missing gateway/caller context); a known caller lacking a
// role or relationship gets 403.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrAlreadyClaimed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrBountyClosed):
		// stale-view signal — clients should refresh their listings
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("❌ [LEDGER] internal error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
