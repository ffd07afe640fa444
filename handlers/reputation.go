// handlers/reputation_routes.go
package handlers

import (
	"bounty-vault-system/middleware"
	"bounty-vault-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReputationRoutes(app *fiber.App, reputationService *services.ReputationService, rolesService *services.RolesService) {
	// 🔓 Public read — reputation tallies are not confidential
	app.Get("/reputation/:address", reputationService.GetUserReputation)

	// Admin endpoints — role checks happen inside the services against the
	// stored assignment row, not against gateway role headers.
	adminGroup := app.Group("/s/admin", middleware.CallerContextMiddleware())

	adminGroup.Post("/verifier/transfer", rolesService.TransferVerifier)
	adminGroup.Post("/reputation/:address/verify", reputationService.MarkVerified)
}
