// handlers/bounty_routes.go
package handlers

import (
	"bounty-vault-system/middleware"
	"bounty-vault-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(
	app *fiber.App,
	bountyService *services.BountyService,
	solutionService *services.SolutionService,
	escrowService *services.EscrowService,
	confidentialityService *services.ConfidentialityService,
	artifactService *services.ArtifactService,
	eventService *services.EventService,
) {
	// 🔓 Public reads — no caller required, but **still behind Gateway auth**.
	// The caller header is honored when present so creators/grantees see
	// encrypted content even on the public surface.
	public := app.Group("/", middleware.CallerContextMiddleware())
	public.Get("/bounties", bountyService.GetActiveBounties)
	public.Get("/bounties/:id", bountyService.GetBountyInfo)

	// 🔐 Secured routes — wallet context required, enforced via middleware
	secured := app.Group("/s", middleware.CallerContextMiddleware())

	secured.Post("/bounties", bountyService.CreateBounty)
	secured.Post("/bounties/:id/solutions", solutionService.SubmitSolution)
	secured.Get("/bounties/:id/solutions", solutionService.GetBountySolutions)
	secured.Post("/solutions/:id/decision", solutionService.DecideSolution)
	secured.Post("/bounties/:id/claim", escrowService.ClaimReward)
	secured.Post("/bounties/:id/disclose", confidentialityService.Disclose)
	secured.Post("/bounties/:id/artifact", artifactService.UploadSolutionArtifact)

	// Live feed for the board and external indexers
	secured.Get("/events/stream", eventService.StreamLedgerEventsSSE)
}
