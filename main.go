package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bounty-vault-system/handlers"
	"bounty-vault-system/middleware"
	"bounty-vault-system/models"
	"bounty-vault-system/services"
	"bounty-vault-system/utils"
	"bounty-vault-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 100 * 1024 * 1024, // 100MB — solution artifacts go through here
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Caller-Address, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Bounty{},
		&models.Solution{},
		&models.ReputationRecord{},
		&models.DisclosureGrant{},
		&models.RoleAssignment{},
		&models.LedgerEvent{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Role bootstrap: owner fixed at init, verifier transferable ---
	ownerAddress := os.Getenv("OWNER_ADDRESS")
	if ownerAddress == "" {
		log.Fatal("OWNER_ADDRESS environment variable not set")
	}
	verifierAddress := os.Getenv("VERIFIER_ADDRESS")
	if verifierAddress == "" {
		log.Fatal("VERIFIER_ADDRESS environment variable not set")
	}

	rolesService := services.NewRolesService(db)
	if err := rolesService.Bootstrap(ownerAddress, verifierAddress); err != nil {
		log.Fatal("failed to bootstrap roles:", err)
	}

	bountyService := services.NewBountyService(db)
	solutionService := services.NewSolutionService(db)
	reputationService := services.NewReputationService(db)
	escrowService := services.NewEscrowService(db)
	confidentialityService := services.NewConfidentialityService(db)
	artifactService := services.NewArtifactService(db)
	eventService := services.NewEventService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Committed events flow out to the payment/indexing webhook
	dispatchClient := workers.NewEventDispatchClient(db)
	go workers.DispatchEvents(ctx, dispatchClient, 5*time.Second)

	bountyService.StartExpirySweeper()

	// ✅ Setup routes — enforced Gateway auth + /s/ prefix for mutations
	handlers.SetupBountyRoutes(app, bountyService, solutionService, escrowService, confidentialityService, artifactService, eventService)
	handlers.SetupReputationRoutes(app, reputationService, rolesService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Ledger running on http://localhost:5300")
	log.Println("✅ Expiry sweeper running (every 1m)")
	log.Println("✅ Event dispatch running (every 5s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down ledger...")
}
