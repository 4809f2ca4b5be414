package main

import (
	"log"

	"procurement-api-server/config"
	"procurement-api-server/internal/api/routes"
	"procurement-api-server/internal/auth"
	"procurement-api-server/internal/database"
	"procurement-api-server/internal/s3"
	"procurement-api-server/internal/socket"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load .env (optional) and configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	auth.Init(cfg.JWT.Secret, cfg.JWT.Expiration)

	// 2. Connect to MongoDB
	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	// 3. Make sure the superadmin account exists
	if err := database.SeedSuperAdmin(db, cfg.Seed); err != nil {
		log.Fatalf("Failed to seed super admin: %v", err)
	}

	// 4. S3 uploader for the downstream export
	s3Uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to create S3 uploader: %v", err)
	}

	// 5. WebSocket hub for submission notifications
	wsHub := socket.NewHub()

	// 6. Wire everything into the router
	router := routes.SetupRouter(cfg, db, s3Uploader, wsHub)

	// 7. Start server
	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
