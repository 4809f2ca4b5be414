package database

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"procurement-api-server/config"
	"procurement-api-server/internal/auth"
	"procurement-api-server/internal/models"
)

// SeedSuperAdmin creates the superadmin account on first boot.
func SeedSuperAdmin(db *mongo.Database, cfg config.SeedConfig) error {
	userCollection := db.Collection("users")

	email := cfg.SuperAdminEmail
	if email == "" {
		email = "superadmin@example.com"
	}

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": email})
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("Super admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Super admin not found. Seeding...")
	password := cfg.SuperAdminPassword
	if password == "" {
		password = "superadminpassword"
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	superAdmin := models.User{
		Email:         email,
		Name:          "Super Admin",
		Password:      hashedPassword,
		Role:          "superadmin",
		Location:      "system",
		WarehouseCode: "system",
		Status:        "active",
	}

	_, err = userCollection.InsertOne(context.Background(), superAdmin)
	if err != nil {
		return err
	}

	log.Println("Super admin seeded successfully.")
	return nil
}
