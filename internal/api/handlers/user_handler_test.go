package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"procurement-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupHandlerDB(t *testing.T) *mongo.Database {
	_ = godotenv.Load("../../../.env")

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Failed to connect to test MongoDB: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	db := client.Database("procurement_test_" + uuid.New().String()[:8])
	t.Cleanup(func() { db.Drop(context.Background()) })

	return db
}

func TestGetUserByEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlerDB(t)

	_, err := db.Collection("users").InsertOne(context.Background(), models.User{
		Email:         "worker@example.com",
		Name:          "Worker",
		Role:          "requester",
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Status:        "active",
	})
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	handler := &UserHandler{DB: db}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "email", Value: "worker@example.com"}}

	handler.GetUserByEmail(c)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for an existing user, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlerDB(t)

	handler := &UserHandler{DB: db}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "email", Value: "ghost@example.com"}}

	handler.GetUserByEmail(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for a missing user, got %d", w.Code)
	}
}
