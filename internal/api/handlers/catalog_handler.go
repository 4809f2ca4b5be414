package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"procurement-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type CatalogHandler struct {
	DB *mongo.Database
}

type CreateProductRequest struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Unit        string `json:"unit" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Catalog     string `json:"catalog" binding:"required"`
}

// CreateProduct adds a catalog entry.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := h.DB.Collection("products")

	count, err := collection.CountDocuments(context.Background(), bson.M{"sku": req.SKU})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking for product"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Product with this SKU already exists"})
		return
	}

	newProduct := models.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
		Category:    req.Category,
		Catalog:     req.Catalog,
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	result, err := collection.InsertOne(context.Background(), newProduct)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		newProduct.ID = oid
	}

	c.JSON(http.StatusCreated, newProduct)
}

// BrowseProducts lists catalog entries, optionally filtered by category,
// catalog, active state or a name search.
func (h *CatalogHandler) BrowseProducts(c *gin.Context) {
	filter := bson.M{}
	if category := c.Query("category"); category != "" {
		filter["category"] = category
	}
	if catalog := c.Query("catalog"); catalog != "" {
		filter["catalog"] = catalog
	}
	if active := c.Query("active"); active != "" {
		filter["active"] = active == "true"
	}
	if search := c.Query("search"); search != "" {
		filter["name"] = bson.M{"$regex": search, "$options": "i"}
	}

	cursor, err := h.DB.Collection("products").Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query products"})
		return
	}
	defer cursor.Close(context.Background())

	var products []models.Product
	if err = cursor.All(context.Background(), &products); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode products"})
		return
	}

	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, products)
}

// GetProductBySKU returns one catalog entry.
func (h *CatalogHandler) GetProductBySKU(c *gin.Context) {
	var product models.Product
	err := h.DB.Collection("products").FindOne(context.Background(), bson.M{"sku": c.Param("sku")}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		}
		return
	}

	c.JSON(http.StatusOK, product)
}

type UpdateProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Category    string `json:"category"`
	Active      *bool  `json:"active"`
}

// UpdateProduct changes the mutable fields of a catalog entry.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.Description != "" {
		update["description"] = req.Description
	}
	if req.Unit != "" {
		update["unit"] = req.Unit
	}
	if req.Category != "" {
		update["category"] = req.Category
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}

	result, err := h.DB.Collection("products").UpdateOne(
		context.Background(),
		bson.M{"sku": c.Param("sku")},
		bson.M{"$set": update},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeleteProduct removes a catalog entry.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	result, err := h.DB.Collection("products").DeleteOne(context.Background(), bson.M{"sku": c.Param("sku")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
