package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"procurement-api-server/internal/ledger"
	"procurement-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type RoleHandler struct {
	DB *mongo.Database
}

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CreateRole registers a role. Its ID comes from the same sequence allocator
// the request ledger uses, inside a transaction so an abort rolls the
// counter back.
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collection := h.DB.Collection("roles")

	count, err := collection.CountDocuments(c.Request.Context(), bson.M{"name": req.Name})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error checking for role"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Role with this name already exists"})
		return
	}

	session, err := h.DB.Client().StartSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start database session"})
		return
	}
	defer session.EndSession(c.Request.Context())

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		id, err := ledger.NextSequenceID(sessCtx, h.DB, ledger.RoleSequence)
		if err != nil {
			return nil, err
		}

		newRole := models.Role{
			ID:           strconv.FormatInt(id, 10),
			Name:         req.Name,
			Description:  req.Description,
			Applications: []string{},
			CreatedAt:    time.Now(),
		}
		if _, err := collection.InsertOne(sessCtx, newRole); err != nil {
			return nil, err
		}
		return newRole, nil
	}

	result, err := session.WithTransaction(c.Request.Context(), callback)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create role", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result.(models.Role))
}

// GetAllRoles lists every role.
func (h *RoleHandler) GetAllRoles(c *gin.Context) {
	cursor, err := h.DB.Collection("roles").Find(c.Request.Context(), bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query roles"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var roles []models.Role
	if err = cursor.All(c.Request.Context(), &roles); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode roles"})
		return
	}

	if roles == nil {
		roles = []models.Role{}
	}

	c.JSON(http.StatusOK, roles)
}

// GetRoleByID returns one role.
func (h *RoleHandler) GetRoleByID(c *gin.Context) {
	var role models.Role
	err := h.DB.Collection("roles").FindOne(c.Request.Context(), bson.M{"_id": c.Param("id")}).Decode(&role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve role"})
		}
		return
	}

	c.JSON(http.StatusOK, role)
}

type AssignApplicationsRequest struct {
	Applications []string `json:"applications" binding:"required"`
}

// AssignApplications replaces the application list granted to a role.
func (h *RoleHandler) AssignApplications(c *gin.Context) {
	var req AssignApplicationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Collection("roles").UpdateOne(
		c.Request.Context(),
		bson.M{"_id": c.Param("id")},
		bson.M{"$set": bson.M{"applications": req.Applications}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeleteRole removes a role. Its sequence number is never reused.
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	result, err := h.DB.Collection("roles").DeleteOne(c.Request.Context(), bson.M{"_id": c.Param("id")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete role"})
		return
	}
	if result.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
