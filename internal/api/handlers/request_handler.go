package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"procurement-api-server/internal/ledger"
	"procurement-api-server/internal/models"
	"procurement-api-server/internal/socket"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	Store *ledger.Store
	Hub   *socket.Hub
}

type SubmitRequestPayload struct {
	Catalog    string        `json:"catalog" binding:"required"`
	Date       string        `json:"date" binding:"required"`
	CostCenter string        `json:"costCenter"`
	Lines      []ledger.Line `json:"lines" binding:"required"`
}

// SubmitRequest stores the daily supply request of the caller's warehouse.
// Submitting again for the same date replaces the previous line set.
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	userEmail := c.GetString("user_email")
	location := c.GetString("user_location")
	warehouseCode := c.GetString("user_warehouse_code")

	var payload SubmitRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	header, err := h.Store.Submit(c.Request.Context(), ledger.SubmitInput{
		Location:      location,
		WarehouseCode: warehouseCode,
		Catalog:       payload.Catalog,
		Date:          payload.Date,
		CostCenter:    payload.CostCenter,
		SubmittedBy:   userEmail,
		Lines:         payload.Lines,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent submission conflict, please retry"})
			return
		}
		var parseErr *time.ParseError
		if errors.As(err, &parseErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit request"})
		return
	}

	notification := map[string]interface{}{
		"event":         "request_submitted",
		"location":      header.Location,
		"warehouseCode": header.WarehouseCode,
		"date":          header.Date,
	}
	notificationJSON, _ := json.Marshal(notification)
	for _, userID := range h.Hub.WarehouseAudience(header.WarehouseCode) {
		h.Hub.Send(userID, notificationJSON)
	}

	c.JSON(http.StatusCreated, header)
}

// RetractRequest deletes the caller's request for the given date, if any.
func (h *RequestHandler) RetractRequest(c *gin.Context) {
	location := c.GetString("user_location")
	warehouseCode := c.GetString("user_warehouse_code")

	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'date' is required"})
		return
	}

	if err := h.Store.Retract(c.Request.Context(), location, warehouseCode, date); err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Concurrent modification conflict, please retry"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retract request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetRequest returns the line items ordered by the caller's warehouse on the
// given date. An unknown date yields an empty list.
func (h *RequestHandler) GetRequest(c *gin.Context) {
	location := c.GetString("user_location")
	warehouseCode := c.GetString("user_warehouse_code")

	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'date' is required"})
		return
	}

	lines, err := h.Store.Fetch(c.Request.Context(), location, warehouseCode, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query request"})
		return
	}

	c.JSON(http.StatusOK, lines)
}

// GetActivity returns, per day in [from, to], whether the caller's warehouse
// has a submitted request and whether it was exported downstream. The
// calendar view renders from this.
func (h *RequestHandler) GetActivity(c *gin.Context) {
	location := c.GetString("user_location")
	warehouseCode := c.GetString("user_warehouse_code")

	from, err := time.Parse(models.DateLayout, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'from' must be a dd-mm-yyyy date"})
		return
	}
	to, err := time.Parse(models.DateLayout, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'to' must be a dd-mm-yyyy date"})
		return
	}

	activity, err := h.Store.ListActivity(c.Request.Context(), location, warehouseCode, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query activity"})
		return
	}

	c.JSON(http.StatusOK, activity)
}
