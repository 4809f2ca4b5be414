package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"procurement-api-server/internal/models"
	"procurement-api-server/internal/s3"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ExportHandler is the downstream consumer of the request ledger: it renders
// every submitted request of a day to CSV, pushes it to S3 and marks the
// exported headers. The ledger itself never sets the export flag.
type ExportHandler struct {
	DB         *mongo.Database
	S3Uploader *s3.Uploader
	Prefix     string
}

// ExportDay exports all requests submitted for the date in the URL.
func (h *ExportHandler) ExportDay(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path parameter must be a dd-mm-yyyy date"})
		return
	}

	headerCollection := h.DB.Collection("request_headers")

	cursor, err := headerCollection.Find(context.Background(), bson.M{"date": date})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query request headers"})
		return
	}
	defer cursor.Close(context.Background())

	var headers []models.RequestHeader
	if err = cursor.All(context.Background(), &headers); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode request headers"})
		return
	}

	if len(headers) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "success", "exportedHeaders": 0})
		return
	}

	buf, exportedIDs, err := h.renderCSV(headers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render export file"})
		return
	}

	objectKey := fmt.Sprintf("%s/orders-%s-%s.csv", h.Prefix, date, uuid.New().String()[:8])
	url, err := h.S3Uploader.UploadFile(context.Background(), buf, objectKey, "text/csv")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload export file", "details": err.Error()})
		return
	}

	// Only flip the flag after the upload succeeded.
	_, err = headerCollection.UpdateMany(
		context.Background(),
		bson.M{"_id": bson.M{"$in": exportedIDs}},
		bson.M{"$set": bson.M{"exportedDownstream": true}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export uploaded but flagging headers failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"exportedHeaders": len(exportedIDs),
		"url":             url,
	})
}

func (h *ExportHandler) renderCSV(headers []models.RequestHeader) (*bytes.Buffer, []string, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	record := []string{"headerId", "location", "warehouseCode", "date", "catalog", "costCenter", "productCode", "quantity", "notes", "submittedBy"}
	if err := writer.Write(record); err != nil {
		return nil, nil, err
	}

	positionCollection := h.DB.Collection("request_positions")
	exportedIDs := make([]string, 0, len(headers))
	for _, header := range headers {
		cursor, err := positionCollection.Find(context.Background(), bson.M{"headerId": header.ID})
		if err != nil {
			return nil, nil, err
		}

		var positions []models.RequestPosition
		if err = cursor.All(context.Background(), &positions); err != nil {
			return nil, nil, err
		}

		for _, pos := range positions {
			record = []string{
				header.ID,
				header.Location,
				header.WarehouseCode,
				header.Date,
				header.Catalog,
				header.CostCenter,
				pos.ProductCode,
				strconv.FormatFloat(pos.Quantity, 'f', -1, 64),
				pos.Notes,
				pos.SubmittedBy,
			}
			if err := writer.Write(record); err != nil {
				return nil, nil, err
			}
		}
		exportedIDs = append(exportedIDs, header.ID)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, nil, err
	}
	return buf, exportedIDs, nil
}
