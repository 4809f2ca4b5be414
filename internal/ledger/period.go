package ledger

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"procurement-api-server/internal/models"
)

// DayActivity marks one day in a period that has a submitted request.
// Days with no header are absent from the result entirely.
type DayActivity struct {
	Date               string `json:"date"`
	HasRequest         bool   `json:"hasRequest"`
	ExportedDownstream bool   `json:"exportedDownstream"`
}

// ListActivity reports which days in [from, to] (inclusive, day granularity)
// have a submitted request for the location and warehouse, and whether it was
// already exported downstream.
//
// Dates are persisted in a display format the store cannot range-query, so
// every header for the pair is materialized and filtered after parsing.
func (s *Store) ListActivity(ctx context.Context, location, warehouseCode string, from, to time.Time) ([]DayActivity, error) {
	cursor, err := s.DB.Collection("request_headers").Find(ctx, bson.M{
		"location":      location,
		"warehouseCode": warehouseCode,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var headers []models.RequestHeader
	if err = cursor.All(ctx, &headers); err != nil {
		return nil, err
	}

	return activityInRange(headers, from, to), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// activityInRange keeps headers whose parsed date falls inside the inclusive
// interval and folds them into per-day records. A header counts as activity
// even when its submission filtered down to zero positions.
func activityInRange(headers []models.RequestHeader, from, to time.Time) []DayActivity {
	from = truncateToDay(from)
	to = truncateToDay(to)

	byDay := make(map[string]DayActivity)
	for _, header := range headers {
		day, err := time.Parse(models.DateLayout, header.Date)
		if err != nil {
			// Unparseable date on a stored header; skip it.
			continue
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		activity := byDay[header.Date]
		activity.Date = header.Date
		activity.HasRequest = true
		activity.ExportedDownstream = activity.ExportedDownstream || header.ExportedDownstream
		byDay[header.Date] = activity
	}

	result := make([]DayActivity, 0, len(byDay))
	for _, activity := range byDay {
		result = append(result, activity)
	}
	sort.Slice(result, func(i, j int) bool {
		a, _ := time.Parse(models.DateLayout, result[i].Date)
		b, _ := time.Parse(models.DateLayout, result[j].Date)
		return a.Before(b)
	})
	return result
}
