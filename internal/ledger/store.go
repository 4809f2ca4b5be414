package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"procurement-api-server/internal/models"
)

// maxNotesLen bounds the free-text note on a position.
const maxNotesLen = 500

// Store is the request ledger: header + position persistence with
// replace-on-conflict semantics for the (location, warehouse, date) key.
type Store struct {
	DB *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{DB: db}
}

// Line is one product line of a submission, before persistence.
type Line struct {
	ProductCode string  `json:"productCode"`
	Quantity    float64 `json:"quantity"`
	Notes       string  `json:"notes"`
}

// SubmitInput carries one full daily submission.
type SubmitInput struct {
	Location      string
	WarehouseCode string
	Catalog       string
	Date          string
	CostCenter    string
	SubmittedBy   string
	Lines         []Line
}

// FetchedLine is a position joined with the owning header's export flag.
type FetchedLine struct {
	ProductCode        string    `json:"productCode"`
	Quantity           float64   `json:"quantity"`
	Notes              string    `json:"notes,omitempty"`
	SubmittedBy        string    `json:"submittedBy"`
	CreatedAt          time.Time `json:"createdAt"`
	ExportedDownstream bool      `json:"exportedDownstream"`
}

// filterLines drops lines with non-positive quantity and bounds note length.
// Lenient policy: bad lines are skipped, not rejected.
func filterLines(lines []Line) []Line {
	kept := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if len(line.Notes) > maxNotesLen {
			// Back off to a rune boundary so the cut never leaves
			// invalid UTF-8 behind.
			cut := maxNotesLen
			for cut > 0 && !utf8.RuneStart(line.Notes[cut]) {
				cut--
			}
			line.Notes = line.Notes[:cut]
		}
		kept = append(kept, line)
	}
	return kept
}

func headerKey(location, warehouseCode, date string) bson.M {
	return bson.M{
		"location":      location,
		"warehouseCode": warehouseCode,
		"date":          date,
	}
}

// Submit stores one daily submission as a header plus its positions inside a
// single transaction. Resubmitting for the same (location, warehouse, date)
// replaces the prior line set but keeps the header's ID and creation time.
// Two submits racing on the same key serialize on the store's conflict
// detection: exactly one creates the header, the other replaces its lines
// (or fails with ErrConflict and may be retried).
func (s *Store) Submit(ctx context.Context, input SubmitInput) (*models.RequestHeader, error) {
	dateKey, err := time.Parse(models.DateLayout, input.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid request date %q: %w", input.Date, err)
	}

	session, err := s.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		headers := s.DB.Collection("request_headers")
		positions := s.DB.Collection("request_positions")

		var header models.RequestHeader
		err := headers.FindOne(sessCtx, headerKey(input.Location, input.WarehouseCode, input.Date)).Decode(&header)
		switch {
		case err == mongo.ErrNoDocuments:
			// First submission for this key: mint a ledger-wide ID and
			// create the header. The increment rolls back with the
			// transaction on abort.
			id, err := NextSequenceID(sessCtx, s.DB, HeaderSequence)
			if err != nil {
				return nil, err
			}
			header = models.RequestHeader{
				ID:            strconv.FormatInt(id, 10),
				Location:      input.Location,
				WarehouseCode: input.WarehouseCode,
				Date:          input.Date,
				DateKey:       dateKey,
				Catalog:       input.Catalog,
				SubmittedBy:   input.SubmittedBy,
				CostCenter:    input.CostCenter,
				CreatedAt:     time.Now(),
			}
			if _, err := headers.InsertOne(sessCtx, header); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, err
		default:
			// Replacement: the header (ID, createdAt, export flag) stays
			// untouched, only its line set is rewritten. The revision bump
			// writes the header document so that two replaces racing on the
			// same key serialize on the store's conflict detection, which
			// only watches written documents. Deleting positions alone is
			// not enough: a header with zero positions gives the delete
			// nothing to write.
			if _, err := headers.UpdateOne(sessCtx, bson.M{"_id": header.ID}, bson.M{"$inc": bson.M{"revision": 1}}); err != nil {
				return nil, err
			}
			if _, err := positions.DeleteMany(sessCtx, bson.M{"headerId": header.ID}); err != nil {
				return nil, err
			}
		}

		lines := filterLines(input.Lines)
		if len(lines) == 0 {
			// A submission whose lines all filtered out legally leaves a
			// header with zero positions.
			return header, nil
		}

		now := time.Now()
		docs := make([]interface{}, 0, len(lines))
		for _, line := range lines {
			docs = append(docs, models.RequestPosition{
				HeaderID:    header.ID,
				ProductCode: line.ProductCode,
				Quantity:    line.Quantity,
				Notes:       line.Notes,
				SubmittedBy: input.SubmittedBy,
				CreatedAt:   now,
			})
		}
		if _, err := positions.InsertMany(sessCtx, docs); err != nil {
			return nil, err
		}

		return header, nil
	}

	result, err := session.WithTransaction(ctx, callback)
	if err != nil {
		return nil, wrapTxnErr(err)
	}

	header := result.(models.RequestHeader)
	return &header, nil
}

// Retract deletes the header for the key and all of its positions. A key
// with no header is a no-op, not an error.
func (s *Store) Retract(ctx context.Context, location, warehouseCode, date string) error {
	session, err := s.DB.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		headers := s.DB.Collection("request_headers")

		var header models.RequestHeader
		err := headers.FindOne(sessCtx, headerKey(location, warehouseCode, date)).Decode(&header)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if _, err := s.DB.Collection("request_positions").DeleteMany(sessCtx, bson.M{"headerId": header.ID}); err != nil {
			return nil, err
		}
		if _, err := headers.DeleteOne(sessCtx, bson.M{"_id": header.ID}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if _, err := session.WithTransaction(ctx, callback); err != nil {
		return wrapTxnErr(err)
	}
	return nil
}

// Fetch returns the positions submitted for the key, each joined with the
// header's export flag. SubmittedBy comes from the position, not the header,
// to keep per-line attribution. An absent key yields an empty slice.
// Header and positions are read inside one transaction so the flag and the
// line set come from a single snapshot.
func (s *Store) Fetch(ctx context.Context, location, warehouseCode, date string) ([]FetchedLine, error) {
	session, err := s.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	callback := func(sessCtx mongo.SessionContext) (interface{}, error) {
		var header models.RequestHeader
		err := s.DB.Collection("request_headers").FindOne(sessCtx, headerKey(location, warehouseCode, date)).Decode(&header)
		if err == mongo.ErrNoDocuments {
			return []FetchedLine{}, nil
		}
		if err != nil {
			return nil, err
		}

		cursor, err := s.DB.Collection("request_positions").Find(sessCtx, bson.M{"headerId": header.ID})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(sessCtx)

		var positions []models.RequestPosition
		if err = cursor.All(sessCtx, &positions); err != nil {
			return nil, err
		}

		lines := make([]FetchedLine, 0, len(positions))
		for _, pos := range positions {
			lines = append(lines, FetchedLine{
				ProductCode:        pos.ProductCode,
				Quantity:           pos.Quantity,
				Notes:              pos.Notes,
				SubmittedBy:        pos.SubmittedBy,
				CreatedAt:          pos.CreatedAt,
				ExportedDownstream: header.ExportedDownstream,
			})
		}
		return lines, nil
	}

	result, err := session.WithTransaction(ctx, callback)
	if err != nil {
		return nil, wrapTxnErr(err)
	}
	return result.([]FetchedLine), nil
}
