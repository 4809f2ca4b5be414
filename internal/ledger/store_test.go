package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestFilterLines(t *testing.T) {
	lines := []Line{
		{ProductCode: "P1", Quantity: 0},
		{ProductCode: "P2", Quantity: 3},
		{ProductCode: "P3", Quantity: -1},
	}

	kept := filterLines(lines)

	if len(kept) != 1 {
		t.Fatalf("Expected 1 surviving line, got %d: %v", len(kept), kept)
	}
	if kept[0].ProductCode != "P2" || kept[0].Quantity != 3 {
		t.Errorf("Wrong line survived: %v", kept[0])
	}
}

func TestFilterLines_TruncatesNotes(t *testing.T) {
	long := strings.Repeat("x", maxNotesLen+100)
	kept := filterLines([]Line{{ProductCode: "P1", Quantity: 1, Notes: long}})

	if len(kept) != 1 || len(kept[0].Notes) != maxNotesLen {
		t.Fatalf("Notes must be bounded to %d chars, got %d", maxNotesLen, len(kept[0].Notes))
	}
}

func TestFilterLines_TruncatesNotesOnRuneBoundary(t *testing.T) {
	// The two-byte "ä" straddles the length limit; a byte-boundary cut
	// would persist invalid UTF-8.
	notes := strings.Repeat("x", maxNotesLen-1) + "äb"
	kept := filterLines([]Line{{ProductCode: "P1", Quantity: 1, Notes: notes}})

	if len(kept) != 1 {
		t.Fatalf("Expected 1 surviving line, got %d", len(kept))
	}
	if !utf8.ValidString(kept[0].Notes) {
		t.Errorf("Truncation produced invalid UTF-8: %q", kept[0].Notes)
	}
	if len(kept[0].Notes) > maxNotesLen {
		t.Errorf("Notes must stay within %d bytes, got %d", maxNotesLen, len(kept[0].Notes))
	}
	if len(kept[0].Notes) != maxNotesLen-1 {
		t.Errorf("Expected the cut to back off to the rune boundary at %d, got %d", maxNotesLen-1, len(kept[0].Notes))
	}
}

// setupTestStore connects to the Mongo instance named by TEST_MONGO_URI.
// Transactions need a replica set, so the tests skip when it is unset.
func setupTestStore(t *testing.T) *Store {
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping integration test (requires a replica-set MongoDB)")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("Failed to connect to test MongoDB: %v", err)
	}
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	// A throwaway database per test run keeps runs independent.
	db := client.Database("procurement_test_" + uuid.New().String()[:8])
	t.Cleanup(func() { db.Drop(context.Background()) })

	return NewStore(db)
}

func TestSubmit_IdempotentKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	input := SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "05-06-2024",
		SubmittedBy:   "user@example.com",
		Lines:         []Line{{ProductCode: "P1", Quantity: 2}},
	}

	first, err := store.Submit(ctx, input)
	if err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	// Resubmit for the same key with a different line set.
	input.Lines = []Line{
		{ProductCode: "P2", Quantity: 5},
		{ProductCode: "P3", Quantity: 1},
	}
	second, err := store.Submit(ctx, input)
	if err != nil {
		t.Fatalf("Second submit failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Replacement must keep the header ID: first=%s second=%s", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Replacement must keep createdAt: first=%v second=%v", first.CreatedAt, second.CreatedAt)
	}

	lines, err := store.Fetch(ctx, input.Location, input.WarehouseCode, input.Date)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Fetch must return exactly the last submission, got %d lines", len(lines))
	}
	for _, line := range lines {
		if line.ProductCode == "P1" {
			t.Errorf("Stale line from the first submission survived: %v", line)
		}
	}
}

func TestSubmit_FilterLaw(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Submit(ctx, SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "06-06-2024",
		SubmittedBy:   "user@example.com",
		Lines: []Line{
			{ProductCode: "P1", Quantity: 0},
			{ProductCode: "P2", Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "06-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductCode != "P2" || lines[0].Quantity != 3 {
		t.Fatalf("Expected only P2 qty 3 to persist, got %v", lines)
	}
}

func TestSubmit_AllLinesFilteredLeavesEmptyHeader(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	header, err := store.Submit(ctx, SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "07-06-2024",
		SubmittedBy:   "user@example.com",
		Lines:         []Line{{ProductCode: "P1", Quantity: 0}},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "07-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected zero positions, got %v", lines)
	}

	// The header still exists and its day counts as active.
	activity, err := store.ListActivity(ctx, "hamburg", "WH-01", day("01-06-2024"), day("30-06-2024"))
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	found := false
	for _, record := range activity {
		if record.Date == header.Date && record.HasRequest {
			found = true
		}
	}
	if !found {
		t.Errorf("Header without positions must still mark its day active: %v", activity)
	}
}

func TestSubmit_InvalidDate(t *testing.T) {
	store := &Store{} // no DB round trip needed, the date check comes first

	_, err := store.Submit(context.Background(), SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Date:          "2024-06-05",
		Lines:         []Line{{ProductCode: "P1", Quantity: 1}},
	})
	if err == nil {
		t.Fatal("Submit must reject a date that is not dd-mm-yyyy")
	}
}

func TestRetractThenFetch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Retracting a key that never existed is a no-op.
	if err := store.Retract(ctx, "hamburg", "WH-01", "08-06-2024"); err != nil {
		t.Fatalf("Retract on missing key must not error: %v", err)
	}

	_, err := store.Submit(ctx, SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "08-06-2024",
		SubmittedBy:   "user@example.com",
		Lines:         []Line{{ProductCode: "P1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if err := store.Retract(ctx, "hamburg", "WH-01", "08-06-2024"); err != nil {
		t.Fatalf("Retract failed: %v", err)
	}

	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "08-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Fetch after retract must be empty, got %v", lines)
	}

	// Orphaned positions must not survive the retract either.
	count, err := store.DB.Collection("request_positions").CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Retract left %d orphaned positions", count)
	}
}

func TestSubmit_ConcurrentSameKey(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := SubmitInput{
				Location:      "hamburg",
				WarehouseCode: "WH-01",
				Catalog:       "standard",
				Date:          "09-06-2024",
				SubmittedBy:   fmt.Sprintf("user%d@example.com", n),
				Lines:         []Line{{ProductCode: fmt.Sprintf("P%d", n), Quantity: float64(n + 1)}},
			}
			// Conflicts are retryable by contract.
			for {
				_, err := store.Submit(ctx, input)
				if errors.Is(err, ErrConflict) {
					continue
				}
				errs[n] = err
				return
			}
		}(i)
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Fatalf("Worker %d failed: %v", n, err)
		}
	}

	count, err := store.DB.Collection("request_headers").CountDocuments(ctx, bson.M{
		"location":      "hamburg",
		"warehouseCode": "WH-01",
		"date":          "09-06-2024",
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Exactly one header must exist for the key, found %d", count)
	}

	// The surviving line set belongs to exactly one submission, never an
	// interleaving of two.
	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "09-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected one consistent line set, got %v", lines)
	}
}

func TestSubmit_ConcurrentReplaceOfEmptyHeader(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// A prior submission whose lines all filtered out: the header exists
	// with zero positions, so a later replace finds nothing to delete. The
	// racing replaces below must still serialize and leave exactly one
	// submission's line set, never a union.
	_, err := store.Submit(ctx, SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "11-06-2024",
		SubmittedBy:   "user@example.com",
		Lines:         []Line{{ProductCode: "P0", Quantity: 0}},
	})
	if err != nil {
		t.Fatalf("Seeding the empty header failed: %v", err)
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := SubmitInput{
				Location:      "hamburg",
				WarehouseCode: "WH-01",
				Catalog:       "standard",
				Date:          "11-06-2024",
				SubmittedBy:   fmt.Sprintf("user%d@example.com", n),
				Lines:         []Line{{ProductCode: fmt.Sprintf("P%d", n+1), Quantity: float64(n + 1)}},
			}
			for {
				_, err := store.Submit(ctx, input)
				if errors.Is(err, ErrConflict) {
					continue
				}
				errs[n] = err
				return
			}
		}(i)
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Fatalf("Worker %d failed: %v", n, err)
		}
	}

	count, err := store.DB.Collection("request_headers").CountDocuments(ctx, bson.M{
		"location":      "hamburg",
		"warehouseCode": "WH-01",
		"date":          "11-06-2024",
	})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Exactly one header must exist for the key, found %d", count)
	}

	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "11-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Line set must belong to exactly one submission, got %v", lines)
	}
}

func TestExportFlagPassthrough(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	header, err := store.Submit(ctx, SubmitInput{
		Location:      "hamburg",
		WarehouseCode: "WH-01",
		Catalog:       "standard",
		Date:          "10-06-2024",
		SubmittedBy:   "user@example.com",
		Lines:         []Line{{ProductCode: "P1", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The downstream export process flips the flag outside the ledger.
	_, err = store.DB.Collection("request_headers").UpdateOne(
		ctx,
		bson.M{"_id": header.ID},
		bson.M{"$set": bson.M{"exportedDownstream": true}},
	)
	if err != nil {
		t.Fatalf("Flagging header failed: %v", err)
	}

	lines, err := store.Fetch(ctx, "hamburg", "WH-01", "10-06-2024")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(lines) != 1 || !lines[0].ExportedDownstream {
		t.Errorf("Fetch must reflect the export flag without re-submission: %v", lines)
	}

	activity, err := store.ListActivity(ctx, "hamburg", "WH-01", day("01-06-2024"), day("30-06-2024"))
	if err != nil {
		t.Fatalf("ListActivity failed: %v", err)
	}
	for _, record := range activity {
		if record.Date == "10-06-2024" && !record.ExportedDownstream {
			t.Errorf("ListActivity must reflect the export flag: %v", record)
		}
	}
}
