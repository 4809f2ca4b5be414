package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the display format supply request dates are stored in,
// day-month-year, to stay compatible with the upstream catalog convention.
const DateLayout = "02-01-2006"

// RequestHeader is the one-per-(location, warehouse, date) record of a
// submitted supply request. The _id is the stringified sequential ledger ID.
type RequestHeader struct {
	ID            string `bson:"_id" json:"id"`
	Location      string `bson:"location" json:"location"`
	WarehouseCode string `bson:"warehouseCode" json:"warehouseCode"`
	Date          string `bson:"date" json:"date"`
	// DateKey mirrors Date as a UTC-midnight timestamp so a native range
	// index stays possible without a migration.
	DateKey            time.Time `bson:"dateKey" json:"-"`
	Catalog            string    `bson:"catalog" json:"catalog"`
	SubmittedBy        string    `bson:"submittedBy" json:"submittedBy"`
	ExportedDownstream bool      `bson:"exportedDownstream" json:"exportedDownstream"`
	CostCenter         string    `bson:"costCenter,omitempty" json:"costCenter,omitempty"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	// Revision counts replacements. Bumping it forces a write on the header
	// document, so concurrent replaces of the same key always conflict even
	// when the prior submission left zero positions to delete.
	Revision int64 `bson:"revision" json:"-"`
}

// RequestPosition is a single product line owned by exactly one header.
type RequestPosition struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HeaderID    string             `bson:"headerId" json:"headerId"`
	ProductCode string             `bson:"productCode" json:"productCode"`
	Quantity    float64            `bson:"quantity" json:"quantity"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	SubmittedBy string             `bson:"submittedBy" json:"submittedBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Counter stores the last issued value of a named monotonic sequence.
type Counter struct {
	Name      string `bson:"_id" json:"name"`
	CurrentID int64  `bson:"currentId" json:"currentId"`
}
