package domain

import "time"

// InventoryRecord mirrors one inventory row. StockQuantity never goes
// negative; the database CHECK constraint enforces that, not this struct.
// All mutation goes through the ledger's two primitives.
type InventoryRecord struct {
	ProductID     string
	StockQuantity int
	UpdatedAt     time.Time
}
