// Package store persists normalized records in bounded batches and reads them
// back for presentation. Concrete backends live in the subpackages.
package store

import (
	"context"
	"time"

	"fastestcars/internal/cars"
)

const DefaultTable = "fastest_cars"

// Row is a record as it exists in the store, ID and ScrapedAt are assigned by
// the backend on insert.
type Row struct {
	ID        int64     `json:"id"`
	ScrapedAt time.Time `json:"scraped_at"`
	cars.Record
}

// Inserter inserts a single batch atomically, the whole batch either lands or
// an error is returned.
type Inserter interface {
	InsertBatch(ctx context.Context, records []cars.Record) error
}

type Reader interface {
	// All returns every row in no particular order.
	All(ctx context.Context) ([]Row, error)
	// Latest returns at most n rows, most recently scraped first.
	Latest(ctx context.Context, n int) ([]Row, error)
}

type Store interface {
	Inserter
	Reader
	Close() error
}
