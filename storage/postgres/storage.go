package postgres

import (
	"context"

	"github.com/eqtlab/ledger-syncer/pkg/db"
)

// Storage implements syncer.Ledger via PostgreSQL. Amounts are stored in minor units and
// imported_id is unique, the first import of an id wins.
type Storage struct {
	db *db.DB
}

func New(db *db.DB) *Storage {
	return &Storage{
		db: db,
	}
}

// Shutdown is a no-op: the pool is shared with the job queue and closed by its owner.
func (s *Storage) Shutdown(context.Context) error {
	return nil
}
