package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the listing and order repositories so both can be
// rebound to a transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx. A nil ctx returns the bare connection.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx != nil {
		return b.db.WithContext(ctx)
	}
	return b.db
}

// WithTx rebinds to tx, or returns b unchanged when tx is nil.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx != nil {
		b.db = tx
	}
	return b
}
