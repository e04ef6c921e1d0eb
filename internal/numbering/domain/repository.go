package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Increment bumps the counter for scope, stamps it with now and returns the
	// new value. It must be called inside a transaction.
	Increment(ctx context.Context, tx *gorm.DB, scope string, now time.Time) (int64, error)
	Current(ctx context.Context, db *gorm.DB, scope string) (int64, error)
}
