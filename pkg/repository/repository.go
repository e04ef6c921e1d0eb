package repository

import (
	"context"

	"gorm.io/gorm"
)

// Scope narrows a query, e.g. by organization or ordering.
type Scope func(*gorm.DB) *gorm.DB

// Repository is a thin generic gorm store for simple reference tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, scopes ...Scope) ([]*T, error)
	FindOne(ctx context.Context, query *T, scopes ...Scope) (*T, error)
	Create(ctx context.Context, resource *T) error
	Updates(ctx context.Context, query *T, values map[string]any) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
}
