package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]Product, int64, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	// DecrementStock removes qty units only when that many are available and
	// reports whether a row was changed.
	DecrementStock(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, qty int) (bool, error)
}
