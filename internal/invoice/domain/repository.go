package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	ID     *snowflake.ID
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	FindByQuoteID(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Invoice, error)
	LinkOrder(ctx context.Context, db *gorm.DB, orgID, id, orderID snowflake.ID) error
	// UnlinkOrders and UnlinkQuotes clear references to deleted documents.
	UnlinkOrders(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderIDs []snowflake.ID) error
	UnlinkQuotes(ctx context.Context, db *gorm.DB, orgID snowflake.ID, quoteIDs []snowflake.ID) error
	DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error)
}
