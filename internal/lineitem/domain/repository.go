package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, items []LineItem) error
	Update(ctx context.Context, db *gorm.DB, item LineItem) error
	DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) error
	DeleteByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind OwnerKind, ownerIDs []snowflake.ID) error
	ListByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind OwnerKind, ownerIDs []snowflake.ID) ([]LineItem, error)
}
