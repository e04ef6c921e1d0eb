package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Build validates inputs and returns unsaved lines for owner.
	Build(orgID snowflake.ID, owner Owner, inputs []Input) ([]LineItem, error)
	// Copy clones lines onto a new owner with fresh ids.
	Copy(items []LineItem, owner Owner) []LineItem
	Create(ctx context.Context, tx *gorm.DB, items []LineItem) error
	// Reconcile applies an incoming payload to the stored lines of owner by diff
	// and returns the resulting lines in position order.
	Reconcile(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, owner Owner, inputs []Input) ([]LineItem, error)
	ListByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind OwnerKind, ownerIDs []snowflake.ID) (map[snowflake.ID][]LineItem, error)
	DeleteByOwners(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind OwnerKind, ownerIDs []snowflake.ID) error
}

var (
	ErrInvalidDescription = errors.New("invalid_line_description")
	ErrInvalidQuantity    = errors.New("invalid_line_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_line_unit_price")
	ErrInvalidProduct     = errors.New("invalid_product")
)
