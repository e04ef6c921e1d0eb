package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows an order listing. A nil OrgID lists every organization.
type ListFilter struct {
	OrgID        *snowflake.ID
	Search       string
	Status       string
	Priority     string
	DepartmentID *snowflake.ID
}

// Children groups the child rows of a set of orders by order id.
type Children struct {
	Items       map[snowflake.ID][]Item
	Assignments map[snowflake.ID][]Assignment
	Attachments map[snowflake.ID][]Attachment
	Proofs      map[snowflake.ID][]Proof
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	InsertAssignments(ctx context.Context, db *gorm.DB, assignments []Assignment) error
	InsertAttachments(ctx context.Context, db *gorm.DB, attachments []Attachment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Order, int64, error)
	// LoadChildren reads child rows by order id; ids must come from already scoped orders.
	LoadChildren(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (Children, error)
	UpdatePayment(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, payment Payment) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, order *Order) error
	// DeleteByIDs removes the orders and their child rows.
	DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error)
}
