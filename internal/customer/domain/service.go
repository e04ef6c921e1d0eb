package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListCustomerRequest struct {
	Page   int
	Limit  int
	Search string
}

type ListCustomerFilter struct {
	Search string
}

type ListCustomerResponse struct {
	Customers  []Customer          `json:"customers"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type CreateCustomerRequest struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Address string
}

type GetCustomerRequest struct {
	ID string
}

// ResolveRequest identifies the customer of a new order: an explicit id wins,
// then an email match, otherwise a new customer is created from the details.
type ResolveRequest struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Company string
	Address string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)

	// Resolve and RecordOrder run inside the caller's transaction.
	Resolve(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, req ResolveRequest) (*Customer, error)
	Exists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	RecordOrder(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, total decimal.Decimal) error
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Customer, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrNotFound            = errors.New("not_found")
)
