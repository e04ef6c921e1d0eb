package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)

	// Reserve looks up a product for an order line and takes qty units of
	// stock when the product tracks stock. It runs in the caller's transaction.
	Reserve(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, qty int) (*Product, error)
}

type ListRequest struct {
	Page   int
	Limit  int
	Search string
	Active *bool
}

type ListFilter struct {
	Search string
	Active *bool
}

type CreateRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	TrackStock  bool            `json:"trackStock"`
	Options     json.RawMessage `json:"options"`
	Active      *bool           `json:"active"`
}

type UpdateRequest struct {
	ID          string           `json:"-"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	TrackStock  *bool            `json:"trackStock"`
	Options     json.RawMessage  `json:"options"`
	Active      *bool            `json:"active"`
}

type Response struct {
	ID          string          `json:"id"`
	OrgID       string          `json:"orgId"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	TrackStock  bool            `json:"trackStock"`
	Active      bool            `json:"active"`
	Options     Options         `json:"options"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type ListResponse struct {
	Products   []Response          `json:"products"`
	Pagination pagination.PageInfo `json:"pagination"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidStock        = errors.New("invalid_stock")
	ErrInvalidOptions      = errors.New("invalid_options")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidProduct      = errors.New("invalid_product")
	ErrInsufficientStock   = errors.New("insufficient_stock")
	ErrNotFound            = errors.New("not_found")
)
