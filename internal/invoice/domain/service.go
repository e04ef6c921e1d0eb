package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
)

type Service interface {
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	// Update applies the change and, when the invoice ends up Paid, pushes the
	// payment onto its order, creating the order if there is none yet.
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, ids []string) (int64, error)
}

type ListRequest struct {
	ID     string
	Search string
}

type CreateRequest struct {
	InvoiceNumber string                 `json:"invoiceNumber"`
	CustomerID    string                 `json:"customerId"`
	QuoteID       string                 `json:"quoteId"`
	OrderID       string                 `json:"orderId"`
	LineItems     []lineitemdomain.Input `json:"lineItems"`
	Subtotal      decimal.Decimal        `json:"subtotal"`
	TaxRate       decimal.Decimal        `json:"taxRate"`
	TaxAmount     decimal.Decimal        `json:"taxAmount"`
	Total         decimal.Decimal        `json:"total"`
	Status        string                 `json:"status"`
	DueDate       string                 `json:"dueDate"`
	Notes         string                 `json:"notes"`
	PaymentMethod string                 `json:"paymentMethod"`
}

// UpdateRequest carries only the fields present in the payload. A non-nil
// LineItems replaces the lines by diff.
type UpdateRequest struct {
	ID            string                  `json:"id"`
	InvoiceNumber *string                 `json:"invoiceNumber"`
	CustomerID    *string                 `json:"customerId"`
	LineItems     *[]lineitemdomain.Input `json:"lineItems"`
	Subtotal      *decimal.Decimal        `json:"subtotal"`
	TaxRate       *decimal.Decimal        `json:"taxRate"`
	TaxAmount     *decimal.Decimal        `json:"taxAmount"`
	Total         *decimal.Decimal        `json:"total"`
	Status        *string                 `json:"status"`
	DueDate       *string                 `json:"dueDate"`
	Notes         *string                 `json:"notes"`
	PaymentMethod *string                 `json:"paymentMethod"`
}

type Response struct {
	ID            string                  `json:"id"`
	OrgID         string                  `json:"orgId"`
	InvoiceNumber string                  `json:"invoiceNumber"`
	CustomerID    string                  `json:"customerId"`
	Customer      *customerdomain.Summary `json:"customer,omitempty"`
	QuoteID       *string                 `json:"quoteId"`
	OrderID       *string                 `json:"orderId"`
	LineItems     []lineitemdomain.View   `json:"lineItems"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	TaxRate       decimal.Decimal         `json:"taxRate"`
	TaxAmount     decimal.Decimal         `json:"taxAmount"`
	Total         decimal.Decimal         `json:"total"`
	Status        string                  `json:"status"`
	Date          string                  `json:"date"`
	DueDate       *string                 `json:"dueDate"`
	Notes         string                  `json:"notes"`
	PaymentMethod string                  `json:"paymentMethod"`
	PaidAt        *string                 `json:"paidAt"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidIDs          = errors.New("invalid_ids")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidQuote        = errors.New("invalid_quote")
	ErrInvalidOrder        = errors.New("invalid_order")
	ErrNotFound            = errors.New("not_found")
)
