package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LineItem is a priced line shared by quotes and invoices. Exactly one of
// QuoteID and InvoiceID is set.
type LineItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"orgId"`
	QuoteID     *snowflake.ID   `gorm:"index" json:"quoteId,omitempty"`
	InvoiceID   *snowflake.ID   `gorm:"index" json:"invoiceId,omitempty"`
	ProductID   *snowflake.ID   `json:"productId,omitempty"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Total       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	Position    int             `gorm:"not null" json:"position"`
	CreatedAt   time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updatedAt"`
}

func (LineItem) TableName() string { return "line_items" }

type OwnerKind string

const (
	OwnerQuote   OwnerKind = "quote"
	OwnerInvoice OwnerKind = "invoice"
)

// Column is the foreign key column holding the owner id.
func (k OwnerKind) Column() string {
	if k == OwnerInvoice {
		return "invoice_id"
	}
	return "quote_id"
}

type Owner struct {
	Kind OwnerKind
	ID   snowflake.ID
}

// Input is one incoming line as submitted by a client. ID is empty for new lines.
type Input struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

// View is the wire shape of a line item.
type View struct {
	ID          string          `json:"id"`
	ProductID   *string         `json:"productId"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Total       decimal.Decimal `json:"total"`
}

func (l LineItem) View() View {
	v := View{
		ID:          l.ID.String(),
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Total:       l.Total,
	}
	if l.ProductID != nil {
		id := l.ProductID.String()
		v.ProductID = &id
	}
	return v
}

// Views converts lines to their wire shape, never returning nil.
func Views(items []LineItem) []View {
	out := make([]View, 0, len(items))
	for _, item := range items {
		out = append(out, item.View())
	}
	return out
}

// Totals returns the line totals in order.
func Totals(items []LineItem) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		out = append(out, item.Total)
	}
	return out
}

// Plan is the set of row changes that brings stored lines in line with a payload.
type Plan struct {
	Updates []LineItem
	Inserts []LineItem
	Deletes []snowflake.ID
}

// OwnerID returns the id of the document of the given kind this line belongs to.
func (l LineItem) OwnerID(kind OwnerKind) snowflake.ID {
	ref := l.QuoteID
	if kind == OwnerInvoice {
		ref = l.InvoiceID
	}
	if ref == nil {
		return 0
	}
	return *ref
}
