package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusDraft   = "Draft"
	StatusSent    = "Sent"
	StatusPaid    = "Paid"
	StatusOverdue = "Overdue"
)

var statuses = []string{StatusDraft, StatusSent, StatusPaid, StatusOverdue}

// NormalizeStatus maps a status case-insensitively onto its canonical spelling.
func NormalizeStatus(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range statuses {
		if strings.EqualFold(s, raw) {
			return s, true
		}
	}
	return "", false
}

type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID    `gorm:"not null;index" json:"orgId"`
	InvoiceNumber string          `gorm:"type:text;not null;index" json:"invoiceNumber"`
	CustomerID    snowflake.ID    `gorm:"not null;index" json:"customerId"`
	QuoteID       *snowflake.ID   `gorm:"index" json:"quoteId,omitempty"`
	OrderID       *snowflake.ID   `gorm:"index" json:"orderId,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"taxRate"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"taxAmount"`
	Total         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	Status        string          `gorm:"type:text;not null" json:"status"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Notes         string          `gorm:"type:text;not null;default:''" json:"notes"`
	PaymentMethod string          `gorm:"type:text;not null;default:''" json:"paymentMethod"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Invoice) TableName() string { return "invoices" }
