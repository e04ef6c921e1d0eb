package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusDraft    = "Draft"
	StatusSent     = "Sent"
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

var statuses = []string{StatusDraft, StatusSent, StatusAccepted, StatusRejected}

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

type Quote struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"orgId"`
	QuoteNumber string          `gorm:"type:text;not null;default:''" json:"quoteNumber"`
	CustomerID  snowflake.ID    `gorm:"not null;index" json:"customerId"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"taxRate"`
	TaxAmount   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"taxAmount"`
	Total       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	Status      string          `gorm:"type:text;not null" json:"status"`
	ValidUntil  *time.Time      `json:"validUntil,omitempty"`
	Notes       string          `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt   time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Quote) TableName() string { return "quotes" }
