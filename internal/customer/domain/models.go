package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Customer struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:idx_customers_org_email,priority:1" json:"orgId"`
	Name       string            `gorm:"not null" json:"name"`
	Email      string            `gorm:"not null;index:idx_customers_org_email,priority:2" json:"email"`
	Phone      string            `gorm:"not null;default:''" json:"phone"`
	Company    string            `gorm:"not null;default:''" json:"company"`
	Address    string            `gorm:"type:text;not null;default:''" json:"address"`
	OrderCount int               `gorm:"not null;default:0" json:"orderCount"`
	TotalSpent decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"totalSpent"`
	Metadata   datatypes.JSONMap `gorm:"not null" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time         `gorm:"not null" json:"updatedAt"`
}

// WalkInEmailDomain marks placeholder addresses given to customers created without an email.
const WalkInEmailDomain = "temp.local"

// Summary is the customer as embedded in quote, invoice and order views.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
}

func (c Customer) Summary() *Summary {
	return &Summary{
		ID:      c.ID.String(),
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.Company,
	}
}
