package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

const (
	DefaultPriority       = "normal"
	DefaultAssignmentRole = "assignee"
)

// Order is a production job moving through the shop's status pipeline.
type Order struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID    `gorm:"not null;index" json:"orgId"`
	OrderNumber   string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_orders_number" json:"orderNumber"`
	CustomerID    snowflake.ID    `gorm:"not null;index" json:"customerId"`
	AgentID       *snowflake.ID   `gorm:"index" json:"agentId,omitempty"`
	DepartmentID  *snowflake.ID   `gorm:"index" json:"departmentId,omitempty"`
	Status        string          `gorm:"type:text;not null" json:"status"`
	Priority      string          `gorm:"type:text;not null" json:"priority"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"taxAmount"`
	Total         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	PaymentStatus string          `gorm:"type:text;not null" json:"paymentStatus"`
	PaidAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"paidAmount"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:''" json:"paymentMethod"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Notes         string          `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt     time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Order) TableName() string { return "orders" }

type Item struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID      `gorm:"not null" json:"orgId"`
	OrderID     snowflake.ID      `gorm:"not null;index" json:"orderId"`
	ProductID   *snowflake.ID     `json:"productId,omitempty"`
	Description string            `gorm:"type:varchar(200);not null" json:"description"`
	Quantity    int               `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Total       decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"total"`
	Options     datatypes.JSONMap `json:"options,omitempty"`
	Position    int               `gorm:"not null" json:"position"`
	CreatedAt   time.Time         `gorm:"not null" json:"createdAt"`
}

func (Item) TableName() string { return "order_items" }

type Assignment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null" json:"orgId"`
	OrderID   snowflake.ID `gorm:"not null;uniqueIndex:ux_order_assignments,priority:1" json:"orderId"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_order_assignments,priority:2" json:"userId"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Assignment) TableName() string { return "order_assignments" }

// Attachment and Proof reference files stored elsewhere by URL.
type Attachment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null" json:"orgId"`
	OrderID   snowflake.ID `gorm:"not null;index" json:"orderId"`
	FileName  string       `gorm:"type:text;not null" json:"fileName"`
	URL       string       `gorm:"column:url;type:text;not null" json:"url"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Attachment) TableName() string { return "order_attachments" }

type Proof struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null" json:"orgId"`
	OrderID   snowflake.ID `gorm:"not null;index" json:"orderId"`
	URL       string       `gorm:"column:url;type:text;not null" json:"url"`
	Status    string       `gorm:"type:text;not null" json:"status"`
	Notes     string       `gorm:"type:text;not null;default:''" json:"notes"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Proof) TableName() string { return "order_proofs" }

// Payment is the payment state mirrored from a paid invoice.
type Payment struct {
	Status    string
	Amount    decimal.Decimal
	Method    string
	UpdatedAt time.Time
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
