package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActivityLog records one action taken on a document of an organization.
type ActivityLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:idx_activity_target,priority:1" json:"orgId"`
	ActorType  string            `gorm:"type:text;not null" json:"actorType"`
	ActorID    *string           `gorm:"type:text" json:"actorId,omitempty"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"type:text;not null;index:idx_activity_target,priority:2" json:"targetType"`
	TargetID   snowflake.ID      `gorm:"not null;index:idx_activity_target,priority:3" json:"targetId"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"createdAt"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

const (
	TargetOrder   = "order"
	TargetInvoice = "invoice"
	TargetQuote   = "quote"
)

const (
	ActionOrderCreated       = "order.created"
	ActionOrderStatusChanged = "order.status_changed"
	ActionOrderPaid          = "order.paid"
	ActionInvoiceCreated     = "invoice.created"
	ActionInvoicePaid        = "invoice.paid"
	ActionQuoteAccepted      = "quote.accepted"
)
