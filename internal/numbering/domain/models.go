package domain

import "time"

// Sequence is one monotonically increasing counter row.
type Sequence struct {
	Scope     string    `gorm:"primaryKey;size:64" json:"scope"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Sequence) TableName() string { return "document_sequences" }

const (
	ScopeOrder         = "order"
	scopeInvoicePrefix = "invoice:"
)
