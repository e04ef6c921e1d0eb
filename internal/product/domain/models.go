package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Product struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID    `json:"orgId" gorm:"column:org_id;not null;index:idx_products_org_sku,priority:1"`
	SKU         string          `json:"sku" gorm:"column:sku;type:text;not null;index:idx_products_org_sku,priority:2"`
	Name        string          `json:"name" gorm:"type:text;not null"`
	Description string          `json:"description" gorm:"type:text;not null;default:''"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(14,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	TrackStock  bool            `json:"trackStock" gorm:"not null;default:false"`
	Options     datatypes.JSON  `json:"options,omitempty"`
	Active      bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"not null"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
