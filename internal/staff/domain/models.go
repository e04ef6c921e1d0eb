package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Agent is a sales agent credited with the orders they bring in.
type Agent struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"orgId"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Email       string       `gorm:"type:text;not null;default:''" json:"email"`
	Phone       string       `gorm:"type:text;not null;default:''" json:"phone"`
	TotalOrders int          `gorm:"not null;default:0" json:"totalOrders"`
	CreatedAt   time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Agent) TableName() string { return "agents" }

// Department is a production department orders are routed to.
type Department struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;uniqueIndex:ux_departments_org_code,priority:1" json:"orgId"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Code      string       `gorm:"type:text;not null;uniqueIndex:ux_departments_org_code,priority:2" json:"code"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

func (Department) TableName() string { return "departments" }
