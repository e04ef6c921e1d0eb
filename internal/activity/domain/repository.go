package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows activity reads. A zero OrgID spans organizations and is
// only used with target ids that were already scoped.
type ListFilter struct {
	OrgID      snowflake.ID
	TargetType string
	TargetIDs  []snowflake.ID
	Action     string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *ActivityLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]ActivityLog, int64, error)
}
