package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type Entry struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Metadata   map[string]any
}

type ListRequest struct {
	Page       int
	Limit      int
	TargetType string
	TargetID   string
	Action     string
}

type ListResponse struct {
	Activity   []ActivityLog       `json:"activity"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type Service interface {
	// Record writes entry inside tx. The actor and request id come from ctx.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ForTargets(ctx context.Context, db *gorm.DB, orgID snowflake.ID, targetType string, ids []snowflake.ID) (map[snowflake.ID][]ActivityLog, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrInvalidTarget       = errors.New("invalid_target")
)
