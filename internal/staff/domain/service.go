package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateAgentRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type Service interface {
	ListAgents(ctx context.Context) ([]Agent, error)
	CreateAgent(ctx context.Context, req CreateAgentRequest) (*Agent, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*Department, error)

	// Order side: lookups and counters inside the caller's transaction.
	FindAgent(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Agent, error)
	FindDepartment(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*Department, error)
	AgentsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Agent, error)
	DepartmentsByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Department, error)
	RecordAgentOrder(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrDuplicateCode       = errors.New("duplicate_code")
	ErrInvalidAgent        = errors.New("invalid_agent")
	ErrInvalidDepartment   = errors.New("invalid_department")
)
