package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindDefaultOrganization(ctx context.Context) (*Organization, error)
	FindOrganizationByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	CreateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context, orgID snowflake.ID) ([]User, error)
	FindUsersByIDs(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) ([]User, error)
}
