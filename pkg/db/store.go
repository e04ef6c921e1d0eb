package db

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/pkg/rls"
	"gorm.io/gorm"
)

var ErrMissingTenant = errors.New("missing_tenant")

// TenantScopedStore hands out handles bound to the organization carried by the context.
// Writes run inside a transaction that also pins the row-level-security tenant on postgres.
type TenantScopedStore interface {
	Read(ctx context.Context) (*gorm.DB, snowflake.ID, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB, orgID snowflake.ID) error) error
}

// GlobalStore hands out handles that are not restricted to one organization.
// Only cross-tenant invariants (document numbering, super admin reads) go through it.
type GlobalStore interface {
	Read(ctx context.Context) *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type tenantStore struct {
	db *gorm.DB
}

func NewTenantScopedStore(db *gorm.DB) TenantScopedStore {
	return &tenantStore{db: db}
}

func (s *tenantStore) Read(ctx context.Context) (*gorm.DB, snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, 0, ErrMissingTenant
	}
	return s.db.WithContext(ctx), orgID, nil
}

func (s *tenantStore) Transaction(ctx context.Context, fn func(tx *gorm.DB, orgID snowflake.ID) error) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return ErrMissingTenant
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if IsPostgres(tx) {
			if err := rls.WithTenant(tx, orgID); err != nil {
				return err
			}
		}
		return fn(tx, orgID)
	})
}

type globalStore struct {
	db *gorm.DB
}

func NewGlobalStore(db *gorm.DB) GlobalStore {
	return &globalStore{db: db}
}

func (s *globalStore) Read(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *globalStore) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
