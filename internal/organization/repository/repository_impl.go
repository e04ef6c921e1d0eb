package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/organization/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, slug, is_default, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.IsDefault,
		org.Metadata,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repository) FindDefaultOrganization(ctx context.Context) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, is_default, metadata, created_at, updated_at
		 FROM organizations WHERE is_default = ? ORDER BY created_at ASC LIMIT 1`,
		true,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) FindOrganizationByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, is_default, metadata, created_at, updated_at
		 FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repository) CreateUser(ctx context.Context, user domain.User) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO users (id, org_id, name, email, role, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.OrgID,
		user.Name,
		user.Email,
		user.Role,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repository) ListUsers(ctx context.Context, orgID snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, role, active, created_at, updated_at
		 FROM users WHERE org_id = ? ORDER BY name ASC, id ASC`,
		orgID,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) FindUsersByIDs(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, role, active, created_at, updated_at
		 FROM users WHERE org_id = ? AND id IN ?`,
		orgID,
		ids,
	).Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
