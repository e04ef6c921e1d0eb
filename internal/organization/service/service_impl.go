package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/organization/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	store db.TenantScopedStore
	repo  domain.Repository
	genID *snowflake.Node
	log   *zap.Logger
	clock clock.Clock
}

func NewService(conn *gorm.DB, store db.TenantScopedStore, repo domain.Repository, genID *snowflake.Node, log *zap.Logger, clk clock.Clock) domain.Service {
	return &service{
		db:    conn,
		store: store,
		repo:  repo,
		genID: genID,
		log:   log.Named("organization.service"),
		clock: clk,
	}
}

func (s *service) EnsureDefault(ctx context.Context, name string) (*domain.OrganizationResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	existing, err := s.repo.FindDefaultOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return toOrganizationResponse(existing), nil
	}

	now := s.clock.Now().UTC()
	org := domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		IsDefault: true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateOrganization(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("created default organization", zap.String("org_id", org.ID.String()), zap.String("slug", org.Slug))
	return toOrganizationResponse(&org), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	orgID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	org, err := s.repo.FindOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return toOrganizationResponse(org), nil
}

func (s *service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	var user domain.User
	err := s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		now := s.clock.Now().UTC()
		user = domain.User{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Name:      name,
			Email:     email,
			Role:      role,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.repo.WithTx(tx).CreateUser(ctx, user)
	})
	if err != nil {
		if err == db.ErrMissingTenant {
			return nil, domain.ErrInvalidOrganization
		}
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrInvalidEmail
		}
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *service) ListUsers(ctx context.Context) ([]domain.UserResponse, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	users, err := s.repo.WithTx(conn).ListUsers(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	return resp, nil
}

func (s *service) ActiveUsers(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.User, error) {
	users, err := s.repo.WithTx(tx).FindUsersByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.User, len(users))
	for _, u := range users {
		if !u.Active {
			continue
		}
		out[u.ID] = u
	}
	return out, nil
}

func toOrganizationResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		IsDefault: org.IsDefault,
	}
}

func toUserResponse(u domain.User) domain.UserResponse {
	return domain.UserResponse{
		ID:        u.ID.String(),
		OrgID:     u.OrgID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
