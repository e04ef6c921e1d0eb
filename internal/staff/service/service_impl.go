package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store       db.TenantScopedStore
	Log         *zap.Logger
	GenID       *snowflake.Node
	Agents      repository.Repository[domain.Agent]
	Departments repository.Repository[domain.Department]
	Clock       clock.Clock
}

type Service struct {
	store       db.TenantScopedStore
	log         *zap.Logger
	genID       *snowflake.Node
	agents      repository.Repository[domain.Agent]
	departments repository.Repository[domain.Department]
	clock       clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		store:       p.Store,
		log:         p.Log.Named("staff.service"),
		genID:       p.GenID,
		agents:      p.Agents,
		departments: p.Departments,
		clock:       p.Clock,
	}
}

func byName(stmt *gorm.DB) *gorm.DB {
	return stmt.Order("name asc, id asc")
}

func (s *Service) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}
	items, err := s.agents.WithTrx(conn).Find(ctx, &domain.Agent{OrgID: orgID}, byName)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (*domain.Agent, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var agent domain.Agent
	err := s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		now := s.clock.Now().UTC()
		agent = domain.Agent{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Name:      name,
			Email:     strings.TrimSpace(req.Email),
			Phone:     strings.TrimSpace(req.Phone),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return s.agents.WithTrx(tx).Create(ctx, &agent)
	})
	if err != nil {
		if err == db.ErrMissingTenant {
			return nil, domain.ErrInvalidOrganization
		}
		return nil, err
	}
	return &agent, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}
	items, err := s.departments.WithTrx(conn).Find(ctx, &domain.Department{OrgID: orgID}, byName)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) CreateDepartment(ctx context.Context, req domain.CreateDepartmentRequest) (*domain.Department, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = name
	}
	code = slug.Make(code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	var dept domain.Department
	err := s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		repo := s.departments.WithTrx(tx)
		existing, err := repo.FindOne(ctx, &domain.Department{OrgID: orgID, Code: code})
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateCode
		}

		now := s.clock.Now().UTC()
		dept = domain.Department{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Name:      name,
			Code:      code,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return repo.Create(ctx, &dept)
	})
	if err != nil {
		switch {
		case err == db.ErrMissingTenant:
			return nil, domain.ErrInvalidOrganization
		case db.IsDuplicateKeyErr(err):
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}
	return &dept, nil
}

func (s *Service) FindAgent(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Agent, error) {
	return s.agents.WithTrx(tx).FindOne(ctx, &domain.Agent{ID: id, OrgID: orgID})
}

func (s *Service) FindDepartment(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Department, error) {
	return s.departments.WithTrx(tx).FindOne(ctx, &domain.Department{ID: id, OrgID: orgID})
}

func (s *Service) AgentsByIDs(ctx context.Context, conn *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Agent, error) {
	out := make(map[snowflake.ID]domain.Agent, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.agents.WithTrx(conn).Find(ctx, &domain.Agent{}, idIn(ids))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = *item
	}
	return out, nil
}

func (s *Service) DepartmentsByIDs(ctx context.Context, conn *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Department, error) {
	out := make(map[snowflake.ID]domain.Department, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.departments.WithTrx(conn).Find(ctx, &domain.Department{}, idIn(ids))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = *item
	}
	return out, nil
}

func (s *Service) RecordAgentOrder(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) error {
	affected, err := s.agents.WithTrx(tx).Updates(ctx, &domain.Agent{ID: id, OrgID: orgID}, map[string]any{
		"total_orders": gorm.Expr("total_orders + ?", 1),
		"updated_at":   s.clock.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvalidAgent
	}
	return nil
}

func idIn(ids []snowflake.ID) repository.Scope {
	return func(stmt *gorm.DB) *gorm.DB {
		return stmt.Where("id IN ?", ids)
	}
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
