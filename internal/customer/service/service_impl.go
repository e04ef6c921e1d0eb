package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/customer/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store    db.TenantScopedStore
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock
	Workflow *config.WorkflowConfigHolder `optional:"true"`
}

type Service struct {
	store    db.TenantScopedStore
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	workflow *config.WorkflowConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		store:    p.Store,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		workflow: p.Workflow,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	var customer domain.Customer
	err := s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		customer = s.newCustomer(orgID, name, email, req.Phone, req.Company, req.Address)
		return s.repo.Insert(ctx, tx, &customer)
	})
	if err != nil {
		return domain.Customer{}, s.tenantErr(err)
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return domain.ListCustomerResponse{}, s.tenantErr(err)
	}

	wf := s.workflow.Get()
	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize(wf.DefaultPageSize, wf.MaxPageSize)

	items, total, err := s.repo.List(ctx, conn, orgID, domain.ListCustomerFilter{
		Search: strings.TrimSpace(req.Search),
	}, page)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{
		Customers:  customers,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return domain.Customer{}, s.tenantErr(err)
	}

	id, err := parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, conn, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, req domain.ResolveRequest) (*domain.Customer, error) {
	if raw := strings.TrimSpace(req.ID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, domain.ErrInvalidCustomer
		}
		customer, err := s.repo.FindByID(ctx, tx, orgID, id)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, domain.ErrInvalidCustomer
		}
		return customer, nil
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if !strings.Contains(email, "@") {
			return nil, domain.ErrInvalidEmail
		}
		existing, err := s.repo.FindByEmail(ctx, tx, orgID, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	} else {
		email = fmt.Sprintf("walkin-%d@%s", s.clock.Now().UnixMilli(), domain.WalkInEmailDomain)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Walk-in Customer"
	}

	customer := s.newCustomer(orgID, name, email, req.Phone, req.Company, req.Address)
	if err := s.repo.Insert(ctx, tx, &customer); err != nil {
		return nil, err
	}
	s.log.Debug("created customer for order", zap.String("customer_id", customer.ID.String()))
	return &customer, nil
}

func (s *Service) Exists(ctx context.Context, conn *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	customer, err := s.repo.FindByID(ctx, conn, orgID, id)
	if err != nil {
		return false, err
	}
	return customer != nil, nil
}

func (s *Service) RecordOrder(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, total decimal.Decimal) error {
	return s.repo.IncrementStats(ctx, tx, orgID, id, 1, total, s.clock.Now().UTC())
}

func (s *Service) FindByIDs(ctx context.Context, conn *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Customer, error) {
	items, err := s.repo.FindByIDs(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.Customer, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (s *Service) newCustomer(orgID snowflake.ID, name, email, phone, company, address string) domain.Customer {
	now := s.clock.Now().UTC()
	return domain.Customer{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		Company:    strings.TrimSpace(company),
		Address:    strings.TrimSpace(address),
		TotalSpent: decimal.Zero,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) tenantErr(err error) error {
	if err == db.ErrMissingTenant {
		return domain.ErrInvalidOrganization
	}
	return err
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
