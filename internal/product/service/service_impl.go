package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/observability/metrics"
	"github.com/smallbiznis/pressroom/internal/product/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"github.com/smallbiznis/pressroom/pkg/money"
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
	Metrics  *metrics.Metrics             `optional:"true"`
}

type Service struct {
	store    db.TenantScopedStore
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	workflow *config.WorkflowConfigHolder
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		store:    p.Store,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		workflow: p.Workflow,
		metrics:  p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	wf := s.workflow.Get()
	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize(wf.DefaultPageSize, wf.MaxPageSize)

	items, total, err := s.repo.List(ctx, conn, orgID, domain.ListFilter{
		Search: strings.TrimSpace(req.Search),
		Active: req.Active,
	}, page)
	if err != nil {
		return nil, err
	}

	resp := &domain.ListResponse{
		Products:   make([]domain.Response, 0, len(items)),
		Pagination: pagination.BuildPageInfo(page, total),
	}
	for i := range items {
		resp.Products = append(resp.Products, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	if req.Stock < 0 {
		return nil, domain.ErrInvalidStock
	}
	if !domain.ValidOptions(req.Options) {
		return nil, domain.ErrInvalidOptions
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var p *domain.Product
	err := s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		now := s.clock.Now().UTC()
		p = &domain.Product{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			SKU:         strings.TrimSpace(req.SKU),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			Price:       money.Round(req.Price),
			Stock:       req.Stock,
			TrackStock:  req.TrackStock,
			Options:     optionsOrEmpty(req.Options),
			Active:      active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return s.repo.Create(ctx, tx, p)
	})
	if err != nil {
		if err == db.ErrMissingTenant {
			return nil, domain.ErrInvalidOrganization
		}
		return nil, err
	}

	resp := toResponse(p)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, domain.ErrInvalidOrganization
	}

	productID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, conn, orgID, productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	productID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	var item *domain.Product
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		found, err := s.repo.FindByID(ctx, tx, orgID, productID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrNotFound
		}
		item = found

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			item.Name = name
		}
		if req.Description != nil {
			item.Description = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return domain.ErrInvalidPrice
			}
			item.Price = money.Round(*req.Price)
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				return domain.ErrInvalidStock
			}
			item.Stock = *req.Stock
		}
		if req.TrackStock != nil {
			item.TrackStock = *req.TrackStock
		}
		if req.Options != nil {
			if !domain.ValidOptions(req.Options) {
				return domain.ErrInvalidOptions
			}
			item.Options = optionsOrEmpty(req.Options)
		}
		if req.Active != nil {
			item.Active = *req.Active
		}

		item.UpdatedAt = s.clock.Now().UTC()
		return s.repo.Update(ctx, tx, item)
	})
	if err != nil {
		if err == db.ErrMissingTenant {
			return nil, domain.ErrInvalidOrganization
		}
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, qty int) (*domain.Product, error) {
	item, err := s.repo.FindByID(ctx, tx, orgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrInvalidProduct
	}
	if !item.TrackStock {
		return item, nil
	}

	if item.Stock < qty {
		s.metrics.RecordStockRejection()
		return nil, domain.ErrInsufficientStock
	}
	ok, err := s.repo.DecrementStock(ctx, tx, orgID, id, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordStockRejection()
		return nil, domain.ErrInsufficientStock
	}
	item.Stock -= qty
	return item, nil
}

func toResponse(p *domain.Product) domain.Response {
	opts := domain.ParseOptions(p.Options)
	if opts.Tiers == nil {
		opts.Tiers = []domain.PriceTier{}
	}
	if opts.Options == nil {
		opts.Options = []domain.OptionGroup{}
	}
	return domain.Response{
		ID:          p.ID.String(),
		OrgID:       p.OrgID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		TrackStock:  p.TrackStock,
		Active:      p.Active,
		Options:     opts,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func optionsOrEmpty(raw []byte) datatypes.JSON {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "null" {
		return datatypes.JSON(`{}`)
	}
	return datatypes.JSON(raw)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
