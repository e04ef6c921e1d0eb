package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/lineitem/domain"
	"github.com/smallbiznis/pressroom/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("lineitem.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Build(orgID snowflake.ID, owner domain.Owner, inputs []domain.Input) ([]domain.LineItem, error) {
	now := s.clock.Now().UTC()
	items := make([]domain.LineItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := s.fromInput(orgID, owner, in, i, now)
		if err != nil {
			return nil, err
		}
		item.ID = s.genID.Generate()
		item.CreatedAt = now
		items = append(items, item)
	}
	return items, nil
}

func (s *Service) Copy(items []domain.LineItem, owner domain.Owner) []domain.LineItem {
	now := s.clock.Now().UTC()
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		item.ID = s.genID.Generate()
		item.QuoteID, item.InvoiceID = nil, nil
		setOwner(&item, owner)
		item.CreatedAt = now
		item.UpdatedAt = now
		out = append(out, item)
	}
	return out
}

func (s *Service) Create(ctx context.Context, tx *gorm.DB, items []domain.LineItem) error {
	return s.repo.InsertBatch(ctx, tx, items)
}

func (s *Service) Reconcile(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, owner domain.Owner, inputs []domain.Input) ([]domain.LineItem, error) {
	existing, err := s.repo.ListByOwners(ctx, tx, orgID, owner.Kind, []snowflake.ID{owner.ID})
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(orgID, owner, existing, inputs)
	if err != nil {
		return nil, err
	}

	for _, item := range plan.Updates {
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return nil, err
		}
	}
	if err := s.repo.InsertBatch(ctx, tx, plan.Inserts); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteByIDs(ctx, tx, orgID, plan.Deletes); err != nil {
		return nil, err
	}

	result := append(append([]domain.LineItem{}, plan.Updates...), plan.Inserts...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

// plan matches incoming lines to stored ones by id. Matched lines keep their
// row id, unmatched ones become inserts and stored lines left over are deleted.
func (s *Service) plan(orgID snowflake.ID, owner domain.Owner, existing []domain.LineItem, inputs []domain.Input) (domain.Plan, error) {
	now := s.clock.Now().UTC()
	byID := make(map[snowflake.ID]domain.LineItem, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	var plan domain.Plan
	matched := make(map[snowflake.ID]struct{}, len(existing))
	for i, in := range inputs {
		item, err := s.fromInput(orgID, owner, in, i, now)
		if err != nil {
			return domain.Plan{}, err
		}

		id, parseErr := snowflake.ParseString(strings.TrimSpace(in.ID))
		if current, ok := byID[id]; parseErr == nil && ok {
			if _, dup := matched[id]; !dup {
				matched[id] = struct{}{}
				item.ID = current.ID
				item.CreatedAt = current.CreatedAt
				plan.Updates = append(plan.Updates, item)
				continue
			}
		}

		item.ID = s.genID.Generate()
		item.CreatedAt = now
		plan.Inserts = append(plan.Inserts, item)
	}

	for _, item := range existing {
		if _, ok := matched[item.ID]; !ok {
			plan.Deletes = append(plan.Deletes, item.ID)
		}
	}
	return plan, nil
}

func (s *Service) ListByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind domain.OwnerKind, ownerIDs []snowflake.ID) (map[snowflake.ID][]domain.LineItem, error) {
	items, err := s.repo.ListByOwners(ctx, db, orgID, kind, ownerIDs)
	if err != nil {
		return nil, err
	}
	grouped := make(map[snowflake.ID][]domain.LineItem, len(ownerIDs))
	for _, item := range items {
		key := item.OwnerID(kind)
		grouped[key] = append(grouped[key], item)
	}
	return grouped, nil
}

func (s *Service) DeleteByOwners(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, kind domain.OwnerKind, ownerIDs []snowflake.ID) error {
	return s.repo.DeleteByOwners(ctx, tx, orgID, kind, ownerIDs)
}

func (s *Service) fromInput(orgID snowflake.ID, owner domain.Owner, in domain.Input, position int, now time.Time) (domain.LineItem, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return domain.LineItem{}, domain.ErrInvalidDescription
	}
	if in.Quantity <= 0 {
		return domain.LineItem{}, domain.ErrInvalidQuantity
	}
	if in.UnitPrice.IsNegative() {
		return domain.LineItem{}, domain.ErrInvalidUnitPrice
	}

	item := domain.LineItem{
		OrgID:       orgID,
		Description: description,
		Quantity:    in.Quantity,
		UnitPrice:   money.Round(in.UnitPrice),
		Total:       money.LineTotal(in.Quantity, in.UnitPrice),
		Position:    position,
		UpdatedAt:   now,
	}
	if raw := strings.TrimSpace(in.ProductID); raw != "" {
		productID, err := snowflake.ParseString(raw)
		if err != nil || productID == 0 {
			return domain.LineItem{}, domain.ErrInvalidProduct
		}
		item.ProductID = &productID
	}
	setOwner(&item, owner)
	return item, nil
}

func setOwner(item *domain.LineItem, owner domain.Owner) {
	id := owner.ID
	if owner.Kind == domain.OwnerInvoice {
		item.InvoiceID = &id
		return
	}
	item.QuoteID = &id
}
