package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	"github.com/smallbiznis/pressroom/internal/cascade"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	numberingdomain "github.com/smallbiznis/pressroom/internal/numbering/domain"
	"github.com/smallbiznis/pressroom/internal/observability/metrics"
	"github.com/smallbiznis/pressroom/internal/quote/domain"
	"github.com/smallbiznis/pressroom/pkg/dates"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store     db.TenantScopedStore
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Invoices  invoicedomain.Repository
	LineItems lineitemdomain.Service
	Customers customerdomain.Service
	Numbering numberingdomain.Service
	Activity  activitydomain.Service
	Cascade   *cascade.Runner
	Clock     clock.Clock
	Workflow  *config.WorkflowConfigHolder `optional:"true"`
	Metrics   *metrics.Metrics             `optional:"true"`
}

type Service struct {
	store     db.TenantScopedStore
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	invoices  invoicedomain.Repository
	lineItems lineitemdomain.Service
	customers customerdomain.Service
	numbering numberingdomain.Service
	activity  activitydomain.Service
	cascade   *cascade.Runner
	clock     clock.Clock
	workflow  *config.WorkflowConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		store:     p.Store,
		log:       p.Log.Named("quote.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		invoices:  p.Invoices,
		lineItems: p.LineItems,
		customers: p.Customers,
		numbering: p.Numbering,
		activity:  p.Activity,
		cascade:   p.Cascade,
		clock:     p.Clock,
		workflow:  p.Workflow,
		metrics:   p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, s.tenantErr(err)
	}

	filter := domain.ListFilter{Search: req.Search}
	if raw := strings.TrimSpace(req.ID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		filter.ID = &id
	}

	items, err := s.repo.List(ctx, conn, orgID, filter)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, conn, orgID, items)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, s.tenantErr(err)
	}

	quoteID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, conn, orgID, quoteID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp, err := s.toResponses(ctx, conn, orgID, []domain.Quote{*item})
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	customerID, err := parseRef(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return nil, err
	}

	status := domain.StatusDraft
	if strings.TrimSpace(req.Status) != "" {
		normalized, ok := domain.NormalizeStatus(req.Status)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		status = normalized
	}

	validUntil, err := dates.Parse(req.ValidUntil)
	if err != nil {
		return nil, err
	}

	var created domain.Quote
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		ok, err := s.customers.Exists(ctx, tx, orgID, customerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}

		now := s.clock.Now().UTC()
		created = domain.Quote{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			QuoteNumber: strings.TrimSpace(req.QuoteNumber),
			CustomerID:  customerID,
			TaxRate:     req.TaxRate,
			Status:      status,
			ValidUntil:  validUntil,
			Notes:       req.Notes,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		lines, err := s.lineItems.Build(orgID, s.owner(created.ID), req.LineItems)
		if err != nil {
			return err
		}
		created.Subtotal, created.TaxAmount, created.Total = money.Totals(
			lineitemdomain.Totals(lines), req.Subtotal, req.TaxRate, req.TaxAmount, req.Total,
		)

		if err := s.repo.Insert(ctx, tx, &created); err != nil {
			return err
		}
		if err := s.lineItems.Create(ctx, tx, lines); err != nil {
			return err
		}

		if created.Status == domain.StatusAccepted {
			return s.cascade.Run(ctx, tx, cascade.TransitionQuoteAccepted, s.acceptStep(ctx, &created, lines))
		}
		return nil
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	return s.Get(ctx, created.ID.String())
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	quoteID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		quote, err := s.repo.FindByID(ctx, tx, orgID, quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return domain.ErrNotFound
		}

		if err := s.applyUpdate(ctx, tx, quote, req); err != nil {
			return err
		}

		var lines []lineitemdomain.LineItem
		if req.LineItems != nil {
			lines, err = s.lineItems.Reconcile(ctx, tx, orgID, s.owner(quote.ID), *req.LineItems)
			if err != nil {
				return err
			}
			quote.Subtotal, quote.TaxAmount, quote.Total = money.Totals(
				lineitemdomain.Totals(lines),
				valueOrZero(req.Subtotal),
				quote.TaxRate,
				valueOrZero(req.TaxAmount),
				valueOrZero(req.Total),
			)
		}

		quote.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, quote); err != nil {
			return err
		}

		if quote.Status != domain.StatusAccepted {
			return nil
		}
		return s.cascade.Run(ctx, tx, cascade.TransitionQuoteAccepted, s.acceptStep(ctx, quote, lines))
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	return s.Get(ctx, quoteID.String())
}

func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	parsed, err := parseIDs(ids)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		if err := s.lineItems.DeleteByOwners(ctx, tx, orgID, lineitemdomain.OwnerQuote, parsed); err != nil {
			return err
		}
		if err := s.invoices.UnlinkQuotes(ctx, tx, orgID, parsed); err != nil {
			return err
		}
		n, err := s.repo.DeleteByIDs(ctx, tx, orgID, parsed)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, s.tenantErr(err)
	}

	s.metrics.RecordDeleted("quote", int(deleted))
	return deleted, nil
}

func (s *Service) applyUpdate(ctx context.Context, tx *gorm.DB, quote *domain.Quote, req domain.UpdateRequest) error {
	if req.QuoteNumber != nil {
		quote.QuoteNumber = strings.TrimSpace(*req.QuoteNumber)
	}
	if req.CustomerID != nil {
		customerID, err := parseRef(*req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return err
		}
		ok, err := s.customers.Exists(ctx, tx, quote.OrgID, customerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidCustomer
		}
		quote.CustomerID = customerID
	}
	if req.Status != nil {
		status, ok := domain.NormalizeStatus(*req.Status)
		if !ok {
			return domain.ErrInvalidStatus
		}
		quote.Status = status
	}
	if req.ValidUntil != nil {
		validUntil, err := dates.Parse(*req.ValidUntil)
		if err != nil {
			return err
		}
		quote.ValidUntil = validUntil
	}
	if req.Notes != nil {
		quote.Notes = *req.Notes
	}
	if req.TaxRate != nil {
		quote.TaxRate = *req.TaxRate
	}
	if req.Subtotal != nil {
		quote.Subtotal = *req.Subtotal
	}
	if req.TaxAmount != nil {
		quote.TaxAmount = *req.TaxAmount
	}
	if req.Total != nil {
		quote.Total = *req.Total
	}
	return nil
}

// acceptStep creates the Draft invoice of an accepted quote unless one already
// references it. lines may be nil, in which case the stored lines are copied.
func (s *Service) acceptStep(ctx context.Context, quote *domain.Quote, lines []lineitemdomain.LineItem) cascade.Step {
	return func(tx *gorm.DB) (bool, error) {
		existing, err := s.invoices.FindByQuoteID(ctx, tx, quote.OrgID, quote.ID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			return false, nil
		}

		if lines == nil {
			byOwner, err := s.lineItems.ListByOwners(ctx, tx, quote.OrgID, lineitemdomain.OwnerQuote, []snowflake.ID{quote.ID})
			if err != nil {
				return false, err
			}
			lines = byOwner[quote.ID]
		}

		now := s.clock.Now().UTC()
		number, err := s.numbering.NextInvoiceNumber(ctx, tx, now.Year())
		if err != nil {
			return false, err
		}

		dueDate := quote.ValidUntil
		if dueDate == nil {
			due := dates.AddDays(now, s.workflow.Get().InvoiceDueDays)
			dueDate = &due
		}

		quoteID := quote.ID
		invoice := invoicedomain.Invoice{
			ID:            s.genID.Generate(),
			OrgID:         quote.OrgID,
			InvoiceNumber: number,
			CustomerID:    quote.CustomerID,
			QuoteID:       &quoteID,
			Subtotal:      quote.Subtotal,
			TaxRate:       quote.TaxRate,
			TaxAmount:     quote.TaxAmount,
			Total:         quote.Total,
			Status:        invoicedomain.StatusDraft,
			DueDate:       dueDate,
			Notes:         quote.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.invoices.Insert(ctx, tx, &invoice); err != nil {
			return false, err
		}

		copied := s.lineItems.Copy(lines, lineitemdomain.Owner{Kind: lineitemdomain.OwnerInvoice, ID: invoice.ID})
		if err := s.lineItems.Create(ctx, tx, copied); err != nil {
			return false, err
		}

		if err := s.activity.Record(ctx, tx, activitydomain.Entry{
			OrgID:      quote.OrgID,
			Action:     activitydomain.ActionQuoteAccepted,
			TargetType: activitydomain.TargetQuote,
			TargetID:   quote.ID,
			Metadata: map[string]any{
				"invoice_id":     invoice.ID.String(),
				"invoice_number": invoice.InvoiceNumber,
			},
		}); err != nil {
			return false, err
		}

		s.log.Info("created invoice from accepted quote",
			zap.String("quote_id", quote.ID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
		)
		return true, nil
	}
}

func (s *Service) toResponses(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, items []domain.Quote) ([]domain.Response, error) {
	out := make([]domain.Response, 0, len(items))
	if len(items) == 0 {
		return out, nil
	}

	ids := make([]snowflake.ID, 0, len(items))
	customerIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		customerIDs = append(customerIDs, item.CustomerID)
	}

	lines, err := s.lineItems.ListByOwners(ctx, conn, orgID, lineitemdomain.OwnerQuote, ids)
	if err != nil {
		return nil, err
	}
	customers, err := s.customers.FindByIDs(ctx, conn, customerIDs)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		resp := toResponse(item, lines[item.ID])
		if customer, ok := customers[item.CustomerID]; ok && customer.OrgID == orgID {
			resp.Customer = customer.Summary()
		}
		out = append(out, resp)
	}
	return out, nil
}

func toResponse(q domain.Quote, lines []lineitemdomain.LineItem) domain.Response {
	return domain.Response{
		ID:          q.ID.String(),
		OrgID:       q.OrgID.String(),
		QuoteNumber: q.QuoteNumber,
		CustomerID:  q.CustomerID.String(),
		LineItems:   lineitemdomain.Views(lines),
		Subtotal:    q.Subtotal,
		TaxRate:     q.TaxRate,
		TaxAmount:   q.TaxAmount,
		Total:       q.Total,
		Status:      q.Status,
		Date:        dates.Day(q.CreatedAt),
		ValidUntil:  dates.Format(q.ValidUntil),
		Notes:       q.Notes,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func (s *Service) owner(id snowflake.ID) lineitemdomain.Owner {
	return lineitemdomain.Owner{Kind: lineitemdomain.OwnerQuote, ID: id}
}

func (s *Service) tenantErr(err error) error {
	if err == db.ErrMissingTenant {
		return domain.ErrInvalidOrganization
	}
	return err
}

func valueOrZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}

func parseID(value string) (snowflake.ID, error) {
	return parseRef(value, domain.ErrInvalidID)
}

func parseRef(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

func parseIDs(values []string) ([]snowflake.ID, error) {
	if len(values) == 0 {
		return nil, domain.ErrInvalidIDs
	}
	out := make([]snowflake.ID, 0, len(values))
	seen := make(map[snowflake.ID]struct{}, len(values))
	for _, value := range values {
		id, err := parseRef(value, domain.ErrInvalidIDs)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
