package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	"github.com/smallbiznis/pressroom/internal/cascade"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	"github.com/smallbiznis/pressroom/internal/invoice/domain"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	numberingdomain "github.com/smallbiznis/pressroom/internal/numbering/domain"
	"github.com/smallbiznis/pressroom/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/pressroom/internal/order/domain"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
	"github.com/smallbiznis/pressroom/pkg/dates"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store     db.TenantScopedStore
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Quotes    quotedomain.Repository
	Orders    orderdomain.Repository
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
	quotes    quotedomain.Repository
	orders    orderdomain.Repository
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
		log:       p.Log.Named("invoice.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		quotes:    p.Quotes,
		orders:    p.Orders,
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

	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, conn, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp, err := s.toResponses(ctx, conn, orgID, []domain.Invoice{*item})
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
	quoteID, err := parseOptionalRef(req.QuoteID, domain.ErrInvalidQuote)
	if err != nil {
		return nil, err
	}
	orderID, err := parseOptionalRef(req.OrderID, domain.ErrInvalidOrder)
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

	dueDate, err := dates.Parse(req.DueDate)
	if err != nil {
		return nil, err
	}

	var (
		created      domain.Invoice
		orderCreated bool
	)
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		if err := s.checkRefs(ctx, tx, orgID, customerID, quoteID, orderID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		number := strings.TrimSpace(req.InvoiceNumber)
		if number == "" {
			next, err := s.numbering.NextInvoiceNumber(ctx, tx, now.Year())
			if err != nil {
				return err
			}
			number = next
		}

		created = domain.Invoice{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			InvoiceNumber: number,
			CustomerID:    customerID,
			QuoteID:       quoteID,
			OrderID:       orderID,
			TaxRate:       req.TaxRate,
			Status:        status,
			DueDate:       dueDate,
			Notes:         req.Notes,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if status == domain.StatusPaid {
			created.PaidAt = &now
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
		if err := s.activity.Record(ctx, tx, activitydomain.Entry{
			OrgID:      orgID,
			Action:     activitydomain.ActionInvoiceCreated,
			TargetType: activitydomain.TargetInvoice,
			TargetID:   created.ID,
			Metadata:   map[string]any{"invoice_number": created.InvoiceNumber},
		}); err != nil {
			return err
		}

		if created.Status != domain.StatusPaid {
			return nil
		}
		return s.cascade.Run(ctx, tx, cascade.TransitionInvoicePaid, s.paidStep(ctx, &created, lines, &orderCreated))
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	if orderCreated {
		s.metrics.RecordOrderCreated(ctx, created.OrgID.String(), "invoice")
	}
	return s.Get(ctx, created.ID.String())
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	invoiceID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	var (
		orgOfInvoice snowflake.ID
		orderCreated bool
	)
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		orgOfInvoice = orgID

		invoice, err := s.repo.FindByID(ctx, tx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		wasPaid := invoice.Status == domain.StatusPaid
		if err := s.applyUpdate(ctx, tx, invoice, req); err != nil {
			return err
		}

		var lines []lineitemdomain.LineItem
		if req.LineItems != nil {
			lines, err = s.lineItems.Reconcile(ctx, tx, orgID, s.owner(invoice.ID), *req.LineItems)
			if err != nil {
				return err
			}
			invoice.Subtotal, invoice.TaxAmount, invoice.Total = money.Totals(
				lineitemdomain.Totals(lines),
				valueOrZero(req.Subtotal),
				invoice.TaxRate,
				valueOrZero(req.TaxAmount),
				valueOrZero(req.Total),
			)
		}

		now := s.clock.Now().UTC()
		invoice.UpdatedAt = now
		if invoice.Status == domain.StatusPaid && invoice.PaidAt == nil {
			invoice.PaidAt = &now
		}
		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			return err
		}

		if invoice.Status != domain.StatusPaid {
			return nil
		}
		if !wasPaid {
			if err := s.activity.Record(ctx, tx, activitydomain.Entry{
				OrgID:      orgID,
				Action:     activitydomain.ActionInvoicePaid,
				TargetType: activitydomain.TargetInvoice,
				TargetID:   invoice.ID,
				Metadata:   map[string]any{"total": invoice.Total.StringFixed(money.Scale)},
			}); err != nil {
				return err
			}
		}
		return s.cascade.Run(ctx, tx, cascade.TransitionInvoicePaid, s.paidStep(ctx, invoice, lines, &orderCreated))
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	if orderCreated {
		s.metrics.RecordOrderCreated(ctx, orgOfInvoice.String(), "invoice")
	}
	return s.Get(ctx, invoiceID.String())
}

func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	parsed, err := parseIDs(ids)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		if err := s.lineItems.DeleteByOwners(ctx, tx, orgID, lineitemdomain.OwnerInvoice, parsed); err != nil {
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

	s.metrics.RecordDeleted("invoice", int(deleted))
	return deleted, nil
}

func (s *Service) applyUpdate(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice, req domain.UpdateRequest) error {
	if req.InvoiceNumber != nil {
		if number := strings.TrimSpace(*req.InvoiceNumber); number != "" {
			invoice.InvoiceNumber = number
		}
	}
	if req.CustomerID != nil {
		customerID, err := parseRef(*req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return err
		}
		if err := s.checkRefs(ctx, tx, invoice.OrgID, customerID, nil, nil); err != nil {
			return err
		}
		invoice.CustomerID = customerID
	}
	if req.Status != nil {
		status, ok := domain.NormalizeStatus(*req.Status)
		if !ok {
			return domain.ErrInvalidStatus
		}
		invoice.Status = status
	}
	if req.DueDate != nil {
		dueDate, err := dates.Parse(*req.DueDate)
		if err != nil {
			return err
		}
		invoice.DueDate = dueDate
	}
	if req.Notes != nil {
		invoice.Notes = *req.Notes
	}
	if req.PaymentMethod != nil {
		invoice.PaymentMethod = strings.TrimSpace(*req.PaymentMethod)
	}
	if req.TaxRate != nil {
		invoice.TaxRate = *req.TaxRate
	}
	if req.Subtotal != nil {
		invoice.Subtotal = *req.Subtotal
	}
	if req.TaxAmount != nil {
		invoice.TaxAmount = *req.TaxAmount
	}
	if req.Total != nil {
		invoice.Total = *req.Total
	}
	return nil
}

func (s *Service) checkRefs(ctx context.Context, tx *gorm.DB, orgID, customerID snowflake.ID, quoteID, orderID *snowflake.ID) error {
	ok, err := s.customers.Exists(ctx, tx, orgID, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCustomer
	}

	if quoteID != nil {
		quote, err := s.quotes.FindByID(ctx, tx, orgID, *quoteID)
		if err != nil {
			return err
		}
		if quote == nil {
			return domain.ErrInvalidQuote
		}
	}

	if orderID != nil {
		order, err := s.orders.FindByID(ctx, tx, orgID, *orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrInvalidOrder
		}
	}
	return nil
}

// paidStep pushes the payment of a paid invoice onto its order, or creates and
// links a paid order when the invoice has none. created is set when an order
// was inserted.
func (s *Service) paidStep(ctx context.Context, invoice *domain.Invoice, lines []lineitemdomain.LineItem, created *bool) cascade.Step {
	return func(tx *gorm.DB) (bool, error) {
		wf := s.workflow.Get()
		now := s.clock.Now().UTC()
		method := orderdomain.Truncate(invoice.PaymentMethod, wf.PaymentMethodLimit)

		if invoice.OrderID != nil {
			rows, err := s.orders.UpdatePayment(ctx, tx, invoice.OrgID, *invoice.OrderID, orderdomain.Payment{
				Status:    orderdomain.PaymentPaid,
				Amount:    invoice.Total,
				Method:    method,
				UpdatedAt: now,
			})
			if err != nil {
				return false, err
			}
			if rows == 0 {
				return false, domain.ErrInvalidOrder
			}
			if err := s.activity.Record(ctx, tx, activitydomain.Entry{
				OrgID:      invoice.OrgID,
				Action:     activitydomain.ActionOrderPaid,
				TargetType: activitydomain.TargetOrder,
				TargetID:   *invoice.OrderID,
				Metadata:   map[string]any{"invoice_id": invoice.ID.String()},
			}); err != nil {
				return false, err
			}
			return true, nil
		}

		if lines == nil {
			byOwner, err := s.lineItems.ListByOwners(ctx, tx, invoice.OrgID, lineitemdomain.OwnerInvoice, []snowflake.ID{invoice.ID})
			if err != nil {
				return false, err
			}
			lines = byOwner[invoice.ID]
		}

		number, err := s.numbering.NextOrderNumber(ctx, tx)
		if err != nil {
			return false, err
		}

		order := orderdomain.Order{
			ID:            s.genID.Generate(),
			OrgID:         invoice.OrgID,
			OrderNumber:   number,
			CustomerID:    invoice.CustomerID,
			Status:        wf.OrderStatuses[0],
			Priority:      orderdomain.DefaultPriority,
			Subtotal:      invoice.Subtotal,
			TaxAmount:     invoice.TaxAmount,
			Total:         invoice.Total,
			PaymentStatus: orderdomain.PaymentPaid,
			PaidAmount:    invoice.Total,
			PaymentMethod: method,
			DueDate:       invoice.DueDate,
			Notes:         invoice.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.orders.Insert(ctx, tx, &order); err != nil {
			return false, err
		}
		if err := s.orders.InsertItems(ctx, tx, s.orderItems(order, lines, wf.DescriptionLimit, now)); err != nil {
			return false, err
		}
		if err := s.repo.LinkOrder(ctx, tx, invoice.OrgID, invoice.ID, order.ID); err != nil {
			return false, err
		}
		invoice.OrderID = &order.ID

		if err := s.customers.RecordOrder(ctx, tx, invoice.OrgID, invoice.CustomerID, order.Total); err != nil {
			return false, err
		}
		if err := s.activity.Record(ctx, tx, activitydomain.Entry{
			OrgID:      invoice.OrgID,
			Action:     activitydomain.ActionOrderCreated,
			TargetType: activitydomain.TargetOrder,
			TargetID:   order.ID,
			Metadata: map[string]any{
				"source":       "invoice",
				"invoice_id":   invoice.ID.String(),
				"order_number": order.OrderNumber,
			},
		}); err != nil {
			return false, err
		}

		s.log.Info("created order from paid invoice",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("order_number", order.OrderNumber),
		)
		*created = true
		return true, nil
	}
}

func (s *Service) orderItems(order orderdomain.Order, lines []lineitemdomain.LineItem, descriptionLimit int, now time.Time) []orderdomain.Item {
	items := make([]orderdomain.Item, 0, len(lines))
	for i, line := range lines {
		items = append(items, orderdomain.Item{
			ID:          s.genID.Generate(),
			OrgID:       order.OrgID,
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			Description: orderdomain.Truncate(line.Description, descriptionLimit),
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
			Options:     datatypes.JSONMap{},
			Position:    i,
			CreatedAt:   now,
		})
	}
	return items
}

func (s *Service) toResponses(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, items []domain.Invoice) ([]domain.Response, error) {
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

	lines, err := s.lineItems.ListByOwners(ctx, conn, orgID, lineitemdomain.OwnerInvoice, ids)
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

func toResponse(inv domain.Invoice, lines []lineitemdomain.LineItem) domain.Response {
	return domain.Response{
		ID:            inv.ID.String(),
		OrgID:         inv.OrgID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID.String(),
		QuoteID:       idString(inv.QuoteID),
		OrderID:       idString(inv.OrderID),
		LineItems:     lineitemdomain.Views(lines),
		Subtotal:      inv.Subtotal,
		TaxRate:       inv.TaxRate,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		Status:        inv.Status,
		Date:          dates.Day(inv.CreatedAt),
		DueDate:       dates.Format(inv.DueDate),
		Notes:         inv.Notes,
		PaymentMethod: inv.PaymentMethod,
		PaidAt:        dates.Format(inv.PaidAt),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func (s *Service) owner(id snowflake.ID) lineitemdomain.Owner {
	return lineitemdomain.Owner{Kind: lineitemdomain.OwnerInvoice, ID: id}
}

func (s *Service) tenantErr(err error) error {
	if err == db.ErrMissingTenant {
		return domain.ErrInvalidOrganization
	}
	return err
}

func idString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
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

func parseOptionalRef(value string, invalid error) (*snowflake.ID, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseRef(value, invalid)
	if err != nil {
		return nil, err
	}
	return &id, nil
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
