package service

import (
	"context"
	"path"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	numberingdomain "github.com/smallbiznis/pressroom/internal/numbering/domain"
	"github.com/smallbiznis/pressroom/internal/observability/metrics"
	"github.com/smallbiznis/pressroom/internal/order/domain"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	"github.com/smallbiznis/pressroom/internal/shipment"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/dates"
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

	Store         db.TenantScopedStore
	Global        db.GlobalStore
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Invoices      invoicedomain.Repository
	LineItems     lineitemdomain.Service
	Customers     customerdomain.Service
	Products      productdomain.Service
	Staff         staffdomain.Service
	Organizations organizationdomain.Service
	Numbering     numberingdomain.Service
	Activity      activitydomain.Service
	Clock         clock.Clock
	Workflow      *config.WorkflowConfigHolder `optional:"true"`
	Metrics       *metrics.Metrics             `optional:"true"`
}

type Service struct {
	store         db.TenantScopedStore
	global        db.GlobalStore
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	invoices      invoicedomain.Repository
	lineItems     lineitemdomain.Service
	customers     customerdomain.Service
	products      productdomain.Service
	staff         staffdomain.Service
	organizations organizationdomain.Service
	numbering     numberingdomain.Service
	activity      activitydomain.Service
	clock         clock.Clock
	workflow      *config.WorkflowConfigHolder
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		store:         p.Store,
		global:        p.Global,
		log:           p.Log.Named("order.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		invoices:      p.Invoices,
		lineItems:     p.LineItems,
		customers:     p.Customers,
		products:      p.Products,
		staff:         p.Staff,
		organizations: p.Organizations,
		numbering:     p.Numbering,
		activity:      p.Activity,
		clock:         p.Clock,
		workflow:      p.Workflow,
		metrics:       p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	var (
		conn   *gorm.DB
		orgID  snowflake.ID
		filter = domain.ListFilter{
			Search:   req.Search,
			Status:   req.Status,
			Priority: req.Priority,
		}
	)

	if orgcontext.ReadsAllOrgs(ctx) {
		conn = s.global.Read(ctx)
	} else {
		var err error
		conn, orgID, err = s.store.Read(ctx)
		if err != nil {
			return nil, s.tenantErr(err)
		}
		filter.OrgID = &orgID
	}

	if raw := strings.TrimSpace(req.DepartmentID); raw != "" {
		id, err := parseRef(raw, domain.ErrInvalidDepartment)
		if err != nil {
			return nil, err
		}
		filter.DepartmentID = &id
	}

	wf := s.workflow.Get()
	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize(wf.DefaultPageSize, wf.MaxPageSize)

	orders, total, err := s.repo.List(ctx, conn, filter, page)
	if err != nil {
		return nil, err
	}

	items, err := s.toResponses(ctx, conn, orgID, orders)
	if err != nil {
		return nil, err
	}
	return &domain.ListResponse{
		Orders:     items,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, s.tenantErr(err)
	}

	order, err := s.find(ctx, conn, orgID, id)
	if err != nil {
		return nil, err
	}

	resp, err := s.toResponses(ctx, conn, orgID, []domain.Order{*order})
	if err != nil {
		return nil, err
	}
	return &resp[0], nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	wf := s.workflow.Get()

	status, err := canonical(wf.OrderStatuses, req.Status, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}
	priority, err := canonical(wf.Priorities, req.Priority, domain.ErrInvalidPriority)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Priority) == "" && contains(wf.Priorities, domain.DefaultPriority) {
		priority = domain.DefaultPriority
	}

	agentID, err := parseOptionalRef(req.AgentID, domain.ErrInvalidAgent)
	if err != nil {
		return nil, err
	}
	departmentID, err := parseOptionalRef(req.DepartmentID, domain.ErrInvalidDepartment)
	if err != nil {
		return nil, err
	}
	dueDate, err := dates.Parse(req.DueDate)
	if err != nil {
		return nil, err
	}
	assignees, err := s.assignees(req.Assignments, wf.MaxAssignees)
	if err != nil {
		return nil, err
	}

	var created domain.Order
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		now := s.clock.Now().UTC()

		created = domain.Order{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			AgentID:       agentID,
			DepartmentID:  departmentID,
			Status:        status,
			Priority:      priority,
			PaymentStatus: domain.PaymentUnpaid,
			PaidAmount:    decimal.Zero,
			PaymentMethod: domain.Truncate(strings.TrimSpace(req.PaymentMethod), wf.PaymentMethodLimit),
			DueDate:       dueDate,
			Notes:         req.Notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		items, err := s.reserveItems(ctx, tx, &created, req.Items, wf.DescriptionLimit)
		if err != nil {
			return err
		}

		customer, err := s.customers.Resolve(ctx, tx, orgID, customerdomain.ResolveRequest{
			ID:      req.CustomerID,
			Name:    req.CustomerName,
			Email:   req.CustomerEmail,
			Phone:   req.CustomerPhone,
			Company: req.CustomerCompany,
			Address: req.CustomerAddress,
		})
		if err != nil {
			return err
		}
		created.CustomerID = customer.ID

		if err := s.checkStaff(ctx, tx, orgID, agentID, departmentID); err != nil {
			return err
		}

		lineTotals := make([]decimal.Decimal, 0, len(items))
		for _, item := range items {
			lineTotals = append(lineTotals, item.Total)
		}
		created.Subtotal, created.TaxAmount, created.Total = money.Totals(
			lineTotals, req.Subtotal, decimal.Zero, req.TaxAmount, req.Total,
		)

		number, err := s.numbering.NextOrderNumber(ctx, tx)
		if err != nil {
			return err
		}
		created.OrderNumber = number

		if err := s.repo.Insert(ctx, tx, &created); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}
		if err := s.createAssignments(ctx, tx, &created, assignees); err != nil {
			return err
		}
		if err := s.createAttachments(ctx, tx, &created, req.Attachments); err != nil {
			return err
		}
		if err := s.createInvoice(ctx, tx, &created, items); err != nil {
			return err
		}

		if err := s.customers.RecordOrder(ctx, tx, orgID, customer.ID, created.Total); err != nil {
			return err
		}
		if agentID != nil {
			if err := s.staff.RecordAgentOrder(ctx, tx, orgID, *agentID); err != nil {
				return err
			}
		}

		return s.activity.Record(ctx, tx, activitydomain.Entry{
			OrgID:      orgID,
			Action:     activitydomain.ActionOrderCreated,
			TargetType: activitydomain.TargetOrder,
			TargetID:   created.ID,
			Metadata: map[string]any{
				"source":       "order",
				"order_number": created.OrderNumber,
			},
		})
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	s.metrics.RecordOrderCreated(ctx, created.OrgID.String(), "order")
	s.log.Info("order created",
		zap.String("order_id", created.ID.String()),
		zap.String("order_number", created.OrderNumber),
	)
	return s.Get(ctx, created.ID.String())
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	if strings.TrimSpace(req.Status) == "" {
		return nil, domain.ErrInvalidStatus
	}
	status, err := canonical(s.workflow.Get().OrderStatuses, req.Status, domain.ErrInvalidStatus)
	if err != nil {
		return nil, err
	}

	var orderID snowflake.ID
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		order, err := s.find(ctx, tx, orgID, req.ID)
		if err != nil {
			return err
		}
		orderID = order.ID
		if order.Status == status {
			return nil
		}

		previous := order.Status
		order.Status = status
		order.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, order); err != nil {
			return err
		}
		return s.activity.Record(ctx, tx, activitydomain.Entry{
			OrgID:      orgID,
			Action:     activitydomain.ActionOrderStatusChanged,
			TargetType: activitydomain.TargetOrder,
			TargetID:   order.ID,
			Metadata:   map[string]any{"from": previous, "to": status},
		})
	})
	if err != nil {
		return nil, s.tenantErr(err)
	}

	return s.Get(ctx, orderID.String())
}

func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	parsed, err := parseIDs(ids)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.store.Transaction(ctx, func(tx *gorm.DB, orgID snowflake.ID) error {
		if err := s.invoices.UnlinkOrders(ctx, tx, orgID, parsed); err != nil {
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

	s.metrics.RecordDeleted("order", int(deleted))
	return deleted, nil
}

func (s *Service) Tracking(ctx context.Context, id string) ([]shipment.Tracking, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return nil, s.tenantErr(err)
	}

	order, err := s.find(ctx, conn, orgID, id)
	if err != nil {
		return nil, err
	}
	return shipment.Parse(order.Notes), nil
}

// reserveItems validates the requested lines and takes stock for every line
// that references a product.
func (s *Service) reserveItems(ctx context.Context, tx *gorm.DB, order *domain.Order, inputs []domain.ItemInput, descriptionLimit int) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(inputs))
	for i, in := range inputs {
		if in.Quantity <= 0 {
			return nil, domain.ErrInvalidItem
		}

		description := strings.TrimSpace(in.Description)
		unitPrice := decimal.Zero
		if in.UnitPrice != nil {
			if in.UnitPrice.IsNegative() {
				return nil, domain.ErrInvalidItem
			}
			unitPrice = *in.UnitPrice
		}

		var productID *snowflake.ID
		if raw := strings.TrimSpace(in.ProductID); raw != "" {
			id, err := parseRef(raw, productdomain.ErrInvalidProduct)
			if err != nil {
				return nil, err
			}
			product, err := s.products.Reserve(ctx, tx, order.OrgID, id, in.Quantity)
			if err != nil {
				return nil, err
			}
			productID = &product.ID
			if description == "" {
				description = product.Name
			}
			if in.UnitPrice == nil {
				unitPrice = product.UnitPriceFor(in.Quantity)
			}
		}

		if description == "" {
			return nil, domain.ErrInvalidItem
		}

		options := datatypes.JSONMap{}
		for k, v := range in.Options {
			options[k] = v
		}

		items = append(items, domain.Item{
			ID:          s.genID.Generate(),
			OrgID:       order.OrgID,
			OrderID:     order.ID,
			ProductID:   productID,
			Description: domain.Truncate(description, descriptionLimit),
			Quantity:    in.Quantity,
			UnitPrice:   money.Round(unitPrice),
			Total:       money.LineTotal(in.Quantity, unitPrice),
			Options:     options,
			Position:    i,
			CreatedAt:   order.CreatedAt,
		})
	}
	return items, nil
}

func (s *Service) checkStaff(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, agentID, departmentID *snowflake.ID) error {
	if agentID != nil {
		agent, err := s.staff.FindAgent(ctx, tx, orgID, *agentID)
		if err != nil {
			return err
		}
		if agent == nil {
			return domain.ErrInvalidAgent
		}
	}
	if departmentID != nil {
		department, err := s.staff.FindDepartment(ctx, tx, orgID, *departmentID)
		if err != nil {
			return err
		}
		if department == nil {
			return domain.ErrInvalidDepartment
		}
	}
	return nil
}

type assignee struct {
	userID snowflake.ID
	role   string
}

// assignees collapses duplicate users and keeps at most limit entries.
func (s *Service) assignees(inputs []domain.AssignmentInput, limit int) ([]assignee, error) {
	out := make([]assignee, 0, len(inputs))
	seen := make(map[snowflake.ID]struct{}, len(inputs))
	for _, in := range inputs {
		id, err := parseRef(in.UserID, domain.ErrInvalidAssignee)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		role := strings.TrimSpace(in.Role)
		if role == "" {
			role = domain.DefaultAssignmentRole
		}
		out = append(out, assignee{userID: id, role: role})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Service) createAssignments(ctx context.Context, tx *gorm.DB, order *domain.Order, assignees []assignee) error {
	if len(assignees) == 0 {
		return nil
	}

	ids := make([]snowflake.ID, 0, len(assignees))
	for _, a := range assignees {
		ids = append(ids, a.userID)
	}
	users, err := s.organizations.ActiveUsers(ctx, tx, order.OrgID, ids)
	if err != nil {
		return err
	}

	rows := make([]domain.Assignment, 0, len(assignees))
	for _, a := range assignees {
		if _, ok := users[a.userID]; !ok {
			return domain.ErrInvalidAssignee
		}
		rows = append(rows, domain.Assignment{
			ID:        s.genID.Generate(),
			OrgID:     order.OrgID,
			OrderID:   order.ID,
			UserID:    a.userID,
			Role:      a.role,
			CreatedAt: order.CreatedAt,
		})
	}
	return s.repo.InsertAssignments(ctx, tx, rows)
}

func (s *Service) createAttachments(ctx context.Context, tx *gorm.DB, order *domain.Order, inputs []domain.AttachmentInput) error {
	rows := make([]domain.Attachment, 0, len(inputs))
	for _, in := range inputs {
		url := strings.TrimSpace(in.URL)
		if url == "" {
			return domain.ErrInvalidAttachment
		}
		name := strings.TrimSpace(in.FileName)
		if name == "" {
			name = path.Base(url)
		}
		rows = append(rows, domain.Attachment{
			ID:        s.genID.Generate(),
			OrgID:     order.OrgID,
			OrderID:   order.ID,
			FileName:  name,
			URL:       url,
			CreatedAt: order.CreatedAt,
		})
	}
	return s.repo.InsertAttachments(ctx, tx, rows)
}

// createInvoice writes the Draft companion invoice of a new order, numbered
// after the order.
func (s *Service) createInvoice(ctx context.Context, tx *gorm.DB, order *domain.Order, items []domain.Item) error {
	orderID := order.ID
	invoice := invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		OrgID:         order.OrgID,
		InvoiceNumber: numberingdomain.InvoiceNumberForOrder(order.OrderNumber),
		CustomerID:    order.CustomerID,
		OrderID:       &orderID,
		Subtotal:      order.Subtotal,
		TaxRate:       decimal.Zero,
		TaxAmount:     order.TaxAmount,
		Total:         order.Total,
		Status:        invoicedomain.StatusDraft,
		DueDate:       order.DueDate,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.CreatedAt,
	}

	inputs := make([]lineitemdomain.Input, 0, len(items))
	for _, item := range items {
		in := lineitemdomain.Input{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
		if item.ProductID != nil {
			in.ProductID = item.ProductID.String()
		}
		inputs = append(inputs, in)
	}
	lines, err := s.lineItems.Build(order.OrgID, lineitemdomain.Owner{Kind: lineitemdomain.OwnerInvoice, ID: invoice.ID}, inputs)
	if err != nil {
		return err
	}

	if err := s.invoices.Insert(ctx, tx, &invoice); err != nil {
		return err
	}
	return s.lineItems.Create(ctx, tx, lines)
}

func (s *Service) find(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, id string) (*domain.Order, error) {
	orderID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, conn, orgID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// toResponses loads the relations of orders. orgID is zero for cross-tenant reads.
func (s *Service) toResponses(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, orders []domain.Order) ([]domain.Response, error) {
	out := make([]domain.Response, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	ids := make([]snowflake.ID, 0, len(orders))
	customerIDs := make([]snowflake.ID, 0, len(orders))
	var agentIDs, departmentIDs []snowflake.ID
	for _, o := range orders {
		ids = append(ids, o.ID)
		customerIDs = append(customerIDs, o.CustomerID)
		if o.AgentID != nil {
			agentIDs = append(agentIDs, *o.AgentID)
		}
		if o.DepartmentID != nil {
			departmentIDs = append(departmentIDs, *o.DepartmentID)
		}
	}

	customers, err := s.customers.FindByIDs(ctx, conn, customerIDs)
	if err != nil {
		return nil, err
	}
	agents, err := s.staff.AgentsByIDs(ctx, conn, agentIDs)
	if err != nil {
		return nil, err
	}
	departments, err := s.staff.DepartmentsByIDs(ctx, conn, departmentIDs)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.LoadChildren(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	activity, err := s.activity.ForTargets(ctx, conn, orgID, activitydomain.TargetOrder, ids)
	if err != nil {
		return nil, err
	}

	for _, o := range orders {
		resp := toResponse(o)
		if c, ok := customers[o.CustomerID]; ok && c.OrgID == o.OrgID {
			resp.Customer = c.Summary()
		}
		if o.AgentID != nil {
			if a, ok := agents[*o.AgentID]; ok && a.OrgID == o.OrgID {
				resp.Agent = &a
			}
		}
		if o.DepartmentID != nil {
			if d, ok := departments[*o.DepartmentID]; ok && d.OrgID == o.OrgID {
				resp.Department = &d
			}
		}
		resp.Items = nonNil(children.Items[o.ID])
		resp.Assignments = nonNil(children.Assignments[o.ID])
		resp.Attachments = nonNil(children.Attachments[o.ID])
		resp.Proofs = nonNil(children.Proofs[o.ID])
		resp.Activity = nonNil(activity[o.ID])
		out = append(out, resp)
	}
	return out, nil
}

func toResponse(o domain.Order) domain.Response {
	return domain.Response{
		ID:            o.ID.String(),
		OrgID:         o.OrgID.String(),
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID.String(),
		AgentID:       idString(o.AgentID),
		DepartmentID:  idString(o.DepartmentID),
		Status:        o.Status,
		Priority:      o.Priority,
		Subtotal:      o.Subtotal,
		TaxAmount:     o.TaxAmount,
		Total:         o.Total,
		PaymentStatus: o.PaymentStatus,
		PaidAmount:    o.PaidAmount,
		PaymentMethod: o.PaymentMethod,
		Date:          dates.Day(o.CreatedAt),
		DueDate:       dates.Format(o.DueDate),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (s *Service) tenantErr(err error) error {
	if err == db.ErrMissingTenant {
		return domain.ErrInvalidOrganization
	}
	return err
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// canonical returns the configured spelling of raw, or the first entry when raw is blank.
func canonical(allowed []string, raw string, invalid error) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if len(allowed) == 0 {
			return "", invalid
		}
		return allowed[0], nil
	}
	for _, v := range allowed {
		if strings.EqualFold(v, raw) {
			return v, nil
		}
	}
	return "", invalid
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func idString(id *snowflake.ID) *string {
	if id == nil {
		return nil
	}
	v := id.String()
	return &v
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
