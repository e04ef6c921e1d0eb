package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/internal/config"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicerepo "github.com/smallbiznis/pressroom/internal/invoice/repository"
	"github.com/smallbiznis/pressroom/internal/order/domain"
	"github.com/smallbiznis/pressroom/internal/order/repository"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	"github.com/smallbiznis/pressroom/internal/shipment"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/internal/workflowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orgID = snowflake.ID(42)

func setupService(t *testing.T) (domain.Service, *workflowtest.Env) {
	t.Helper()

	env := workflowtest.New(t, config.DefaultWorkflowConfig(), nil)
	svc := New(Params{
		Store:         env.Tenant,
		Global:        env.Global,
		Log:           env.Log,
		GenID:         env.Node,
		Repo:          repository.Provide(),
		Invoices:      invoicerepo.Provide(),
		LineItems:     env.LineItems,
		Customers:     env.Customers,
		Products:      env.Products,
		Staff:         env.Staff,
		Organizations: env.Organizations,
		Numbering:     env.Numbering,
		Activity:      env.Activity,
		Clock:         env.Clock,
		Workflow:      env.Workflow,
	})
	return svc, env
}

func tenant() context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func stockOf(t *testing.T, env *workflowtest.Env, id snowflake.ID) int {
	t.Helper()
	var p productdomain.Product
	require.NoError(t, env.DB.First(&p, "id = ?", id).Error)
	return p.Stock
}

func TestCreateOverStockRollsBackEverything(t *testing.T) {
	svc, env := setupService(t)
	product := env.SeedProduct(t, orgID, "CARD-100", "10", 3, true)

	_, err := svc.Create(tenant(), domain.CreateRequest{
		CustomerName:  "Walk-in",
		CustomerEmail: "new@example.com",
		Items:         []domain.ItemInput{{ProductID: product.ID.String(), Quantity: 5}},
	})
	assert.ErrorIs(t, err, productdomain.ErrInsufficientStock)

	assert.Equal(t, 3, stockOf(t, env, product.ID))
	assert.Equal(t, int64(0), env.Count(t, "orders", ""))
	assert.Equal(t, int64(0), env.Count(t, "invoices", ""))
	assert.Equal(t, int64(0), env.Count(t, "customers", ""))
	assert.Equal(t, int64(0), env.Count(t, "document_sequences", ""))
}

func TestCreateSecondLineOverStockReleasesFirstLine(t *testing.T) {
	svc, env := setupService(t)
	plenty := env.SeedProduct(t, orgID, "PAPER", "1", 100, true)
	scarce := env.SeedProduct(t, orgID, "INK", "1", 1, true)

	_, err := svc.Create(tenant(), domain.CreateRequest{
		Items: []domain.ItemInput{
			{ProductID: plenty.ID.String(), Quantity: 40},
			{ProductID: scarce.ID.String(), Quantity: 2},
		},
	})
	assert.ErrorIs(t, err, productdomain.ErrInsufficientStock)
	assert.Equal(t, 100, stockOf(t, env, plenty.ID))
	assert.Equal(t, 1, stockOf(t, env, scarce.ID))
}

func TestCreateWritesOrderInvoiceAndCounters(t *testing.T) {
	svc, env := setupService(t)
	ctx := tenant()
	product := env.SeedProduct(t, orgID, "CARD-100", "2.50", 10, true)
	agent, err := env.Staff.CreateAgent(ctx, staffdomain.CreateAgentRequest{Name: "Sam"})
	require.NoError(t, err)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		AgentID:       agent.ID.String(),
		Priority:      "HIGH",
		Items: []domain.ItemInput{
			{ProductID: product.ID.String(), Quantity: 4},
			{Description: "Lamination", Quantity: 1, UnitPrice: price("5")},
		},
		DueDate:     "2026-03-10",
		Notes:       "UPS tracking 1Z999AA10123456784",
		Attachments: []domain.AttachmentInput{{URL: "https://files.example.com/art/front.pdf"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", resp.OrderNumber)
	assert.Equal(t, "Pending", resp.Status)
	assert.Equal(t, "high", resp.Priority)
	assert.Equal(t, domain.PaymentUnpaid, resp.PaymentStatus)
	assert.True(t, decimal.RequireFromString("15").Equal(resp.Total))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "CARD-100", resp.Items[0].Description)
	assert.True(t, decimal.RequireFromString("2.5").Equal(resp.Items[0].UnitPrice))
	require.Len(t, resp.Attachments, 1)
	assert.Equal(t, "front.pdf", resp.Attachments[0].FileName)
	require.NotNil(t, resp.Customer)
	assert.Equal(t, "ada@example.com", resp.Customer.Email)
	require.NotNil(t, resp.Agent)
	assert.Equal(t, "Sam", resp.Agent.Name)
	require.NotNil(t, resp.DueDate)
	assert.Equal(t, "2026-03-10", *resp.DueDate)
	require.Len(t, resp.Activity, 1)
	assert.Equal(t, "order.created", resp.Activity[0].Action)

	assert.Equal(t, 6, stockOf(t, env, product.ID))

	var invoiceNumber, status string
	require.NoError(t, env.DB.Raw(`SELECT invoice_number, status FROM invoices WHERE order_id = ?`, mustID(t, resp.ID)).Row().Scan(&invoiceNumber, &status))
	assert.Equal(t, "INV-000001", invoiceNumber)
	assert.Equal(t, "Draft", status)
	assert.Equal(t, int64(2), env.Count(t, "line_items", "invoice_id IS NOT NULL"))

	var customer customerdomain.Customer
	require.NoError(t, env.DB.First(&customer, "email = ?", "ada@example.com").Error)
	assert.Equal(t, 1, customer.OrderCount)
	assert.True(t, decimal.RequireFromString("15").Equal(customer.TotalSpent))

	var stored staffdomain.Agent
	require.NoError(t, env.DB.First(&stored, "id = ?", agent.ID).Error)
	assert.Equal(t, 1, stored.TotalOrders)

	second, err := svc.Create(ctx, domain.CreateRequest{
		CustomerEmail: "ADA@example.com",
		Items:         []domain.ItemInput{{Description: "Reprint", Quantity: 1, UnitPrice: price("3")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-000002", second.OrderNumber)
	assert.Equal(t, resp.CustomerID, second.CustomerID)
	assert.Equal(t, int64(1), env.Count(t, "customers", ""))

	tracking, err := svc.Tracking(ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, tracking, 1)
	assert.Equal(t, shipment.CarrierUPS, tracking[0].Carrier)
}

func TestCreateWalkInCustomer(t *testing.T) {
	svc, env := setupService(t)

	resp, err := svc.Create(tenant(), domain.CreateRequest{
		Items: []domain.ItemInput{{Description: "Banner", Quantity: 1, UnitPrice: price("40")}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Customer)
	assert.Equal(t, "Walk-in Customer", resp.Customer.Name)
	assert.Contains(t, resp.Customer.Email, "@"+customerdomain.WalkInEmailDomain)
	assert.Equal(t, int64(1), env.Count(t, "customers", ""))
}

func TestCreateRejectsBadReferences(t *testing.T) {
	svc, env := setupService(t)
	ctx := tenant()
	other := env.SeedProduct(t, 7, "FOREIGN", "1", 10, false)

	cases := []struct {
		name string
		req  domain.CreateRequest
		err  error
	}{
		{"unknown product", domain.CreateRequest{Items: []domain.ItemInput{{ProductID: env.Node.Generate().String(), Quantity: 1}}}, productdomain.ErrInvalidProduct},
		{"foreign product", domain.CreateRequest{Items: []domain.ItemInput{{ProductID: other.ID.String(), Quantity: 1}}}, productdomain.ErrInvalidProduct},
		{"malformed product", domain.CreateRequest{Items: []domain.ItemInput{{ProductID: "p-1", Quantity: 1}}}, productdomain.ErrInvalidProduct},
		{"zero quantity", domain.CreateRequest{Items: []domain.ItemInput{{Description: "x", Quantity: 0}}}, domain.ErrInvalidItem},
		{"blank free text", domain.CreateRequest{Items: []domain.ItemInput{{Quantity: 1}}}, domain.ErrInvalidItem},
		{"unknown customer", domain.CreateRequest{CustomerID: env.Node.Generate().String()}, customerdomain.ErrInvalidCustomer},
		{"unknown agent", domain.CreateRequest{AgentID: env.Node.Generate().String()}, domain.ErrInvalidAgent},
		{"unknown department", domain.CreateRequest{DepartmentID: env.Node.Generate().String()}, domain.ErrInvalidDepartment},
		{"unknown assignee", domain.CreateRequest{Assignments: []domain.AssignmentInput{{UserID: env.Node.Generate().String()}}}, domain.ErrInvalidAssignee},
		{"bad status", domain.CreateRequest{Status: "Lost"}, domain.ErrInvalidStatus},
		{"bad priority", domain.CreateRequest{Priority: "asap"}, domain.ErrInvalidPriority},
		{"attachment without url", domain.CreateRequest{Attachments: []domain.AttachmentInput{{FileName: "a.pdf"}}}, domain.ErrInvalidAttachment},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	assert.Equal(t, int64(0), env.Count(t, "orders", ""))
	assert.Equal(t, int64(0), env.Count(t, "invoices", ""))

	_, err := svc.Create(context.Background(), domain.CreateRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreateTruncatesAssignments(t *testing.T) {
	svc, env := setupService(t)

	var inputs []domain.AssignmentInput
	for i := 0; i < 12; i++ {
		user := env.SeedUser(t, orgID, fmt.Sprintf("user%d@example.com", i))
		inputs = append(inputs, domain.AssignmentInput{UserID: user.ID.String()})
		if i == 0 {
			inputs = append(inputs, domain.AssignmentInput{UserID: user.ID.String(), Role: "designer"})
		}
	}

	resp, err := svc.Create(tenant(), domain.CreateRequest{Assignments: inputs})
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 10)
	assert.Equal(t, domain.DefaultAssignmentRole, resp.Assignments[0].Role)
	assert.Equal(t, int64(10), env.Count(t, "order_assignments", ""))
}

func TestListFiltersAndSuperAdmin(t *testing.T) {
	svc, env := setupService(t)
	ctx := tenant()
	department, err := env.Staff.CreateDepartment(ctx, staffdomain.CreateDepartmentRequest{Name: "Large Format"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{CustomerName: "Acme", CustomerEmail: "acme@example.com", DepartmentID: department.ID.String()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{CustomerName: "Bravo", CustomerEmail: "bravo@example.com", Priority: "urgent"})
	require.NoError(t, err)
	_, err = svc.Create(orgcontext.WithOrgID(context.Background(), 7), domain.CreateRequest{CustomerName: "Other"})
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)
	assert.Equal(t, int64(2), all.Pagination.Total)

	byDept, err := svc.List(ctx, domain.ListRequest{DepartmentID: department.ID.String()})
	require.NoError(t, err)
	require.Len(t, byDept.Orders, 1)
	require.NotNil(t, byDept.Orders[0].Department)
	assert.Equal(t, "large-format", byDept.Orders[0].Department.Code)

	byPriority, err := svc.List(ctx, domain.ListRequest{Priority: "URGENT"})
	require.NoError(t, err)
	assert.Len(t, byPriority.Orders, 1)

	bySearch, err := svc.List(ctx, domain.ListRequest{Search: "acme"})
	require.NoError(t, err)
	assert.Len(t, bySearch.Orders, 1)

	paged, err := svc.List(ctx, domain.ListRequest{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, paged.Orders, 1)
	assert.False(t, paged.Pagination.HasMore)

	admin := orgcontext.WithPrincipal(context.Background(), orgcontext.Principal{UserID: 1, SuperAdmin: true})
	everything, err := svc.List(admin, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, everything.Orders, 3)
	for _, o := range everything.Orders {
		assert.Len(t, o.Activity, 1)
	}

	withTokenOrg := orgcontext.WithPrincipal(context.Background(), orgcontext.Principal{UserID: 1, OrgID: 7, SuperAdmin: true})
	everything, err = svc.List(withTokenOrg, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, everything.Orders, 3)

	pinned := orgcontext.WithPrincipal(context.Background(), orgcontext.Principal{UserID: 1, OrgID: 7, SuperAdmin: true, OrgPinned: true})
	scoped, err := svc.List(pinned, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, scoped.Orders, 1)
	assert.Equal(t, "Other", scoped.Orders[0].Customer.Name)
}

func TestUpdateStatus(t *testing.T) {
	svc, env := setupService(t)
	ctx := tenant()
	created, err := svc.Create(ctx, domain.CreateRequest{})
	require.NoError(t, err)

	resp, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: created.ID, Status: "quality check"})
	require.NoError(t, err)
	assert.Equal(t, "Quality Check", resp.Status)
	assert.Equal(t, int64(1), env.Count(t, "activity_logs", "action = ?", "order.status_changed"))

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: created.ID, Status: "Lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: created.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: env.Node.Generate().String(), Status: "Ready"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRemovesExactlyTheSet(t *testing.T) {
	svc, env := setupService(t)
	ctx := tenant()

	var ids []string
	for i := 0; i < 3; i++ {
		resp, err := svc.Create(ctx, domain.CreateRequest{
			Items: []domain.ItemInput{{Description: "Sticker", Quantity: 10, UnitPrice: price("0.5")}},
		})
		require.NoError(t, err)
		ids = append(ids, resp.ID)
	}

	n, err := svc.Delete(ctx, ids[:2])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(1), env.Count(t, "orders", ""))
	assert.Equal(t, int64(1), env.Count(t, "order_items", ""))
	assert.Equal(t, int64(1), env.Count(t, "invoices", "order_id IS NOT NULL"))
	assert.Equal(t, int64(2), env.Count(t, "invoices", "order_id IS NULL"))

	_, err = svc.Get(ctx, ids[2])
	assert.NoError(t, err)

	n, err = svc.Delete(orgcontext.WithOrgID(context.Background(), 7), ids[2:])
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = svc.Delete(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
	_, err = svc.Delete(ctx, []string{})
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}

func mustID(t *testing.T, id string) snowflake.ID {
	t.Helper()
	parsed, err := snowflake.ParseString(id)
	require.NoError(t, err)
	return parsed
}
