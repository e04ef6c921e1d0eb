package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/internal/config"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/pressroom/internal/invoice/repository"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/internal/quote/domain"
	"github.com/smallbiznis/pressroom/internal/quote/repository"
	"github.com/smallbiznis/pressroom/internal/workflowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const orgID = snowflake.ID(42)

type failingInvoices struct {
	invoicedomain.Repository
}

func (failingInvoices) Insert(context.Context, *gorm.DB, *invoicedomain.Invoice) error {
	return errors.New("invoice store unavailable")
}

func setupService(t *testing.T, cfg config.WorkflowConfig, invoices invoicedomain.Repository, log *zap.Logger) (domain.Service, *workflowtest.Env) {
	t.Helper()

	env := workflowtest.New(t, cfg, log)
	if invoices == nil {
		invoices = invoicerepo.Provide()
	}

	svc := New(Params{
		Store:     env.Tenant,
		Log:       env.Log,
		GenID:     env.Node,
		Repo:      repository.Provide(),
		Invoices:  invoices,
		LineItems: env.LineItems,
		Customers: env.Customers,
		Numbering: env.Numbering,
		Activity:  env.Activity,
		Cascade:   env.Cascade,
		Clock:     env.Clock,
		Workflow:  env.Workflow,
	})
	return svc, env
}

func createQuote(t *testing.T, svc domain.Service, ctx context.Context, customerID snowflake.ID) *domain.Response {
	t.Helper()
	resp, err := svc.Create(ctx, domain.CreateRequest{
		QuoteNumber: "Q-1001",
		CustomerID:  customerID.String(),
		Notes:       "rush job",
		LineItems: []lineitemdomain.Input{
			{Description: "Business cards", Quantity: 2, UnitPrice: decimal.RequireFromString("100")},
			{Description: "Design fee", Quantity: 1, UnitPrice: decimal.RequireFromString("12")},
		},
	})
	require.NoError(t, err)
	return resp
}

func TestCreateComputesTotals(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), nil, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")

	resp := createQuote(t, svc, ctx, customer.ID)
	assert.Equal(t, domain.StatusDraft, resp.Status)
	assert.True(t, decimal.RequireFromString("212").Equal(resp.Subtotal))
	assert.True(t, decimal.RequireFromString("212").Equal(resp.Total))
	assert.Len(t, resp.LineItems, 2)
	require.NotNil(t, resp.Customer)
	assert.Equal(t, "Ada", resp.Customer.Name)
	assert.Equal(t, "2026-03-01", resp.Date)

	_, err := svc.Create(ctx, domain.CreateRequest{CustomerID: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = svc.Create(ctx, domain.CreateRequest{CustomerID: env.Node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = svc.Create(context.Background(), domain.CreateRequest{CustomerID: customer.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestAcceptCreatesSingleDraftInvoice(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), nil, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")
	quote := createQuote(t, svc, ctx, customer.ID)

	accepted := domain.StatusAccepted
	for i := 0; i < 2; i++ {
		resp, err := svc.Update(ctx, domain.UpdateRequest{ID: quote.ID, Status: &accepted})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, resp.Status)
	}

	assert.Equal(t, int64(1), env.Count(t, "invoices", "quote_id = ?", mustID(t, quote.ID)))

	invoice, err := invoicerepo.Provide().FindByQuoteID(ctx, env.DB, orgID, mustID(t, quote.ID))
	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, invoicedomain.StatusDraft, invoice.Status)
	assert.Equal(t, "INV-2026-0001", invoice.InvoiceNumber)
	assert.Equal(t, customer.ID, invoice.CustomerID)
	assert.Equal(t, "rush job", invoice.Notes)
	assert.True(t, decimal.RequireFromString("212").Equal(invoice.Total))
	require.NotNil(t, invoice.DueDate)
	assert.Equal(t, "2026-03-15", invoice.DueDate.Format("2006-01-02"))

	lines, err := env.LineItems.ListByOwners(ctx, env.DB, orgID, lineitemdomain.OwnerInvoice, []snowflake.ID{invoice.ID})
	require.NoError(t, err)
	require.Len(t, lines[invoice.ID], 2)
	assert.Equal(t, "Business cards", lines[invoice.ID][0].Description)
	assert.Equal(t, "Design fee", lines[invoice.ID][1].Description)
	assert.NotEqual(t, quote.LineItems[0].ID, lines[invoice.ID][0].ID.String())

	assert.Equal(t, int64(1), env.Count(t, "activity_logs", "action = ?", "quote.accepted"))
}

func TestAcceptUsesValidUntilAsDueDate(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), nil, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")

	resp, err := svc.Create(ctx, domain.CreateRequest{
		CustomerID: customer.ID.String(),
		Status:     "accepted",
		ValidUntil: "2026-04-30",
		LineItems:  []lineitemdomain.Input{{Description: "Flyers", Quantity: 500, UnitPrice: decimal.RequireFromString("0.10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, resp.Status)

	invoice, err := invoicerepo.Provide().FindByQuoteID(ctx, env.DB, orgID, mustID(t, resp.ID))
	require.NoError(t, err)
	require.NotNil(t, invoice)
	require.NotNil(t, invoice.DueDate)
	assert.Equal(t, "2026-04-30", invoice.DueDate.Format("2006-01-02"))
}

func TestStrictCascadeFailureRollsBackQuote(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), failingInvoices{invoicerepo.Provide()}, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")
	quote := createQuote(t, svc, ctx, customer.ID)

	accepted := domain.StatusAccepted
	_, err := svc.Update(ctx, domain.UpdateRequest{ID: quote.ID, Status: &accepted})
	require.Error(t, err)

	got, err := svc.Get(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, int64(0), env.Count(t, "invoices", ""))
}

func TestBestEffortCascadeFailureKeepsQuote(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	cfg := config.DefaultWorkflowConfig()
	cfg.CascadePolicy = config.CascadeBestEffort

	svc, env := setupService(t, cfg, failingInvoices{invoicerepo.Provide()}, zap.New(core))
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")
	quote := createQuote(t, svc, ctx, customer.ID)

	accepted := domain.StatusAccepted
	resp, err := svc.Update(ctx, domain.UpdateRequest{ID: quote.ID, Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, resp.Status)
	assert.Equal(t, int64(0), env.Count(t, "invoices", ""))
	assert.Equal(t, int64(0), env.Count(t, "activity_logs", ""))
	assert.Equal(t, 1, logs.FilterMessage("cascade failed, primary update kept").Len())
}

func TestUpdateLineItemsRecomputesTotals(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), nil, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")
	quote := createQuote(t, svc, ctx, customer.ID)

	rate := decimal.RequireFromString("10")
	lines := []lineitemdomain.Input{
		{ID: quote.LineItems[0].ID, Description: "Business cards", Quantity: 3, UnitPrice: decimal.RequireFromString("100")},
	}
	resp, err := svc.Update(ctx, domain.UpdateRequest{ID: quote.ID, TaxRate: &rate, LineItems: &lines})
	require.NoError(t, err)
	require.Len(t, resp.LineItems, 1)
	assert.Equal(t, quote.LineItems[0].ID, resp.LineItems[0].ID)
	assert.True(t, decimal.RequireFromString("300").Equal(resp.Subtotal))
	assert.True(t, decimal.RequireFromString("30").Equal(resp.TaxAmount))
	assert.True(t, decimal.RequireFromString("330").Equal(resp.Total))

	status := "nope"
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: quote.ID, Status: &status})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.Update(ctx, domain.UpdateRequest{ID: env.Node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	svc, env := setupService(t, config.DefaultWorkflowConfig(), nil, nil)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))
	customer := env.SeedCustomer(t, orgID, "Ada", "ada@example.com")
	first := createQuote(t, svc, ctx, customer.ID)
	second := createQuote(t, svc, ctx, customer.ID)

	accepted := domain.StatusAccepted
	_, err := svc.Update(ctx, domain.UpdateRequest{ID: first.ID, Status: &accepted})
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byID, err := svc.List(ctx, domain.ListRequest{ID: second.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, second.ID, byID[0].ID)

	got, err := svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = svc.Get(ctx, env.Node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(orgcontext.WithOrgID(context.Background(), 7), second.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bySearch, err := svc.List(ctx, domain.ListRequest{Search: "ADA"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2)

	other, err := svc.List(orgcontext.WithOrgID(context.Background(), 7), domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, other)

	n, err := svc.Delete(ctx, []string{first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(0), env.Count(t, "line_items", "quote_id = ?", mustID(t, first.ID)))
	assert.Equal(t, int64(2), env.Count(t, "line_items", "quote_id = ?", mustID(t, second.ID)))
	assert.Equal(t, int64(1), env.Count(t, "invoices", "quote_id IS NULL"))

	_, err = svc.Delete(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}

func mustID(t *testing.T, id string) snowflake.ID {
	t.Helper()
	parsed, err := snowflake.ParseString(id)
	require.NoError(t, err)
	return parsed
}
