package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pressroom/internal/auth/session"
	"github.com/smallbiznis/pressroom/internal/authorization"
	"github.com/smallbiznis/pressroom/internal/cascade"
	"github.com/smallbiznis/pressroom/internal/config"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	"github.com/smallbiznis/pressroom/internal/observability"
	orderdomain "github.com/smallbiznis/pressroom/internal/order/domain"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
	"github.com/smallbiznis/pressroom/internal/shipment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type quoteServiceMock struct{ mock.Mock }

func (m *quoteServiceMock) List(ctx context.Context, req quotedomain.ListRequest) ([]quotedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).([]quotedomain.Response)
	return resp, args.Error(1)
}

func (m *quoteServiceMock) Get(ctx context.Context, id string) (*quotedomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*quotedomain.Response)
	return resp, args.Error(1)
}

func (m *quoteServiceMock) Create(ctx context.Context, req quotedomain.CreateRequest) (*quotedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*quotedomain.Response)
	return resp, args.Error(1)
}

func (m *quoteServiceMock) Update(ctx context.Context, req quotedomain.UpdateRequest) (*quotedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*quotedomain.Response)
	return resp, args.Error(1)
}

func (m *quoteServiceMock) Delete(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type invoiceServiceMock struct{ mock.Mock }

func (m *invoiceServiceMock) List(ctx context.Context, req invoicedomain.ListRequest) ([]invoicedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).([]invoicedomain.Response)
	return resp, args.Error(1)
}

func (m *invoiceServiceMock) Get(ctx context.Context, id string) (*invoicedomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*invoicedomain.Response)
	return resp, args.Error(1)
}

func (m *invoiceServiceMock) Create(ctx context.Context, req invoicedomain.CreateRequest) (*invoicedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*invoicedomain.Response)
	return resp, args.Error(1)
}

func (m *invoiceServiceMock) Update(ctx context.Context, req invoicedomain.UpdateRequest) (*invoicedomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*invoicedomain.Response)
	return resp, args.Error(1)
}

func (m *invoiceServiceMock) Delete(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

type orderServiceMock struct{ mock.Mock }

func (m *orderServiceMock) List(ctx context.Context, req orderdomain.ListRequest) (*orderdomain.ListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*orderdomain.ListResponse)
	return resp, args.Error(1)
}

func (m *orderServiceMock) Get(ctx context.Context, id string) (*orderdomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*orderdomain.Response)
	return resp, args.Error(1)
}

func (m *orderServiceMock) Create(ctx context.Context, req orderdomain.CreateRequest) (*orderdomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*orderdomain.Response)
	return resp, args.Error(1)
}

func (m *orderServiceMock) UpdateStatus(ctx context.Context, req orderdomain.UpdateStatusRequest) (*orderdomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*orderdomain.Response)
	return resp, args.Error(1)
}

func (m *orderServiceMock) Delete(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *orderServiceMock) Tracking(ctx context.Context, id string) ([]shipment.Tracking, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).([]shipment.Tracking)
	return resp, args.Error(1)
}

type authzMock struct{ mock.Mock }

func (m *authzMock) Authorize(ctx context.Context, actor, orgID, object, action string) error {
	return m.Called(ctx, actor, orgID, object, action).Error(0)
}

type testServer struct {
	srv      *Server
	sessions *session.Manager
	quotes   *quoteServiceMock
	invoices *invoiceServiceMock
	orders   *orderServiceMock
	authz    *authzMock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{AppName: "pressroom", AuthJWTSecret: "test-secret"}
	ts := &testServer{
		sessions: session.NewManager(cfg),
		quotes:   &quoteServiceMock{},
		invoices: &invoiceServiceMock{},
		orders:   &orderServiceMock{},
		authz:    &authzMock{},
	}
	ts.srv = NewServer(ServerParams{
		Gin:        NewEngine(cfg, observability.Config{}, nil),
		Cfg:        cfg,
		Sessions:   ts.sessions,
		AuthzSvc:   ts.authz,
		QuoteSvc:   ts.quotes,
		InvoiceSvc: ts.invoices,
		OrderSvc:   ts.orders,
	})
	t.Cleanup(func() {
		ts.quotes.AssertExpectations(t)
		ts.invoices.AssertExpectations(t)
		ts.orders.AssertExpectations(t)
		ts.authz.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) token(t *testing.T, p orgcontext.Principal) string {
	t.Helper()
	now := time.Now()
	token, err := ts.sessions.Issue(p, now, now.Add(time.Hour))
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, target, token string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

var member = orgcontext.Principal{UserID: snowflake.ID(11), OrgID: snowflake.ID(7), Role: "member"}

func allow(ts *testServer, object, action string) {
	ts.authz.On("Authorize", mock.Anything, "user:11", "7", object, action).Return(nil).Once()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/documents/quotes", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)

	rec = ts.do(t, http.MethodGet, "/api/documents/quotes", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForbiddenSkipsHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.authz.On("Authorize", mock.Anything, "user:11", "7", authorization.ObjectQuote, authorization.ActionQuoteDelete).
		Return(authorization.ErrForbidden).Once()

	rec := ts.do(t, http.MethodDelete, "/api/documents/quotes?id=42", ts.token(t, member), nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeError(t, rec).Code)
	ts.quotes.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteQuotesIDSources(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   any
		want   []string
	}{
		{name: "query", target: "/api/documents/quotes?id=42", want: []string{"42"}},
		{name: "body", target: "/api/documents/quotes", body: map[string]any{"ids": []string{"1", "2"}}, want: []string{"1", "2"}},
		{name: "query wins", target: "/api/documents/quotes?id=9", body: map[string]any{"ids": []string{"1"}}, want: []string{"9"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			allow(ts, authorization.ObjectQuote, authorization.ActionQuoteDelete)
			ts.quotes.On("Delete", mock.Anything, tt.want).Return(int64(len(tt.want)), nil).Once()

			rec := ts.do(t, http.MethodDelete, tt.target, ts.token(t, member), tt.body, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]int64
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, int64(len(tt.want)), resp["deleted"])
		})
	}
}

func TestDeleteOrdersEmptyIDs(t *testing.T) {
	ts := newTestServer(t)
	allow(ts, authorization.ObjectOrder, authorization.ActionOrderDelete)
	ts.orders.On("Delete", mock.Anything, []string{}).Return(int64(0), orderdomain.ErrInvalidIDs).Once()

	rec := ts.do(t, http.MethodDelete, "/api/orders", ts.token(t, member), map[string]any{"ids": []string{}}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "validation_error", resp.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "invalid_ids", resp.Errors[0].Code)
	assert.Equal(t, "ids", resp.Errors[0].Field)
}

func TestDeleteOrdersMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	allow(ts, authorization.ObjectOrder, authorization.ActionOrderDelete)

	req := httptest.NewRequest(http.MethodDelete, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.token(t, member))
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantCode string
	}{
		{name: "not found", err: orderdomain.ErrNotFound, status: http.StatusNotFound, wantCode: "not_found"},
		{name: "insufficient stock", err: fmt.Errorf("reserve: %w", productdomain.ErrInsufficientStock), status: http.StatusInternalServerError, wantCode: "insufficient_stock"},
		{name: "cascade", err: &cascade.Error{Transition: "order.completed", Err: errors.New("boom")}, status: http.StatusInternalServerError, wantCode: "cascade_failed"},
		{name: "invalid status", err: orderdomain.ErrInvalidStatus, status: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "unexpected", err: errors.New("connection reset"), status: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			allow(ts, authorization.ObjectOrder, authorization.ActionOrderUpdateStatus)
			ts.orders.On("UpdateStatus", mock.Anything, orderdomain.UpdateStatusRequest{ID: "55", Status: "Completed"}).
				Return(nil, tt.err).Once()

			rec := ts.do(t, http.MethodPatch, "/api/orders/55/status", ts.token(t, member), map[string]string{"status": "Completed"}, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestSuperAdminOrgHeader(t *testing.T) {
	ts := newTestServer(t)
	admin := orgcontext.Principal{UserID: snowflake.ID(1), SuperAdmin: true}

	ts.quotes.On("List", mock.MatchedBy(func(ctx context.Context) bool {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		return ok && orgID == snowflake.ID(99)
	}), quotedomain.ListRequest{}).Return([]quotedomain.Response{}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/documents/quotes", ts.token(t, admin), nil, map[string]string{HeaderOrg: "99"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSuperAdminInvalidOrgHeader(t *testing.T) {
	ts := newTestServer(t)
	admin := orgcontext.Principal{UserID: snowflake.ID(1), SuperAdmin: true}

	rec := ts.do(t, http.MethodGet, "/api/documents/quotes", ts.token(t, admin), nil, map[string]string{HeaderOrg: "abc"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_organization", decodeError(t, rec).Errors[0].Code)
}

func TestOrgHeaderIgnoredForMembers(t *testing.T) {
	ts := newTestServer(t)
	allow(ts, authorization.ObjectQuote, authorization.ActionQuoteView)
	ts.quotes.On("List", mock.MatchedBy(func(ctx context.Context) bool {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		return ok && orgID == snowflake.ID(7)
	}), quotedomain.ListRequest{Search: "flyer"}).Return([]quotedomain.Response{}, nil).Once()

	rec := ts.do(t, http.MethodGet, "/api/documents/quotes?search=flyer", ts.token(t, member), nil, map[string]string{HeaderOrg: "99"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSingleDocumentByQueryID(t *testing.T) {
	t.Run("quote found", func(t *testing.T) {
		ts := newTestServer(t)
		allow(ts, authorization.ObjectQuote, authorization.ActionQuoteView)
		ts.quotes.On("Get", mock.Anything, "42").Return(&quotedomain.Response{ID: "42", QuoteNumber: "Q-1"}, nil).Once()

		rec := ts.do(t, http.MethodGet, "/api/documents/quotes?id=42", ts.token(t, member), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "42", resp["id"])
		assert.Equal(t, "Q-1", resp["quoteNumber"])
		ts.quotes.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("quote unknown", func(t *testing.T) {
		ts := newTestServer(t)
		allow(ts, authorization.ObjectQuote, authorization.ActionQuoteView)
		ts.quotes.On("Get", mock.Anything, "43").Return(nil, quotedomain.ErrNotFound).Once()

		rec := ts.do(t, http.MethodGet, "/api/documents/quotes?id=43", ts.token(t, member), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)
	})

	t.Run("invoice found", func(t *testing.T) {
		ts := newTestServer(t)
		allow(ts, authorization.ObjectInvoice, authorization.ActionInvoiceView)
		ts.invoices.On("Get", mock.Anything, "77").Return(&invoicedomain.Response{ID: "77"}, nil).Once()

		rec := ts.do(t, http.MethodGet, "/api/documents/invoices?id=77", ts.token(t, member), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "77", resp["id"])
	})

	t.Run("invoice unknown", func(t *testing.T) {
		ts := newTestServer(t)
		allow(ts, authorization.ObjectInvoice, authorization.ActionInvoiceView)
		ts.invoices.On("Get", mock.Anything, "78").Return(nil, invoicedomain.ErrNotFound).Once()

		rec := ts.do(t, http.MethodGet, "/api/documents/invoices?id=78", ts.token(t, member), nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSuperAdminOrderListScope(t *testing.T) {
	admin := orgcontext.Principal{UserID: snowflake.ID(1), OrgID: snowflake.ID(42), SuperAdmin: true}

	t.Run("token org does not pin", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.On("List", mock.MatchedBy(orgcontext.ReadsAllOrgs), mock.Anything).
			Return(&orderdomain.ListResponse{Orders: []orderdomain.Response{}}, nil).Once()

		rec := ts.do(t, http.MethodGet, "/api/orders", ts.token(t, admin), nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header pins", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.On("List", mock.MatchedBy(func(ctx context.Context) bool {
			orgID, ok := orgcontext.OrgIDFromContext(ctx)
			return ok && orgID == snowflake.ID(99) && !orgcontext.ReadsAllOrgs(ctx)
		}), mock.Anything).Return(&orderdomain.ListResponse{Orders: []orderdomain.Response{}}, nil).Once()

		rec := ts.do(t, http.MethodGet, "/api/orders", ts.token(t, admin), nil, map[string]string{HeaderOrg: "99"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestValidationMessageSurfaced(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		field   string
	}{
		{name: "missing customer", err: fmt.Errorf("create quote: %w", quotedomain.ErrInvalidCustomer), message: "customerId is required", field: "customer"},
		{name: "bad status", err: quotedomain.ErrInvalidStatus, message: "status is not allowed", field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			allow(ts, authorization.ObjectQuote, authorization.ActionQuoteCreate)
			ts.quotes.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rec := ts.do(t, http.MethodPost, "/api/documents/quotes", ts.token(t, member), map[string]any{"quoteNumber": "Q-9"}, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, tt.message, resp.Error)
			assert.Equal(t, "validation_error", resp.Code)
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, tt.field, resp.Errors[0].Field)
			assert.Equal(t, tt.message, resp.Errors[0].Message)
		})
	}

	t.Run("request level", func(t *testing.T) {
		ts := newTestServer(t)
		admin := orgcontext.Principal{UserID: snowflake.ID(1), SuperAdmin: true}
		rec := ts.do(t, http.MethodGet, "/api/documents/quotes", ts.token(t, admin), nil, map[string]string{HeaderOrg: "abc"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid organization", decodeError(t, rec).Error)
	})
}
