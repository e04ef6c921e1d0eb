package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/internal/product/domain"
	"github.com/smallbiznis/pressroom/internal/product/repository"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:products?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Product{}))
	t.Cleanup(func() { conn.Exec("DELETE FROM products") })

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Store: db.NewTenantScopedStore(conn),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.SystemClock{},
	})
	return svc, conn
}

func TestCreateUpdateProduct(t *testing.T) {
	svc, _ := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 9)

	created, err := svc.Create(ctx, domain.CreateRequest{
		SKU:        "BC-100",
		Name:       "Business cards",
		Price:      decimal.RequireFromString("0.15"),
		Stock:      1000,
		TrackStock: true,
		Options:    json.RawMessage(`{"tiers":[{"minQty":500,"unitPrice":0.1}]}`),
	})
	require.NoError(t, err)
	assert.True(t, created.Active)
	require.Len(t, created.Options.Tiers, 1)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Bad", Options: json.RawMessage(`{"tiers":`)})
	assert.ErrorIs(t, err, domain.ErrInvalidOptions)

	stock := 20
	name := "Premium cards"
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: created.ID, Stock: &stock, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Stock)
	assert.Equal(t, "Premium cards", updated.Name)
	assert.Equal(t, "BC-100", updated.SKU)

	_, err = svc.Update(orgcontext.WithOrgID(context.Background(), 10), domain.UpdateRequest{ID: created.ID, Stock: &stock})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, domain.ListRequest{Search: "premium"})
	require.NoError(t, err)
	assert.Len(t, list.Products, 1)
}

func TestReserve(t *testing.T) {
	svc, conn := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 9)

	tracked, err := svc.Create(ctx, domain.CreateRequest{Name: "Poster", Price: decimal.RequireFromString("5"), Stock: 3, TrackStock: true})
	require.NoError(t, err)
	untracked, err := svc.Create(ctx, domain.CreateRequest{Name: "Sticker", Price: decimal.RequireFromString("1")})
	require.NoError(t, err)

	trackedID := snowflake.ParseInt64(mustParse(t, tracked.ID))
	untrackedID := snowflake.ParseInt64(mustParse(t, untracked.ID))

	_, err = svc.Reserve(ctx, conn, 9, trackedID, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err := svc.Reserve(ctx, conn, 9, trackedID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	p, err = svc.Reserve(ctx, conn, 9, untrackedID, 500)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	_, err = svc.Reserve(ctx, conn, 9, 123, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)

	got, err := svc.Get(ctx, tracked.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func mustParse(t *testing.T, id string) int64 {
	t.Helper()
	parsed, err := snowflake.ParseString(id)
	require.NoError(t, err)
	return parsed.Int64()
}
