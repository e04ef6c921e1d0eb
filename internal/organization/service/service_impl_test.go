package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/internal/organization/domain"
	"github.com/smallbiznis/pressroom/internal/organization/repository"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var orgStart = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:organizations?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Organization{}, &domain.User{}))
	t.Cleanup(func() {
		conn.Exec("DELETE FROM users")
		conn.Exec("DELETE FROM organizations")
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(conn, db.NewTenantScopedStore(conn), repository.NewRepository(conn), node, zap.NewNop(), clock.NewFakeClock(orgStart)), conn
}

func TestEnsureDefaultIsIdempotent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.EnsureDefault(ctx, "Main Street Print")
	require.NoError(t, err)
	assert.Equal(t, "main-street-print", first.Slug)
	assert.True(t, first.IsDefault)

	second, err := svc.EnsureDefault(ctx, "Another name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main Street Print", got.Name)
}

func TestUsers(t *testing.T) {
	svc, conn := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 3)

	alice, err := svc.CreateUser(ctx, domain.CreateUserRequest{Name: "Alice", Email: "Alice@Shop.test", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "alice@shop.test", alice.Email)
	assert.True(t, alice.CreatedAt.Equal(orgStart), "created_at %s", alice.CreatedAt)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "Alice again", Email: "alice@shop.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.CreateUser(ctx, domain.CreateUserRequest{Name: "Bob", Email: "bob@shop.test", Role: "boss"})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	id, err := snowflake.ParseString(alice.ID)
	require.NoError(t, err)
	found, err := svc.ActiveUsers(ctx, conn, 3, []snowflake.ID{id, 999})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	other, err := svc.ActiveUsers(ctx, conn, 4, []snowflake.ID{id})
	require.NoError(t, err)
	assert.Empty(t, other)
}
