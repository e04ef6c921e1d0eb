package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/numbering/domain"
	"github.com/smallbiznis/pressroom/internal/numbering/repository"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	return setupServiceWithClock(t, clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func setupServiceWithClock(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:numbering?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Sequence{}))
	t.Cleanup(func() {
		conn.Exec("DELETE FROM document_sequences")
	})

	svc := New(Params{
		Store: db.NewGlobalStore(conn),
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, conn
}

func TestNextOrderNumberIsSequential(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.NextOrderNumber(ctx, nil)
	require.NoError(t, err)
	second, err := svc.NextOrderNumber(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", first)
	assert.Equal(t, "ORD-000002", second)
}

func TestNextInsideCallerTransaction(t *testing.T) {
	svc, conn := setupService(t)
	ctx := context.Background()

	err := conn.Transaction(func(tx *gorm.DB) error {
		n, err := svc.NextInvoiceNumber(ctx, tx, 2026)
		require.NoError(t, err)
		assert.Equal(t, "INV-2026-0001", n)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// The rolled back increment is not observed.
	n, err := svc.NextInvoiceNumber(ctx, nil, 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", n)
}

func TestNextStampsClockTime(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC))
	svc, conn := setupServiceWithClock(t, clk)
	ctx := context.Background()

	_, err := svc.NextOrderNumber(ctx, nil)
	require.NoError(t, err)

	var seq domain.Sequence
	require.NoError(t, conn.First(&seq, "scope = ?", domain.ScopeOrder).Error)
	assert.True(t, seq.UpdatedAt.Equal(clk.Now()), "updated_at %s", seq.UpdatedAt)

	clk.Advance(time.Hour)
	_, err = svc.NextOrderNumber(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, conn.First(&seq, "scope = ?", domain.ScopeOrder).Error)
	assert.Equal(t, int64(2), seq.Value)
	assert.True(t, seq.UpdatedAt.Equal(clk.Now()), "updated_at %s", seq.UpdatedAt)
}

func TestScopesAreIndependent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.NextOrderNumber(ctx, nil)
	require.NoError(t, err)
	n, err := svc.NextInvoiceNumber(ctx, nil, 2025)
	require.NoError(t, err)
	assert.Equal(t, "INV-2025-0001", n)

	_, err = svc.Next(ctx, nil, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidScope)
}

func TestOrderNumberHelpers(t *testing.T) {
	seq, err := domain.ParseOrderSequence("ORD-000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), seq)

	_, err = domain.ParseOrderSequence("INV-000042")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderNumber)
	_, err = domain.ParseOrderSequence("ORD-abc")
	assert.ErrorIs(t, err, domain.ErrInvalidOrderNumber)

	assert.Equal(t, "INV-000042", domain.InvoiceNumberForOrder("ORD-000042"))
	assert.Equal(t, "ORD-1234567", domain.FormatOrderNumber(1234567))
}
