package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var staffStart = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	return setupServiceWithClock(t, clock.NewFakeClock(staffStart))
}

func setupServiceWithClock(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:staff?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Agent{}, &domain.Department{}))
	t.Cleanup(func() {
		conn.Exec("DELETE FROM agents")
		conn.Exec("DELETE FROM departments")
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Store:       db.NewTenantScopedStore(conn),
		Log:         zap.NewNop(),
		GenID:       node,
		Agents:      repository.ProvideStore[domain.Agent](conn),
		Departments: repository.ProvideStore[domain.Department](conn),
		Clock:       clk,
	})
	return svc, conn
}

func TestAgents(t *testing.T) {
	svc, conn := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 5)

	agent, err := svc.CreateAgent(ctx, domain.CreateAgentRequest{Name: "Sam"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordAgentOrder(ctx, conn, 5, agent.ID))
	require.NoError(t, svc.RecordAgentOrder(ctx, conn, 5, agent.ID))
	assert.ErrorIs(t, svc.RecordAgentOrder(ctx, conn, 6, agent.ID), domain.ErrInvalidAgent)

	found, err := svc.FindAgent(ctx, conn, 5, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.TotalOrders)

	missing, err := svc.FindAgent(ctx, conn, 6, agent.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := svc.ListAgents(orgcontext.WithOrgID(context.Background(), 6))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDepartments(t *testing.T) {
	svc, conn := setupService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 5)

	dept, err := svc.CreateDepartment(ctx, domain.CreateDepartmentRequest{Name: "Large Format"})
	require.NoError(t, err)
	assert.Equal(t, "large-format", dept.Code)

	_, err = svc.CreateDepartment(ctx, domain.CreateDepartmentRequest{Name: "Large format", Code: "Large Format"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)

	_, err = svc.CreateDepartment(ctx, domain.CreateDepartmentRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	byID, err := svc.DepartmentsByIDs(ctx, conn, []snowflake.ID{dept.ID})
	require.NoError(t, err)
	assert.Equal(t, "Large Format", byID[dept.ID].Name)

	list, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAgentTimestampsFollowClock(t *testing.T) {
	clk := clock.NewFakeClock(staffStart)
	svc, conn := setupServiceWithClock(t, clk)
	ctx := orgcontext.WithOrgID(context.Background(), 5)

	agent, err := svc.CreateAgent(ctx, domain.CreateAgentRequest{Name: "Sam"})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	require.NoError(t, svc.RecordAgentOrder(ctx, conn, 5, agent.ID))

	var stored domain.Agent
	require.NoError(t, conn.First(&stored, "id = ?", agent.ID).Error)
	assert.True(t, stored.CreatedAt.Equal(staffStart), "created_at %s", stored.CreatedAt)
	assert.True(t, stored.UpdatedAt.Equal(clk.Now()), "updated_at %s", stored.UpdatedAt)
}
