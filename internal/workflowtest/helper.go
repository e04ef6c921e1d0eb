// Package workflowtest wires the document workflow services against an
// in-memory sqlite database for package tests.
package workflowtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	activityrepo "github.com/smallbiznis/pressroom/internal/activity/repository"
	activityservice "github.com/smallbiznis/pressroom/internal/activity/service"
	"github.com/smallbiznis/pressroom/internal/cascade"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/migration"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	customerrepo "github.com/smallbiznis/pressroom/internal/customer/repository"
	customerservice "github.com/smallbiznis/pressroom/internal/customer/service"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	lineitemrepo "github.com/smallbiznis/pressroom/internal/lineitem/repository"
	lineitemservice "github.com/smallbiznis/pressroom/internal/lineitem/service"
	numberingdomain "github.com/smallbiznis/pressroom/internal/numbering/domain"
	numberingrepo "github.com/smallbiznis/pressroom/internal/numbering/repository"
	numberingservice "github.com/smallbiznis/pressroom/internal/numbering/service"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	organizationrepo "github.com/smallbiznis/pressroom/internal/organization/repository"
	organizationservice "github.com/smallbiznis/pressroom/internal/organization/service"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	productrepo "github.com/smallbiznis/pressroom/internal/product/repository"
	productservice "github.com/smallbiznis/pressroom/internal/product/service"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	staffservice "github.com/smallbiznis/pressroom/internal/staff/service"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Start is the fixed instant every Env clock starts at.
var Start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Models lists every table of the workflow.
func Models() []any {
	return migration.Models()
}

type Env struct {
	DB       *gorm.DB
	Node     *snowflake.Node
	Clock    *clock.FakeClock
	Log      *zap.Logger
	Tenant   db.TenantScopedStore
	Global   db.GlobalStore
	Workflow *config.WorkflowConfigHolder

	Customers     customerdomain.Service
	Products      productdomain.Service
	Staff         staffdomain.Service
	Organizations organizationdomain.Service
	LineItems     lineitemdomain.Service
	Numbering     numberingdomain.Service
	Activity      activitydomain.Service
	Cascade       *cascade.Runner
}

// New opens a private in-memory database named after the test and builds the
// shared services on top of it. log may be nil.
func New(t testing.TB, cfg config.WorkflowConfig, log *zap.Logger) *Env {
	t.Helper()

	if log == nil {
		log = zap.NewNop()
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(Models()...))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	env := &Env{
		DB:       conn,
		Node:     node,
		Clock:    clock.NewFakeClock(Start),
		Log:      log,
		Tenant:   db.NewTenantScopedStore(conn),
		Global:   db.NewGlobalStore(conn),
		Workflow: config.NewStaticWorkflowConfigHolder(cfg),
	}

	env.Customers = customerservice.New(customerservice.Params{
		Store: env.Tenant, Log: log, GenID: node, Repo: customerrepo.Provide(), Clock: env.Clock, Workflow: env.Workflow,
	})
	env.Products = productservice.New(productservice.Params{
		Store: env.Tenant, Log: log, GenID: node, Repo: productrepo.Provide(), Clock: env.Clock, Workflow: env.Workflow,
	})
	env.Staff = staffservice.New(staffservice.Params{
		Store:       env.Tenant,
		Log:         log,
		GenID:       node,
		Agents:      repository.ProvideStore[staffdomain.Agent](conn),
		Departments: repository.ProvideStore[staffdomain.Department](conn),
		Clock:       env.Clock,
	})
	env.Organizations = organizationservice.NewService(conn, env.Tenant, organizationrepo.NewRepository(conn), node, log, env.Clock)
	env.LineItems = lineitemservice.New(lineitemservice.Params{
		Log: log, GenID: node, Repo: lineitemrepo.Provide(), Clock: env.Clock,
	})
	env.Numbering = numberingservice.New(numberingservice.Params{
		Store: env.Global, Log: log, Repo: numberingrepo.Provide(), Clock: env.Clock,
	})
	env.Activity = activityservice.NewService(activityservice.Params{
		Store: env.Tenant, Log: log, GenID: node, Repo: activityrepo.Provide(), Clock: env.Clock,
	})
	env.Cascade = cascade.NewRunner(cascade.Params{Log: log, Workflow: env.Workflow})
	return env
}

// SeedCustomer inserts a customer of orgID directly.
func (e *Env) SeedCustomer(t testing.TB, orgID snowflake.ID, name, email string) customerdomain.Customer {
	t.Helper()
	c := customerdomain.Customer{
		ID:         e.Node.Generate(),
		OrgID:      orgID,
		Name:       name,
		Email:      email,
		TotalSpent: decimal.Zero,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  e.Clock.Now(),
		UpdatedAt:  e.Clock.Now(),
	}
	require.NoError(t, e.DB.Create(&c).Error)
	return c
}

// SeedProduct inserts a product of orgID directly.
func (e *Env) SeedProduct(t testing.TB, orgID snowflake.ID, sku string, price string, stock int, trackStock bool) productdomain.Product {
	t.Helper()
	p := productdomain.Product{
		ID:         e.Node.Generate(),
		OrgID:      orgID,
		SKU:        sku,
		Name:       sku,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		TrackStock: trackStock,
		Active:     true,
		CreatedAt:  e.Clock.Now(),
		UpdatedAt:  e.Clock.Now(),
	}
	require.NoError(t, e.DB.Create(&p).Error)
	return p
}

// SeedUser inserts an active member of orgID directly.
func (e *Env) SeedUser(t testing.TB, orgID snowflake.ID, email string) organizationdomain.User {
	t.Helper()
	u := organizationdomain.User{
		ID:        e.Node.Generate(),
		OrgID:     orgID,
		Name:      email,
		Email:     email,
		Role:      organizationdomain.RoleMember,
		Active:    true,
		CreatedAt: e.Clock.Now(),
		UpdatedAt: e.Clock.Now(),
	}
	require.NoError(t, e.DB.Create(&u).Error)
	return u
}

// Count returns the number of rows of table matching where.
func (e *Env) Count(t testing.TB, table string, where string, args ...any) int64 {
	t.Helper()
	var n int64
	stmt := e.DB.WithContext(context.Background()).Table(table)
	if where != "" {
		stmt = stmt.Where(where, args...)
	}
	require.NoError(t, stmt.Count(&n).Error)
	return n
}
