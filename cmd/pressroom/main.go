package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/activity"
	"github.com/smallbiznis/pressroom/internal/auth/session"
	"github.com/smallbiznis/pressroom/internal/authorization"
	"github.com/smallbiznis/pressroom/internal/cascade"
	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/customer"
	"github.com/smallbiznis/pressroom/internal/invoice"
	"github.com/smallbiznis/pressroom/internal/lineitem"
	"github.com/smallbiznis/pressroom/internal/migration"
	"github.com/smallbiznis/pressroom/internal/numbering"
	"github.com/smallbiznis/pressroom/internal/observability"
	"github.com/smallbiznis/pressroom/internal/order"
	"github.com/smallbiznis/pressroom/internal/organization"
	"github.com/smallbiznis/pressroom/internal/product"
	"github.com/smallbiznis/pressroom/internal/quote"
	"github.com/smallbiznis/pressroom/internal/seed"
	"github.com/smallbiznis/pressroom/internal/server"
	"github.com/smallbiznis/pressroom/internal/staff"
	"github.com/smallbiznis/pressroom/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		// Domains
		organization.Module,
		customer.Module,
		product.Module,
		staff.Module,
		lineitem.Module,
		numbering.Module,
		activity.Module,
		cascade.Module,
		quote.Module,
		invoice.Module,
		order.Module,

		authorization.Module,
		session.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
