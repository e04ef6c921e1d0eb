package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	activitydomain "github.com/smallbiznis/pressroom/internal/activity/domain"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	numberingdomain "github.com/smallbiznis/pressroom/internal/numbering/domain"
	orderdomain "github.com/smallbiznis/pressroom/internal/order/domain"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table of the schema in creation order.
func Models() []any {
	return []any{
		&organizationdomain.Organization{},
		&organizationdomain.User{},
		&customerdomain.Customer{},
		&productdomain.Product{},
		&staffdomain.Agent{},
		&staffdomain.Department{},
		&numberingdomain.Sequence{},
		&lineitemdomain.LineItem{},
		&quotedomain.Quote{},
		&invoicedomain.Invoice{},
		&orderdomain.Order{},
		&orderdomain.Item{},
		&orderdomain.Assignment{},
		&orderdomain.Attachment{},
		&orderdomain.Proof{},
		&activitydomain.ActivityLog{},
	}
}

// Run brings the schema up to date. PostgreSQL uses the embedded SQL
// migrations; other engines are migrated from the models.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	return runSQLMigrations(conn)
}

func runSQLMigrations(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
