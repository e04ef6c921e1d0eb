package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const invoiceColumns = `invoices.id, invoices.org_id, invoices.invoice_number, invoices.customer_id, invoices.quote_id,
	invoices.order_id, invoices.subtotal, invoices.tax_rate, invoices.tax_amount, invoices.total, invoices.status,
	invoices.due_date, invoices.notes, invoices.payment_method, invoices.paid_at, invoices.created_at, invoices.updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, org_id, invoice_number, customer_id, quote_id, order_id, subtotal, tax_rate, tax_amount, total,
			status, due_date, notes, payment_method, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.OrgID,
		inv.InvoiceNumber,
		inv.CustomerID,
		inv.QuoteID,
		inv.OrderID,
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.Total,
		inv.Status,
		inv.DueDate,
		inv.Notes,
		inv.PaymentMethod,
		inv.PaidAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET invoice_number = ?, customer_id = ?, subtotal = ?, tax_rate = ?, tax_amount = ?, total = ?,
		     status = ?, due_date = ?, notes = ?, payment_method = ?, paid_at = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		inv.InvoiceNumber,
		inv.CustomerID,
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.Total,
		inv.Status,
		inv.DueDate,
		inv.Notes,
		inv.PaymentMethod,
		inv.PaidAt,
		inv.UpdatedAt,
		inv.OrgID,
		inv.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `invoices.org_id = ? AND invoices.id = ?`, orgID, id)
}

func (r *repo) FindByQuoteID(ctx context.Context, db *gorm.DB, orgID, quoteID snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `invoices.org_id = ? AND invoices.quote_id = ?`, orgID, quoteID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE `+where+` ORDER BY invoices.created_at ASC LIMIT 1`,
		args...,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Invoice, error) {
	stmt := db.WithContext(ctx).
		Table("invoices").
		Select(invoiceColumns).
		Where("invoices.org_id = ?", orgID)

	if filter.ID != nil {
		stmt = stmt.Where("invoices.id = ?", *filter.ID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.
			Joins("LEFT JOIN customers ON customers.id = invoices.customer_id").
			Where("(LOWER(invoices.invoice_number) LIKE ? OR LOWER(invoices.notes) LIKE ? OR LOWER(customers.name) LIKE ?)", like, like, like)
	}

	var items []domain.Invoice
	if err := stmt.Order("invoices.created_at desc, invoices.id desc").Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LinkOrder(ctx context.Context, db *gorm.DB, orgID, id, orderID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET order_id = ? WHERE org_id = ? AND id = ?`,
		orderID, orgID, id,
	).Error
}

func (r *repo) UnlinkOrders(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderIDs []snowflake.ID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET order_id = NULL WHERE org_id = ? AND order_id IN ?`,
		orgID, orderIDs,
	).Error
}

func (r *repo) UnlinkQuotes(ctx context.Context, db *gorm.DB, orgID snowflake.ID, quoteIDs []snowflake.ID) error {
	if len(quoteIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET quote_id = NULL WHERE org_id = ? AND quote_id IN ?`,
		orgID, quoteIDs,
	).Error
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE org_id = ? AND id IN ?`,
		orgID, ids,
	)
	return result.RowsAffected, result.Error
}
