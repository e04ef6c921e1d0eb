package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/quote/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const quoteColumns = `quotes.id, quotes.org_id, quotes.quote_number, quotes.customer_id, quotes.subtotal, quotes.tax_rate,
	quotes.tax_amount, quotes.total, quotes.status, quotes.valid_until, quotes.notes, quotes.created_at, quotes.updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, q *domain.Quote) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quotes (
			id, org_id, quote_number, customer_id, subtotal, tax_rate, tax_amount, total,
			status, valid_until, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID,
		q.OrgID,
		q.QuoteNumber,
		q.CustomerID,
		q.Subtotal,
		q.TaxRate,
		q.TaxAmount,
		q.Total,
		q.Status,
		q.ValidUntil,
		q.Notes,
		q.CreatedAt,
		q.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, q *domain.Quote) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quotes
		 SET quote_number = ?, customer_id = ?, subtotal = ?, tax_rate = ?, tax_amount = ?, total = ?,
		     status = ?, valid_until = ?, notes = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		q.QuoteNumber,
		q.CustomerID,
		q.Subtotal,
		q.TaxRate,
		q.TaxAmount,
		q.Total,
		q.Status,
		q.ValidUntil,
		q.Notes,
		q.UpdatedAt,
		q.OrgID,
		q.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Quote, error) {
	var q domain.Quote
	err := db.WithContext(ctx).Raw(
		`SELECT `+quoteColumns+` FROM quotes WHERE quotes.org_id = ? AND quotes.id = ?`,
		orgID,
		id,
	).Scan(&q).Error
	if err != nil {
		return nil, err
	}
	if q.ID == 0 {
		return nil, nil
	}
	return &q, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Quote, error) {
	stmt := db.WithContext(ctx).
		Table("quotes").
		Select(quoteColumns).
		Where("quotes.org_id = ?", orgID)

	if filter.ID != nil {
		stmt = stmt.Where("quotes.id = ?", *filter.ID)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		stmt = stmt.
			Joins("LEFT JOIN customers ON customers.id = quotes.customer_id").
			Where("(LOWER(quotes.quote_number) LIKE ? OR LOWER(quotes.notes) LIKE ? OR LOWER(customers.name) LIKE ?)", like, like, like)
	}

	var items []domain.Quote
	if err := stmt.Order("quotes.created_at desc, quotes.id desc").Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(
		`DELETE FROM quotes WHERE org_id = ? AND id IN ?`,
		orgID, ids,
	)
	return result.RowsAffected, result.Error
}
