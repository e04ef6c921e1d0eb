package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/lineitem/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item domain.LineItem) error {
	return db.WithContext(ctx).Exec(
		`UPDATE line_items
		 SET product_id = ?, description = ?, quantity = ?, unit_price = ?, total = ?, position = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		item.ProductID,
		item.Description,
		item.Quantity,
		item.UnitPrice,
		item.Total,
		item.Position,
		item.UpdatedAt,
		item.OrgID,
		item.ID,
	).Error
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM line_items WHERE org_id = ? AND id IN ?`,
		orgID, ids,
	).Error
}

func (r *repo) DeleteByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind domain.OwnerKind, ownerIDs []snowflake.ID) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Where(kind.Column()+" IN ?", ownerIDs).
		Delete(&domain.LineItem{}).Error
}

func (r *repo) ListByOwners(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind domain.OwnerKind, ownerIDs []snowflake.ID) ([]domain.LineItem, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Where(kind.Column()+" IN ?", ownerIDs).
		Order("position asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
