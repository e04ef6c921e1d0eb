package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pressroom/internal/numbering/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, tx *gorm.DB, scope string, now time.Time) (int64, error) {
	db := tx.WithContext(ctx)

	seed := domain.Sequence{Scope: scope, Value: 0, UpdatedAt: now}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	// The UPDATE takes the row lock that serializes concurrent callers until commit.
	if err := db.Exec(
		`UPDATE document_sequences SET value = value + 1, updated_at = ? WHERE scope = ?`,
		now, scope,
	).Error; err != nil {
		return 0, err
	}

	return r.Current(ctx, tx, scope)
}

func (r *repo) Current(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`SELECT value FROM document_sequences WHERE scope = ?`,
		scope,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
