package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/pressroom/internal/activity/domain"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ActivityLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO activity_logs (
			id, org_id, actor_type, actor_id, action, target_type, target_id, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.ActivityLog, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.ActivityLog{})

	if filter.OrgID != 0 {
		stmt = stmt.Where("org_id = ?", filter.OrgID)
	}

	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if len(filter.TargetIDs) > 0 {
		stmt = stmt.Where("target_id IN ?", filter.TargetIDs)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	stmt = stmt.Session(&gorm.Session{})

	var total int64
	if page.Limit > 0 {
		if err := stmt.Count(&total).Error; err != nil {
			return nil, 0, err
		}
	}

	var logs []domain.ActivityLog
	if err := page.Apply(stmt).Order("created_at desc, id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	if page.Limit <= 0 {
		total = int64(len(logs))
	}
	return logs, total, nil
}
