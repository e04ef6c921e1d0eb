package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/activity/domain"
	"github.com/smallbiznis/pressroom/internal/clock"
	obscontext "github.com/smallbiznis/pressroom/internal/observability/context"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"github.com/smallbiznis/pressroom/pkg/db"
	"github.com/smallbiznis/pressroom/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store db.TenantScopedStore
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	store db.TenantScopedStore
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		store: p.Store,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry domain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" || entry.TargetID == 0 {
		return domain.ErrInvalidTarget
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	actorType, actorID := s.resolveActor(ctx)
	log := domain.ActivityLog{
		ID:         s.genID.Generate(),
		OrgID:      entry.OrgID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   entry.TargetID,
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, tx, &log); err != nil {
		s.log.Warn("failed to write activity log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) ForTargets(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, targetType string, ids []snowflake.ID) (map[snowflake.ID][]domain.ActivityLog, error) {
	out := make(map[snowflake.ID][]domain.ActivityLog, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	logs, _, err := s.repo.List(ctx, conn, domain.ListFilter{
		OrgID:      orgID,
		TargetType: targetType,
		TargetIDs:  ids,
	}, pagination.Pagination{})
	if err != nil {
		return nil, err
	}
	for _, l := range logs {
		out[l.TargetID] = append(out[l.TargetID], l)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	conn, orgID, err := s.store.Read(ctx)
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{
		OrgID:      orgID,
		TargetType: req.TargetType,
		Action:     req.Action,
	}
	if raw := strings.TrimSpace(req.TargetID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidTarget
		}
		filter.TargetIDs = []snowflake.ID{id}
	}

	page := pagination.Pagination{Page: req.Page, Limit: req.Limit}.Normalize(50, 250)
	logs, total, err := s.repo.List(ctx, conn, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if logs == nil {
		logs = []domain.ActivityLog{}
	}
	return domain.ListResponse{
		Activity:   logs,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) resolveActor(ctx context.Context) (string, *string) {
	if p, ok := orgcontext.PrincipalFromContext(ctx); ok && p.UserID != 0 {
		id := p.UserID.String()
		return domain.ActorTypeUser, &id
	}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorType != "" {
		if strings.TrimSpace(actorID) == "" {
			return actorType, nil
		}
		return actorType, &actorID
	}
	return domain.ActorTypeSystem, nil
}

