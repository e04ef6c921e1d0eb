package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/pressroom/internal/clock"
	"github.com/smallbiznis/pressroom/internal/numbering/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Store db.GlobalStore
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	store db.GlobalStore
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		store: p.Store,
		log:   p.Log.Named("numbering.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

// Next returns the next value of scope. When tx is nil the increment runs in
// its own transaction on the global store.
func (s *Service) Next(ctx context.Context, tx *gorm.DB, scope string) (int64, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return 0, domain.ErrInvalidScope
	}

	if tx != nil {
		return s.repo.Increment(ctx, tx, scope, s.clock.Now().UTC())
	}

	var value int64
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		v, err := s.repo.Increment(ctx, tx, scope, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Service) NextOrderNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	seq, err := s.Next(ctx, tx, domain.ScopeOrder)
	if err != nil {
		return "", err
	}
	return domain.FormatOrderNumber(seq), nil
}

func (s *Service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB, year int) (string, error) {
	seq, err := s.Next(ctx, tx, domain.InvoiceScope(year))
	if err != nil {
		return "", err
	}
	return domain.FormatInvoiceNumber(year, seq), nil
}
