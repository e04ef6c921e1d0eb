// Package seed creates the rows a fresh install needs before it can serve requests.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/migration"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Provide(NewSeeder),
	fx.Invoke(func(_ migration.Applied, s *Seeder, cfg config.Config) error {
		_, err := s.Bootstrap(context.Background(), cfg.DefaultOrgName, cfg.BootstrapOwnerEmail)
		return err
	}),
)

type Params struct {
	fx.In

	Organizations organizationdomain.Service
	Log           *zap.Logger
}

type Seeder struct {
	orgs organizationdomain.Service
	log  *zap.Logger
}

func NewSeeder(p Params) *Seeder {
	return &Seeder{orgs: p.Organizations, log: p.Log.Named("seed")}
}

// Bootstrap ensures the default organization exists and, when ownerEmail is
// set, that it has an owner with that email. It is safe to run on every start.
func (s *Seeder) Bootstrap(ctx context.Context, orgName, ownerEmail string) (*organizationdomain.OrganizationResponse, error) {
	org, err := s.orgs.EnsureDefault(ctx, orgName)
	if err != nil {
		return nil, fmt.Errorf("ensure default organization: %w", err)
	}

	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	if ownerEmail == "" {
		return org, nil
	}

	orgID, err := snowflake.ParseString(org.ID)
	if err != nil {
		return nil, err
	}
	tenantCtx := orgcontext.WithOrgID(ctx, orgID.Int64())

	users, err := s.orgs.ListUsers(tenantCtx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == ownerEmail {
			return org, nil
		}
	}

	user, err := s.orgs.CreateUser(tenantCtx, organizationdomain.CreateUserRequest{
		Name:  "Owner",
		Email: ownerEmail,
		Role:  organizationdomain.RoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("create owner: %w", err)
	}
	s.log.Info("created organization owner", zap.String("org_id", org.ID), zap.String("user_id", user.ID))
	return org, nil
}
