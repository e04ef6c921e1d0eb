package staff

import (
	"github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/internal/staff/service"
	"github.com/smallbiznis/pressroom/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("staff.service",
	fx.Provide(repository.ProvideStore[domain.Agent]),
	fx.Provide(repository.ProvideStore[domain.Department]),
	fx.Provide(service.New),
)
