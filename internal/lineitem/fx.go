package lineitem

import (
	"github.com/smallbiznis/pressroom/internal/lineitem/repository"
	"github.com/smallbiznis/pressroom/internal/lineitem/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lineitem.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
