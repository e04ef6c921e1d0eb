package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Applied is provided once the schema is current. Startup code that writes
// rows depends on it.
type Applied struct{}

var Module = fx.Module("migrations",
	fx.Provide(func(conn *gorm.DB) (Applied, error) {
		if err := Run(conn); err != nil {
			return Applied{}, err
		}
		return Applied{}, nil
	}),
)
