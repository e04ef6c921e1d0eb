package rls

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WithTenant pins app.current_org_id for the rest of the transaction.
func WithTenant(tx *gorm.DB, orgID snowflake.ID) error {
	return tx.Exec("SELECT set_config('app.current_org_id', ?, true)", orgID.String()).Error
}
