package orgcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// OrgContextKey is the request context key for the active organization ID.
type OrgContextKey struct{}

type principalKey struct{}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID     snowflake.ID
	OrgID      snowflake.ID
	Role       string
	SuperAdmin bool
	// OrgPinned is set when a super admin chose OrgID explicitly for this request.
	OrgPinned bool
}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	switch typed := ctx.Value(OrgContextKey{}).(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// WithPrincipal stores the caller and also sets its org as the active org.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	if p.OrgID != 0 {
		ctx = WithOrgID(ctx, p.OrgID.Int64())
	}
	return ctx
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// IsSuperAdmin reports whether the caller may read across organizations.
func IsSuperAdmin(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.SuperAdmin
}

// ReadsAllOrgs reports whether cross-organization reads apply: a super admin
// who did not pin an organization for the request.
func ReadsAllOrgs(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.SuperAdmin && !p.OrgPinned
}
