package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/pressroom/internal/observability/context"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
)

// HeaderOrg lets a super admin act inside a specific organization.
const HeaderOrg = "X-Org-ID"

// AuthRequired verifies the session token and attaches the caller and its
// organization to the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.sessions.Authenticate(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if principal.SuperAdmin {
			if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
				orgID, err := snowflake.ParseString(raw)
				if err != nil || orgID == 0 {
					AbortWithError(c, newValidationError("org", "invalid_organization", "invalid organization"))
					return
				}
				principal.OrgID = orgID
				principal.OrgPinned = true
			}
		}

		ctx := orgcontext.WithPrincipal(c.Request.Context(), principal)
		if principal.OrgID != 0 {
			ctx = obscontext.WithOrgID(ctx, principal.OrgID.String())
		}
		ctx = obscontext.WithActor(ctx, string(ActorUser), principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
