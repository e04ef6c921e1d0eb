package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
)

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

type Actor struct {
	Type  ActorType
	OrgID snowflake.ID
	ID    string
}

func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeOrgActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeOrgActionWithContext(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}

	switch actor.Type {
	case ActorSystem:
		return nil
	case ActorUser:
		if actor.OrgID == 0 {
			return ErrUnauthorized
		}
		if s.authzSvc == nil {
			return ErrForbidden
		}
		return s.authzSvc.Authorize(c.Request.Context(), actor.subject(), actor.OrgID.String(), strings.TrimSpace(object), strings.TrimSpace(action))
	default:
		return ErrUnauthorized
	}
}

// actorFromContext maps the session principal to an actor. Super admins act
// with system rights.
func actorFromContext(c *gin.Context) (Actor, bool) {
	if c == nil || c.Request == nil {
		return Actor{}, false
	}
	principal, ok := orgcontext.PrincipalFromContext(c.Request.Context())
	if !ok || principal.UserID == 0 {
		return Actor{}, false
	}
	if principal.SuperAdmin {
		return Actor{Type: ActorSystem, OrgID: principal.OrgID, ID: "system"}, true
	}
	return Actor{Type: ActorUser, OrgID: principal.OrgID, ID: principal.UserID.String()}, true
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return fmt.Sprintf("user:%s", a.ID)
	case ActorSystem:
		return "system"
	default:
		return ""
	}
}
