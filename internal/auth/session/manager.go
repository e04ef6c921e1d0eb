package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/pressroom/internal/config"
	"github.com/smallbiznis/pressroom/internal/orgcontext"
)

const DefaultCookieName = "_sid"

var (
	ErrMissingToken  = errors.New("missing_session")
	ErrInvalidToken  = errors.New("invalid_session")
	ErrMissingSecret = errors.New("missing_session_secret")
)

// Claims is the payload of a signed session token.
type Claims struct {
	UserID     string `json:"user_id"`
	OrgID      string `json:"org_id"`
	Role       string `json:"role"`
	SuperAdmin bool   `json:"super_admin"`
	jwt.RegisteredClaims
}

// Manager verifies session tokens carried in a cookie or a bearer header.
type Manager struct {
	cookieName string
	secure     bool
	secret     []byte
	issuer     string
}

func NewManager(cfg config.Config) *Manager {
	name := strings.TrimSpace(cfg.AuthCookieName)
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{
		cookieName: name,
		secure:     cfg.AuthCookieSecure,
		secret:     []byte(cfg.AuthJWTSecret),
		issuer:     cfg.AppName,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken returns the raw token from the session cookie, falling back to
// an Authorization: Bearer header.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if token, err := c.Cookie(m.cookieName); err == nil && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(token), true
	}
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		token := strings.TrimSpace(header[7:])
		return token, token != ""
	}
	return "", false
}

// Issue signs a token for p valid until expiresAt.
func (m *Manager) Issue(p orgcontext.Principal, issuedAt, expiresAt time.Time) (string, error) {
	if len(m.secret) == 0 {
		return "", ErrMissingSecret
	}
	claims := &Claims{
		UserID:     p.UserID.String(),
		OrgID:      p.OrgID.String(),
		Role:       p.Role,
		SuperAdmin: p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    m.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks the signature and expiry of raw and returns the caller it names.
func (m *Manager) Verify(raw string) (orgcontext.Principal, error) {
	if len(m.secret) == 0 {
		return orgcontext.Principal{}, ErrMissingSecret
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return orgcontext.Principal{}, ErrInvalidToken
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(claims.UserID))
	if err != nil || userID == 0 {
		return orgcontext.Principal{}, ErrInvalidToken
	}
	var orgID snowflake.ID
	if raw := strings.TrimSpace(claims.OrgID); raw != "" {
		orgID, err = snowflake.ParseString(raw)
		if err != nil {
			return orgcontext.Principal{}, ErrInvalidToken
		}
	}

	return orgcontext.Principal{
		UserID:     userID,
		OrgID:      orgID,
		Role:       strings.ToLower(strings.TrimSpace(claims.Role)),
		SuperAdmin: claims.SuperAdmin,
	}, nil
}

// Authenticate reads and verifies the request's session token.
func (m *Manager) Authenticate(c *gin.Context) (orgcontext.Principal, error) {
	raw, ok := m.ReadToken(c)
	if !ok {
		return orgcontext.Principal{}, ErrMissingToken
	}
	return m.Verify(raw)
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
