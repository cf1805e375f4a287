package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
)

const PrincipalContextKey = "principal"

// AuthMiddleware resolves the caller. When a token parser is configured a
// verified bearer token is required and identity headers are ignored.
// Without one the identity headers injected by the API gateway are trusted,
// with the gateway cookies as a fallback.
func AuthMiddleware(tokens *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := resolve(c, tokens)
		if !ok {
			apperrors.Respond(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Set(PrincipalContextKey, p)
		c.Next()
	}
}

func resolve(c *gin.Context, tokens *auth.TokenParser) (auth.Principal, bool) {
	if tokens.Enabled() {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			return auth.Principal{}, false
		}
		p, err := tokens.PrincipalFromToken(strings.TrimPrefix(h, "Bearer "))
		return p, err == nil
	}
	if c.GetHeader("Authorization") != "" {
		return auth.Principal{}, false
	}

	userID := c.GetHeader("X-User-ID")
	role := c.GetHeader("X-User-Role")
	if userID == "" {
		if v, err := c.Cookie("user_id"); err == nil {
			userID = v
		}
	}
	if role == "" {
		if v, err := c.Cookie("user_role"); err == nil {
			role = v
		}
	}

	id, err := uuid.Parse(userID)
	if err != nil || id == uuid.Nil {
		return auth.Principal{}, false
	}
	return auth.Principal{ID: id, Role: auth.ParseRole(role)}, true
}

// GetPrincipal returns the principal set by AuthMiddleware.
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalContextKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// RequireRole aborts with 403 unless the caller has one of roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			apperrors.Respond(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		if err := auth.RequireRole(p, roles...); err != nil {
			apperrors.Respond(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
