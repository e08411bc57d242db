package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Specto0/specto/pkg/log"
	"github.com/Specto0/specto/pkg/response"
)

const (
	identityKey   = "identity"
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// Middleware guards HTTP routes with bearer-token authentication.
type Middleware struct {
	authenticator Authenticator
}

// NewMiddleware creates an auth middleware.
func NewMiddleware(authenticator Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// RequireAuth returns a Gin middleware that resolves the bearer token
// and stores the identity in the request context.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderKey)
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		ident, err := m.authenticator.Resolve(c.Request.Context(), strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(identityKey, ident)
		c.Set(log.FieldUserID, ident.UserID)
		c.Set(log.FieldUsername, ident.Username)

		c.Next()
	}
}

// GetIdentity extracts the authenticated identity from the Gin context.
func GetIdentity(c *gin.Context) *Identity {
	if v, exists := c.Get(identityKey); exists {
		if ident, ok := v.(*Identity); ok {
			return ident
		}
	}
	return nil
}
