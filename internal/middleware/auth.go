package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/clients/keycloak"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

// Context keys set for downstream handlers.
const (
	CtxActorID   = "actor_id"
	CtxActorName = "actor_name"
	CtxRole      = "role"
)

// AuthMiddleware gates requests on a bearer token from the identity
// provider. The role claim is extracted for display gating only; the data
// API re-checks authorization on every call it receives from us.
type AuthMiddleware struct {
	log      *logger.Logger
	clientID string
}

func NewAuthMiddleware(log *logger.Logger, clientID string) *AuthMiddleware {
	return &AuthMiddleware{
		log:      log.With("middleware", "AuthMiddleware"),
		clientID: clientID,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		subject, username := keycloak.Identity(token)
		if subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token carries no subject"})
			return
		}
		roles := keycloak.RolesFromToken(token, am.clientID)
		role := ""
		if len(roles) > 0 {
			role = roles[0]
		}
		c.Set(CtxActorID, subject)
		c.Set(CtxActorName, username)
		c.Set(CtxRole, role)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if q := c.Query("token"); q != "" {
		return q
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
