// README: Bearer-token auth for rider endpoints, backed by infra.TokenVerifier.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"flytaxi/internal/infra"
	"flytaxi/internal/types"
)

const (
	ctxCallerID     = "caller_id"
	ctxCallerClaims = "caller_claims"
)

// Auth verifies "Authorization: Bearer <token>". A nil verifier disables
// authentication, which is how local and bot-only deployments run.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		id, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil || id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxCallerID, id.RiderID)
		c.Set(ctxCallerClaims, id.Claims)
		c.Next()
	}
}

// CallerID is the verified rider id, empty when auth is disabled.
func CallerID(c *gin.Context) types.ID {
	v, _ := c.Get(ctxCallerID)
	id, _ := v.(types.ID)
	return id
}

func CallerClaims(c *gin.Context) map[string]interface{} {
	v, _ := c.Get(ctxCallerClaims)
	claims, _ := v.(map[string]interface{})
	return claims
}

// RequireSelf rejects callers acting on another rider's path id. It is a
// no-op while auth is disabled.
func RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := c.Get(ctxCallerID)
		if !ok {
			c.Next()
			return
		}
		if caller.(types.ID) != types.ID(c.Param(param)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// DenyPrefix rejects path ids in a namespace owned by another transport, so
// the gateway cannot act on behalf of those riders.
func DenyPrefix(param string, prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := types.ID(c.Param(param))
		for _, p := range prefixes {
			if id.HasPrefix(p) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "rider belongs to another channel"})
				return
			}
		}
		c.Next()
	}
}
