package middleware

import (
	"net/http"
	"strings"

	"delivops/internal/auth"
	"delivops/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	identityKey = "identity"
	tenantKey   = "tenantID"

	DevRoleHeader = "X-Dev-Role"
	DevSubHeader  = "X-Dev-Sub"
)

// Tenant requires the tenant header and stores the parsed tenant id.
func Tenant(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(header))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing tenant header"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid tenant header"))
			return
		}
		c.Set(tenantKey, id)
		c.Next()
	}
}

// Authenticate resolves the caller from a Bearer token, or from the dev
// headers when fake auth is enabled.
func Authenticate(verifier auth.Verifier, devFakeAuth bool, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if devFakeAuth {
			c.Set(identityKey, auth.DevIdentity(c.GetHeader(DevRoleHeader), c.GetHeader(DevSubHeader)))
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing Authorization"))
			return
		}
		scheme, token, _ := strings.Cut(authHeader, " ")
		if !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid scheme"))
			return
		}
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok || !identity.Roles.HasAny(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Insufficient role"))
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, if any.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}

// TenantID returns the tenant set by Tenant, uuid.Nil when absent.
func TenantID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(tenantKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
