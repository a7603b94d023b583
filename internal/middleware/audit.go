package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestRecorder stores one audit row per tenant request.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, tenantID uuid.UUID, sub, path, method string) error
}

// AuditTrail records every request that carries a valid tenant header once
// the handler has run. Failures are logged and never affect the response.
func AuditTrail(recorder RequestRecorder, tenantHeader string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		tenantID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(tenantHeader)))
		if err != nil {
			return
		}
		sub := ""
		if identity, ok := CurrentIdentity(c); ok {
			sub = identity.Sub
		}

		path := c.Request.URL.Path
		method := strings.ToLower(c.Request.Method)
		if err := recorder.RecordRequest(c.Request.Context(), tenantID, sub, path, method); err != nil {
			log.Warn("failed to record audit entry", zap.String("path", path), zap.Error(err))
			return
		}
		actor := sub
		if actor == "" {
			actor = "anonymous"
		}
		log.Info("audit",
			zap.String("tenant_id", tenantID.String()),
			zap.String("actor", actor),
			zap.String("entity", path),
			zap.String("action", method))
	}
}
