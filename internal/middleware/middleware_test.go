package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"delivops/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubVerifier struct {
	identity auth.Identity
	err      error
}

func (s stubVerifier) Verify(context.Context, string) (auth.Identity, error) {
	return s.identity, s.err
}

type recordedRequest struct {
	tenantID     uuid.UUID
	sub          string
	path, method string
}

type stubRecorder struct {
	calls []recordedRequest
	err   error
}

func (s *stubRecorder) RecordRequest(_ context.Context, tenantID uuid.UUID, sub, path, method string) error {
	s.calls = append(s.calls, recordedRequest{tenantID, sub, path, method})
	return s.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"tenant": TenantID(c).String(), "sub": identity.Sub})
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTenant(t *testing.T) {
	r := newRouter(Tenant("X-Tenant-Id"))
	tenant := uuid.NewString()

	assert.Equal(t, http.StatusBadRequest, do(r, nil).Code)
	assert.Contains(t, do(r, nil).Body.String(), "Missing tenant header")
	assert.Equal(t, http.StatusBadRequest, do(r, map[string]string{"X-Tenant-Id": "acme"}).Code)

	w := do(r, map[string]string{"X-Tenant-Id": tenant})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), tenant)
}

func TestAuthenticateBearer(t *testing.T) {
	ok := stubVerifier{identity: auth.Identity{Sub: "auth0|1", Roles: auth.NewRoleSet("ADMIN")}}
	r := newRouter(Authenticate(ok, false, zap.NewNop()), RequireRoles("ADMIN"))

	assert.Equal(t, http.StatusUnauthorized, do(r, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, map[string]string{"Authorization": "Basic abc"}).Code)

	w := do(r, map[string]string{"Authorization": "Bearer token"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth0|1")

	bad := newRouter(Authenticate(stubVerifier{err: errors.New("expired")}, false, zap.NewNop()))
	assert.Equal(t, http.StatusUnauthorized, do(bad, map[string]string{"Authorization": "bearer token"}).Code)
}

func TestAuthenticateDevHeaders(t *testing.T) {
	r := newRouter(Authenticate(nil, true, zap.NewNop()), RequireRoles("CHAUFFEUR"))

	w := do(r, map[string]string{DevRoleHeader: "Chauffeur Codex", DevSubHeader: "driver|9"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "driver|9")

	w = do(r, map[string]string{DevRoleHeader: "ADMIN"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient role")
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	r := newRouter(RequireRoles("ADMIN"))
	assert.Equal(t, http.StatusForbidden, do(r, nil).Code)
}

func TestAuditTrail(t *testing.T) {
	rec := &stubRecorder{}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuditTrail(rec, "X-Tenant-Id", zap.NewNop()))
	r.GET("/x", Authenticate(nil, true, zap.NewNop()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(r, nil)
	assert.Empty(t, rec.calls)

	tenant := uuid.New()
	do(r, map[string]string{"X-Tenant-Id": tenant.String(), DevSubHeader: "admin|1"})
	if assert.Len(t, rec.calls, 1) {
		assert.Equal(t, recordedRequest{tenant, "admin|1", "/x", "get"}, rec.calls[0])
	}

	rec.err = errors.New("db down")
	w := do(r, map[string]string{"X-Tenant-Id": tenant.String()})
	assert.Equal(t, http.StatusNoContent, w.Code)
}
