package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sharedvalidator "lead_routing_backend/internal/shared/validator"
	"lead_routing_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requests rejected before reaching the service never touch it, so a nil
// service is enough here.
func newEngine(t *testing.T, provider *uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	val, err := sharedvalidator.NewWithDomainRules()
	require.NoError(t, err)
	h := New(nil, val)

	engine := gin.New()
	if provider != nil {
		engine.Use(func(c *gin.Context) {
			c.Set(httpkit.ContextUserIDKey, *provider)
			c.Set(httpkit.ContextRolesKey, []string{httpkit.RoleProvider})
		})
	}
	h.RegisterAdminLeadRoutes(engine.Group("/admin/leads"))
	h.RegisterAdminAssignmentRoutes(engine.Group("/admin/assignments"))
	h.RegisterProviderRoutes(engine.Group("/provider/assignments"))
	return engine
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestRejectsMalformedIDs(t *testing.T) {
	engine := newEngine(t, nil)

	for _, path := range []string{
		"/admin/leads/nope/route",
		"/admin/leads/nope/escalate",
		"/admin/leads/nope/expire",
		"/admin/assignments/nope/respond",
	} {
		rec := do(engine, http.MethodPost, path, `{"action":"accepted"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid id", path)
	}
}

func TestRespondValidatesAction(t *testing.T) {
	provider := uuid.New()
	engine := newEngine(t, &provider)
	path := "/provider/assignments/" + uuid.NewString() + "/respond"

	rec := do(engine, http.MethodPost, path, `{"action":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")

	rec = do(engine, http.MethodPost, path, `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request")
}

func TestProviderRoutesNeedIdentity(t *testing.T) {
	engine := newEngine(t, nil)

	rec := do(engine, http.MethodPost, "/provider/assignments/"+uuid.NewString()+"/respond", `{"action":"accepted"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(engine, http.MethodGet, "/provider/assignments", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListMineRejectsUnknownStatus(t *testing.T) {
	provider := uuid.New()
	rec := do(newEngine(t, &provider), http.MethodGet, "/provider/assignments?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmBookingNeedsProvider(t *testing.T) {
	engine := newEngine(t, nil)
	path := "/admin/leads/" + uuid.NewString() + "/confirm-booking"

	rec := do(engine, http.MethodPost, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(engine, http.MethodPost, path, `{"providerId":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
