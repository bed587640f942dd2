package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/model"
)

type stubLookups struct {
	lookups  []model.Lookup
	gotLimit int
}

func (s *stubLookups) Create(context.Context, *model.Lookup) error { return nil }
func (s *stubLookups) Count(context.Context) (int64, error)        { return int64(len(s.lookups)), nil }
func (s *stubLookups) ListRecent(_ context.Context, limit int) ([]model.Lookup, error) {
	s.gotLimit = limit
	return s.lookups, nil
}

type stubCalls struct{ total, ok int64 }

func (s *stubCalls) Create(context.Context, *model.LLMCall) error   { return nil }
func (s *stubCalls) Count(context.Context) (int64, error)           { return s.total, nil }
func (s *stubCalls) CountSuccessful(context.Context) (int64, error) { return s.ok, nil }

func adminRouter(lookups *stubLookups, calls *stubCalls) *gin.Engine {
	h := NewAdminHandler(lookups, calls, true, zap.NewNop())
	router := gin.New()
	router.GET("/stats", h.Stats)
	router.GET("/lookups", h.Lookups)
	return router
}

func TestStats(t *testing.T) {
	router := adminRouter(&stubLookups{lookups: make([]model.Lookup, 3)}, &stubCalls{total: 5, ok: 4})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, float64(3), out["lookups"])
	assert.Equal(t, float64(5), out["llm_calls"])
	assert.Equal(t, float64(1), out["llm_calls_error"])
	assert.Equal(t, true, out["llm_enabled"])
}

func TestLookups_Limit(t *testing.T) {
	lookups := &stubLookups{lookups: []model.Lookup{{ID: 1, OSMID: 777, Sources: "OpenStreetMap API"}}}
	router := adminRouter(lookups, &stubCalls{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lookups", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultLookupLimit, lookups.gotLimit)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lookups?limit=5000", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxLookupLimit, lookups.gotLimit)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/lookups?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
