package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBuilder struct {
	resp *model.BuildingInfoResponse
	err  error
	got  model.BuildingInfoRequest
}

func (s *stubBuilder) Build(_ context.Context, req model.BuildingInfoRequest) (*model.BuildingInfoResponse, error) {
	s.got = req
	return s.resp, s.err
}

func postInfo(t *testing.T, b BuildingInfoBuilder, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	router := gin.New()
	router.POST("/api/v1/building/info", NewBuildingHandler(b, zap.NewNop()).Info)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/building/info", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w, out
}

func TestInfo_Success(t *testing.T) {
	loc := model.Coordinates{Lat: 59.935, Lon: 30.325}
	stub := &stubBuilder{resp: &model.BuildingInfoResponse{
		Building: model.BuildingProfile{Name: model.StringPtr("Test Building"), Location: &loc},
		Source:   []string{model.SourceNominatimReverse, model.SourceOSMAPI},
	}}

	w, out := postInfo(t, stub, `{"coordinates":{"lat":59.935,"lon":30.325}}`)
	require.Equal(t, http.StatusOK, w.Code)

	building := out["building"].(map[string]any)
	assert.Equal(t, "Test Building", building["name"])
	assert.Nil(t, building["year_built"])
	assert.Contains(t, building, "architect")
	assert.Equal(t, 59.935, building["location"].(map[string]any)["lat"])
	assert.Equal(t, []any{"OpenStreetMap Nominatim (reverse)", "OpenStreetMap API"}, out["source"])

	require.NotNil(t, stub.got.Coordinates)
	assert.Equal(t, loc, *stub.got.Coordinates)
}

func TestInfo_MissingLocation(t *testing.T) {
	stub := &stubBuilder{}
	w, out := postInfo(t, stub, `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", out["error"])
	assert.Contains(t, out["detail"], "requires either an address or coordinates")
}

func TestInfo_BadJSON(t *testing.T) {
	w, out := postInfo(t, &stubBuilder{}, `{"address":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", out["error"])
}

func TestInfo_CoordinatesOutOfRange(t *testing.T) {
	w, out := postInfo(t, &stubBuilder{}, `{"coordinates":{"lat":123,"lon":0}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["detail"], "lat must satisfy lte=90")
}

func TestInfo_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		kind     string
		upstream any
	}{
		{"bad photo", apperr.Validation("OpenStreetMap gateway cannot decode the provided base64 photo"), 400, "validation_error", nil},
		{"not found", apperr.NotFound("OpenStreetMap Nominatim could not resolve the provided location"), 404, "not_found", nil},
		{"upstream", apperr.Upstream("OpenStreetMap API failed to provide building data: HTTP 503", 503, nil), 502, "upstream_error", float64(503)},
		{"storage", apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", errors.New("disk")), 500, "local_resource_error", nil},
		{"untyped", errors.New("boom"), 500, "internal_error", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := postInfo(t, &stubBuilder{err: tt.err}, `{"address":"Nevsky 28"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.kind, out["error"])
			assert.Equal(t, tt.upstream, out["upstream_status"])
			assert.NotEmpty(t, out["detail"])
		})
	}
}

func TestInfo_UpstreamDetailMentionsStatus(t *testing.T) {
	_, out := postInfo(t, &stubBuilder{err: apperr.Upstream("OpenStreetMap Nominatim search failed: HTTP 429", 429, nil)}, `{"address":"x"}`)
	assert.Contains(t, out["detail"], "upstream status 429")
}

func TestHealthz(t *testing.T) {
	router := gin.New()
	router.GET("/api/v1/health", NewHealthHandler().Healthz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
