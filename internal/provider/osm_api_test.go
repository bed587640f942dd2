package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/config"
)

func newTestOSM(t *testing.T, handler http.HandlerFunc) *OSMClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOSMClient(config.BuildingDataConfig{
		BaseURL:   srv.URL + "/api/0.6/",
		UserAgent: "citysnap-test",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func TestFetch_ExtractsTags(t *testing.T) {
	o := newTestOSM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/0.6/way/777.json", r.URL.Path)
		w.Write([]byte(`{"elements":[
			{"type":"node","id":777,"tags":{"name":"Wrong node"}},
			{"type":"way","id":778,"tags":{"name":"Neighbour"}},
			{"type":"way","id":777,"tags":{
				"name":"  Singer House ",
				"start_date":"",
				"construction":"c. 1902-1904",
				"building:date":"1910",
				"architect":"Pavel Suzor",
				"description":"   ",
				"note":"Headquarters of the Singer company."
			}}
		]}`))
	})

	p, err := o.Fetch(context.Background(), 777)
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Singer House", *p.Name)
	require.NotNil(t, p.YearBuilt)
	assert.Equal(t, 1902, *p.YearBuilt)
	assert.Equal(t, "Pavel Suzor", *p.Architect)
	assert.Equal(t, "Headquarters of the Singer company.", *p.History)
	assert.Nil(t, p.Location)
}

func TestFetch_NoMatchingWayIsNotFound(t *testing.T) {
	o := newTestOSM(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"elements":[{"type":"way","id":1,"tags":{"name":"Other"}}]}`))
	})

	_, err := o.Fetch(context.Background(), 777)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_GoneIsNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		o := newTestOSM(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := o.Fetch(context.Background(), 777)
		assert.ErrorIs(t, err, ErrNotFound, "status %d", status)
	}
}

func TestFetch_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, `boom`, http.StatusInternalServerError},
		{"invalid json", http.StatusOK, `not json`, http.StatusOK},
		{"elements not a list", http.StatusOK, `{"elements":{"type":"way"}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOSM(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := o.Fetch(context.Background(), 777)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindUpstream), "got %v", err)
			assert.Equal(t, tt.wantStatus, apperr.UpstreamStatus(err))
		})
	}
}

func TestProfileFromTags_Empty(t *testing.T) {
	p := profileFromTags(nil)
	assert.Nil(t, p.Name)
	assert.Nil(t, p.YearBuilt)
	assert.Nil(t, p.Architect)
	assert.Nil(t, p.History)
}

func TestProfileFromTags_YearPriority(t *testing.T) {
	p := profileFromTags(map[string]string{
		"start_date":    "unknown",
		"building:date": "1754",
		"construction":  "1850s",
	})
	require.NotNil(t, p.YearBuilt)
	assert.Equal(t, 1850, *p.YearBuilt)
}
