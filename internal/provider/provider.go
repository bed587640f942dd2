// Package provider talks to the OpenStreetMap services the gateway depends on:
// Nominatim for geocoding and the OSM API for building tags.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

// ErrNotFound is returned when a lookup resolves nothing. Callers decide
// whether that is fatal (geocoding) or just an empty result (building data).
var ErrNotFound = errors.New("not found")

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 5 << 20

// Geocoder resolves addresses and coordinates to an OSM way.
type Geocoder interface {
	// Geocode performs a forward search for a free-text address.
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)

	// ReverseGeocode finds the building way at the given point.
	ReverseGeocode(ctx context.Context, coords model.Coordinates) (*model.GeocodeResult, error)
}

// BuildingDataFetcher loads the tags of a building way.
type BuildingDataFetcher interface {
	Fetch(ctx context.Context, osmID int64) (*model.BuildingProfile, error)
}

// getBody performs a GET and returns the body of a 2xx response. Transport
// failures and other statuses become upstream errors prefixed with failMsg.
// The returned status is set whenever a response arrived.
func getBody(ctx context.Context, client *http.Client, logger *zap.Logger, url, userAgent, failMsg string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, apperr.Upstream(failMsg+err.Error(), 0, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("upstream request failed", zap.String("url", url), zap.Error(err))
		return nil, 0, apperr.Upstream(failMsg+err.Error(), 0, err)
	}
	defer resp.Body.Close()

	logger.Debug("upstream request",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, apperr.Upstream(failMsg+"reading body: "+err.Error(), resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, apperr.Upstream(
			fmt.Sprintf("%sHTTP %d", failMsg, resp.StatusCode), resp.StatusCode, nil)
	}
	return body, resp.StatusCode, nil
}
