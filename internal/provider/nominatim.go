package provider

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

const (
	searchFailed  = "OpenStreetMap Nominatim search failed: "
	reverseFailed = "OpenStreetMap Nominatim reverse lookup failed: "
)

// NominatimClient geocodes through the public Nominatim API.
// Nominatim's usage policy allows one request per second, so every call
// waits on a shared limiter first.
type NominatimClient struct {
	searchURL  string
	reverseURL string
	userAgent  string
	limit      int
	zoom       int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewNominatimClient creates a geocoder from the geocoding config section.
func NewNominatimClient(cfg config.GeocodingConfig, logger *zap.Logger) *NominatimClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &NominatimClient{
		searchURL:  cfg.BaseURL,
		reverseURL: cfg.ReverseURL,
		userAgent:  cfg.UserAgent,
		limit:      cfg.Limit,
		zoom:       cfg.ReverseZoom,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Geocode searches for an address and returns the first hit.
func (n *NominatimClient) Geocode(ctx context.Context, address string) (*model.GeocodeResult, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, apperr.Upstream(searchFailed+err.Error(), 0, err)
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(n.limit))

	body, _, err := getBody(ctx, n.client, n.logger, n.searchURL+"?"+q.Encode(), n.userAgent, searchFailed)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apperr.Upstream("OpenStreetMap Nominatim returned invalid JSON", 0, nil)
	}

	payload := gjson.ParseBytes(body)
	if !payload.IsArray() || len(payload.Array()) == 0 {
		n.logger.Debug("nominatim search returned no results", zap.String("address", address))
		return nil, ErrNotFound
	}
	first := payload.Array()[0]

	lat, lon, err := parseCoordinates(first)
	if err != nil {
		return nil, err
	}
	osmID, ok := numericInt(first.Get("osm_id"))
	if !ok {
		return nil, apperr.Upstream("OpenStreetMap Nominatim returned malformed osm_id", 0, nil)
	}

	return &model.GeocodeResult{
		Coordinates: model.Coordinates{Lat: lat, Lon: lon},
		BuildingID:  model.BuildingID{OSMID: osmID},
	}, nil
}

// ReverseGeocode looks up the building way at coords. Anything that is not
// a way (a node, a relation, an empty area) is reported as ErrNotFound.
func (n *NominatimClient) ReverseGeocode(ctx context.Context, coords model.Coordinates) (*model.GeocodeResult, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, apperr.Upstream(reverseFailed+err.Error(), 0, err)
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("zoom", strconv.Itoa(n.zoom))

	body, _, err := getBody(ctx, n.client, n.logger, n.reverseURL+"?"+q.Encode(), n.userAgent, reverseFailed)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apperr.Upstream("OpenStreetMap Nominatim returned invalid JSON", 0, nil)
	}

	payload := gjson.ParseBytes(body)
	if !payload.IsObject() {
		return nil, ErrNotFound
	}

	osmType := payload.Get("osm_type").String()
	idField := payload.Get("osm_id")
	if !idField.Exists() || (osmType != "way" && osmType != "W") {
		n.logger.Debug("reverse geocoding did not return a building",
			zap.Stringer("coordinates", coords),
			zap.String("osm_type", osmType),
		)
		return nil, ErrNotFound
	}
	osmID, ok := numericInt(idField)
	if !ok {
		return nil, apperr.Upstream("OpenStreetMap Nominatim returned malformed osm_id", 0, nil)
	}

	// Nominatim may omit the centroid; each missing component falls back to
	// the queried point.
	lat, err := coordinateOr(payload.Get("lat"), coords.Lat)
	if err != nil {
		return nil, err
	}
	lon, err := coordinateOr(payload.Get("lon"), coords.Lon)
	if err != nil {
		return nil, err
	}

	return &model.GeocodeResult{
		Coordinates: model.Coordinates{Lat: lat, Lon: lon},
		BuildingID:  model.BuildingID{OSMID: osmID},
	}, nil
}

func parseCoordinates(r gjson.Result) (float64, float64, error) {
	lat, okLat := numericFloat(r.Get("lat"))
	lon, okLon := numericFloat(r.Get("lon"))
	if !okLat || !okLon {
		return 0, 0, apperr.Upstream("OpenStreetMap Nominatim returned malformed coordinates", 0, nil)
	}
	return lat, lon, nil
}

// coordinateOr parses r, or returns fallback when the field is absent.
func coordinateOr(r gjson.Result, fallback float64) (float64, error) {
	if !r.Exists() {
		return fallback, nil
	}
	v, ok := numericFloat(r)
	if !ok {
		return 0, apperr.Upstream("OpenStreetMap Nominatim returned malformed coordinates", 0, nil)
	}
	return v, nil
}

// numericFloat accepts both JSON numbers and numeric strings; Nominatim
// encodes lat/lon as strings.
func numericFloat(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), true
	case gjson.String:
		f, err := strconv.ParseFloat(r.Str, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func numericInt(r gjson.Result) (int64, bool) {
	switch r.Type {
	case gjson.Number:
		if r.Num < 0 || r.Num != float64(int64(r.Num)) {
			return 0, false
		}
		return r.Int(), true
	case gjson.String:
		v, err := strconv.ParseInt(r.Str, 10, 64)
		return v, err == nil && v >= 0
	default:
		return 0, false
	}
}

var _ Geocoder = (*NominatimClient)(nil)
