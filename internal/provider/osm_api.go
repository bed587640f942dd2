package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/config"
	"github.com/fleveque/citysnap-gateway/internal/model"
)

const osmAPIFailed = "OpenStreetMap API failed to provide building data: "

var yearPattern = regexp.MustCompile(`\d{1,4}`)

// Tag priority lists for multi-source fields.
var (
	yearTags    = []string{"start_date", "construction", "building:date"}
	historyTags = []string{"description", "note", "wikipedia:synopsis"}
)

// OSMClient reads way tags from the OpenStreetMap API v0.6.
type OSMClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// osmElement is one entry of the "elements" array in an OSM API JSON response.
type osmElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Tags map[string]string `json:"tags"`
}

type osmResponse struct {
	Elements []osmElement `json:"elements"`
}

// NewOSMClient creates a building-data fetcher from the building_data config section.
func NewOSMClient(cfg config.BuildingDataConfig, logger *zap.Logger) *OSMClient {
	return &OSMClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// Fetch loads way osmID and extracts the profile fields from its tags.
// A deleted or unknown way, or a response that does not contain it,
// yields ErrNotFound.
func (o *OSMClient) Fetch(ctx context.Context, osmID int64) (*model.BuildingProfile, error) {
	url := fmt.Sprintf("%s/way/%d.json", o.baseURL, osmID)

	body, status, err := getBody(ctx, o.client, o.logger, url, o.userAgent, osmAPIFailed)
	if err != nil {
		if status == http.StatusNotFound || status == http.StatusGone {
			o.logger.Debug("way not found in OSM API", zap.Int64("osm_id", osmID), zap.Int("status", status))
			return nil, ErrNotFound
		}
		return nil, err
	}

	var payload osmResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, apperr.Upstream("OpenStreetMap API returned an unexpected payload", status, err)
		}
		return nil, apperr.Upstream("OpenStreetMap API returned invalid JSON", status, err)
	}

	for _, el := range payload.Elements {
		if el.Type == "way" && el.ID == osmID {
			profile := profileFromTags(el.Tags)
			return &profile, nil
		}
	}

	o.logger.Debug("way missing from OSM API response", zap.Int64("osm_id", osmID))
	return nil, ErrNotFound
}

// profileFromTags applies the tag extraction policy. Location is left unset;
// way elements carry no coordinates of their own.
func profileFromTags(tags map[string]string) model.BuildingProfile {
	var p model.BuildingProfile
	p.Name = model.StringPtr(strings.TrimSpace(tags["name"]))
	p.Architect = model.StringPtr(strings.TrimSpace(tags["architect"]))

	for _, key := range yearTags {
		if m := yearPattern.FindString(tags[key]); m != "" {
			year, err := strconv.Atoi(m)
			if err == nil {
				p.YearBuilt = model.IntPtr(year)
				break
			}
		}
	}

	for _, key := range historyTags {
		if v := strings.TrimSpace(tags[key]); v != "" {
			p.History = model.StringPtr(v)
			break
		}
	}
	return p
}

var _ BuildingDataFetcher = (*OSMClient)(nil)
