// Package service contains the building-info pipeline. BuildingService
// sequences the downstream lookups:
//
//	1. decode the optional photo (fails before any network call)
//	2. geocode: address search first, reverse lookup of coordinates second
//	3. fetch the building's OSM tags
//	4. store the photo
//	5. ask an LLM for whatever is still missing
//
// Each stage only fills fields that are still empty, and the response lists
// the sources that actually contributed.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/citysnap-gateway/internal/apperr"
	"github.com/fleveque/citysnap-gateway/internal/model"
	"github.com/fleveque/citysnap-gateway/internal/provider"
)

const (
	msgMissingLocation = "OpenStreetMap gateway requires either an address or coordinates to query OpenStreetMap APIs"
	msgUnresolved      = "OpenStreetMap Nominatim could not resolve the provided location"
	msgBadGeocode      = "OpenStreetMap Nominatim returned an unexpected payload"
)

// Collaborators. provider.ErrNotFound is the "nothing there" outcome for
// Geocoder and BuildingFetcher; any other error is propagated.
type (
	Geocoder interface {
		Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)
		ReverseGeocode(ctx context.Context, coords model.Coordinates) (*model.GeocodeResult, error)
	}

	BuildingFetcher interface {
		Fetch(ctx context.Context, osmID int64) (*model.BuildingProfile, error)
	}

	ImageStore interface {
		Store(ctx context.Context, data []byte, ext string, osmID *int64, coords *model.Coordinates) (string, error)
	}

	Enricher interface {
		Enrich(ctx context.Context, profile model.BuildingProfile, address string, hasPhoto bool) (model.BuildingProfile, bool)
	}

	LookupRecorder interface {
		Create(ctx context.Context, lookup *model.Lookup) error
	}
)

// BuildingService is the building-info orchestrator.
type BuildingService struct {
	geocoder Geocoder
	fetcher  BuildingFetcher
	images   ImageStore
	enricher Enricher
	history  LookupRecorder // nil disables history
	logger   *zap.Logger
}

// NewBuildingService wires the orchestrator. history may be nil.
func NewBuildingService(
	geocoder Geocoder,
	fetcher BuildingFetcher,
	images ImageStore,
	enricher Enricher,
	history LookupRecorder,
	logger *zap.Logger,
) *BuildingService {
	return &BuildingService{
		geocoder: geocoder,
		fetcher:  fetcher,
		images:   images,
		enricher: enricher,
		history:  history,
		logger:   logger,
	}
}

// Build resolves the request into a building profile plus provenance.
// Errors are *apperr.Error values; LLM failures never surface.
func (s *BuildingService) Build(ctx context.Context, req model.BuildingInfoRequest) (*model.BuildingInfoResponse, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" && req.Coordinates == nil {
		return nil, apperr.Validation(msgMissingLocation)
	}
	if req.Coordinates != nil && !req.Coordinates.Valid() {
		return nil, apperr.Validation("coordinates must satisfy -90 <= lat <= 90 and -180 <= lon <= 180")
	}

	s.logger.Info("building info requested",
		zap.String("address", address),
		zap.Any("coordinates", req.Coordinates),
		zap.Bool("has_image", req.ImageBase64 != ""),
	)

	var (
		image    []byte
		imageExt string
	)
	if req.ImageBase64 != "" {
		var err error
		if image, imageExt, err = DecodeImage(req.ImageBase64); err != nil {
			return nil, err
		}
	}

	geo, source, err := s.resolve(ctx, address, req.Coordinates)
	if err != nil {
		return nil, err
	}
	if geo == nil || !geo.Coordinates.Valid() {
		return nil, apperr.Upstream(msgBadGeocode, 0, nil)
	}
	sources := []string{source}
	osmID := geo.BuildingID.OSMID
	coords := geo.Coordinates

	var profile model.BuildingProfile
	fetched, err := s.fetcher.Fetch(ctx, osmID)
	switch {
	case errors.Is(err, provider.ErrNotFound):
		s.logger.Info("building data not found", zap.Int64("osm_id", osmID))
		profile = model.BuildingProfile{}.WithLocation(coords)
	case err != nil:
		return nil, asUpstream(err, "OpenStreetMap API failed to provide building data: ")
	case fetched == nil:
		profile = model.BuildingProfile{}.WithLocation(coords)
	default:
		sources = append(sources, model.SourceOSMAPI)
		profile = fetched.WithLocation(coords)
	}

	if image != nil {
		path, err := s.images.Store(ctx, image, imageExt, &osmID, &coords)
		if err != nil {
			return nil, asLocalResource(err)
		}
		s.logger.Info("stored uploaded photo", zap.String("path", path))
		profile = profile.WithImagePath(path)
	}

	if profile.NeedsEnrichment() {
		enriched, changed := s.enricher.Enrich(ctx, profile, address, image != nil)
		if changed {
			profile = enriched
			sources = append(sources, model.SourceLLM)
		}
	}

	if len(sources) == 0 {
		sources = append(sources, model.SourceGatewayStub)
	}

	s.record(ctx, address, osmID, profile, sources)

	s.logger.Info("building info resolved",
		zap.Int64("osm_id", osmID),
		zap.Strings("sources", sources),
	)
	return &model.BuildingInfoResponse{Building: profile, Source: sources}, nil
}

// resolve runs the address search, then the reverse lookup, and returns the
// first hit with its provenance label.
func (s *BuildingService) resolve(ctx context.Context, address string, coords *model.Coordinates) (*model.GeocodeResult, string, error) {
	if address != "" {
		res, err := s.geocoder.Geocode(ctx, address)
		switch {
		case err == nil && res != nil:
			return res, model.SourceNominatimSearch, nil
		case err != nil && !errors.Is(err, provider.ErrNotFound):
			return nil, "", asUpstream(err, "OpenStreetMap Nominatim search failed: ")
		}
		s.logger.Info("address search found nothing", zap.String("address", address))
	}

	if coords != nil {
		res, err := s.geocoder.ReverseGeocode(ctx, *coords)
		switch {
		case err == nil && res != nil:
			return res, model.SourceNominatimReverse, nil
		case err != nil && !errors.Is(err, provider.ErrNotFound):
			return nil, "", asUpstream(err, "OpenStreetMap Nominatim reverse lookup failed: ")
		}
		s.logger.Info("reverse lookup found no building", zap.Stringer("coordinates", coords))
	}

	return nil, "", apperr.NotFound(msgUnresolved)
}

// record stores the lookup; history is best-effort and never fails Build.
func (s *BuildingService) record(ctx context.Context, address string, osmID int64, profile model.BuildingProfile, sources []string) {
	if s.history == nil {
		return
	}
	l := &model.Lookup{
		OSMID:     osmID,
		Address:   address,
		Name:      profile.Name,
		Sources:   strings.Join(sources, "|"),
		ImagePath: profile.ImagePath,
	}
	if profile.Location != nil {
		l.Lat, l.Lon = profile.Location.Lat, profile.Location.Lon
	}
	if err := s.history.Create(context.WithoutCancel(ctx), l); err != nil {
		s.logger.Error("recording lookup", zap.Error(err))
	}
}

// asUpstream reports err as a failure of the stage named by prefix. The
// upstream status of a typed collaborator error is kept.
func asUpstream(err error, prefix string) error {
	e, ok := apperr.As(err)
	if !ok {
		return apperr.Upstream(prefix+err.Error(), 0, err)
	}
	if strings.HasPrefix(e.Message, prefix) {
		return err
	}
	return apperr.Upstream(prefix+e.Message, e.UpstreamStatus, err)
}

func asLocalResource(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.LocalResource("OpenStreetMap gateway failed to store the uploaded photo", err)
}
