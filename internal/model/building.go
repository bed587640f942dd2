// Package model defines the value types shared by the gateway: request and
// response payloads, geocoding results and the accumulating building profile.
package model

import (
	"fmt"
	"math"
)

// Provenance labels recorded in BuildingInfoResponse.Source, in call order.
const (
	SourceNominatimSearch  = "OpenStreetMap Nominatim (search)"
	SourceNominatimReverse = "OpenStreetMap Nominatim (reverse)"
	SourceOSMAPI           = "OpenStreetMap API"
	SourceLLM              = "LLM Generated"
	SourceGatewayStub      = "Gateway Stub"
)

// Coordinates is an immutable WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lon float64 `json:"lon" binding:"gte=-180,lte=180"`
}

// Valid reports whether both components are finite and inside their ranges.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("lat=%v, lon=%v", c.Lat, c.Lon)
}

// BuildingID identifies an OpenStreetMap way.
type BuildingID struct {
	OSMID int64 `json:"osm_id"`
}

// GeocodeResult is produced once per request by the geocoding collaborator.
type GeocodeResult struct {
	Coordinates Coordinates `json:"coordinates"`
	BuildingID  BuildingID  `json:"building_id"`
}

// BuildingInfoRequest is the body of POST /api/v1/building/info.
type BuildingInfoRequest struct {
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	ImageBase64 string       `json:"image_base64,omitempty"`
}

// HasLocation reports whether the request carries an address or coordinates.
func (r BuildingInfoRequest) HasLocation() bool {
	return r.Address != "" || r.Coordinates != nil
}

// BuildingInfoResponse is the merged profile plus the provenance of its fields.
type BuildingInfoResponse struct {
	Building BuildingProfile `json:"building"`
	Source   []string        `json:"source"`
}

// LLMQueryResult is the normalised output of a single LLM call.
type LLMQueryResult struct {
	YearBuilt *int     `json:"year_built"`
	Architect *string  `json:"architect"`
	History   *string  `json:"history"`
	Sources   []string `json:"sources"`
}

// Empty reports whether the result carries none of the mergeable fields.
func (r *LLMQueryResult) Empty() bool {
	return r == nil || (r.YearBuilt == nil && r.Architect == nil && r.History == nil)
}
