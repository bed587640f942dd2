package model

import "time"

// Lookup is one successful building-info request as recorded in SQLite.
// Sources is stored as a "|"-joined string.
type Lookup struct {
	ID        int64     `db:"id" json:"id"`
	OSMID     int64     `db:"osm_id" json:"osm_id"`
	Address   string    `db:"address" json:"address"`
	Lat       float64   `db:"lat" json:"lat"`
	Lon       float64   `db:"lon" json:"lon"`
	Name      *string   `db:"name" json:"name,omitempty"`
	Sources   string    `db:"sources" json:"sources"`
	ImagePath *string   `db:"image_path" json:"image_path,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LLMCall tracks each call to an LLM provider for cost monitoring.
type LLMCall struct {
	ID          int64     `db:"id" json:"id"`
	AddressHint string    `db:"address_hint" json:"address_hint"`
	Provider    string    `db:"provider" json:"provider"`
	Model       string    `db:"model" json:"model"`
	Success     bool      `db:"success" json:"success"`
	DurationMs  *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
