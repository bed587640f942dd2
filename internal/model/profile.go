package model

// BuildingProfile is the accumulating result of one request. Every field is
// optional; nil means "unknown". Profiles are treated as values: the With*
// methods return an updated copy and never touch the receiver, and a field
// that already holds a value is never replaced.
type BuildingProfile struct {
	Name      *string      `json:"name"`
	YearBuilt *int         `json:"year_built"`
	Architect *string      `json:"architect"`
	Location  *Coordinates `json:"location"`
	History   *string      `json:"history"`
	ImagePath *string      `json:"image_path"`
}

// WithLocation backfills the location if it is still unset.
func (p BuildingProfile) WithLocation(c Coordinates) BuildingProfile {
	if p.Location != nil {
		return p
	}
	p.Location = &c
	return p
}

// WithImagePath attaches the stored photo reference if none is set yet.
func (p BuildingProfile) WithImagePath(path string) BuildingProfile {
	if p.ImagePath != nil || path == "" {
		return p
	}
	p.ImagePath = &path
	return p
}

// NeedsEnrichment reports whether any of the LLM-fillable fields is unknown.
func (p BuildingProfile) NeedsEnrichment() bool {
	return p.YearBuilt == nil || p.Architect == nil || p.History == nil
}

// MergeMissing fills year, architect and history from r where the profile
// has no value yet. The second return value reports whether anything changed.
func (p BuildingProfile) MergeMissing(r *LLMQueryResult) (BuildingProfile, bool) {
	if r == nil {
		return p, false
	}
	changed := false
	if p.YearBuilt == nil && r.YearBuilt != nil {
		year := *r.YearBuilt
		p.YearBuilt = &year
		changed = true
	}
	if p.Architect == nil && r.Architect != nil {
		architect := *r.Architect
		p.Architect = &architect
		changed = true
	}
	if p.History == nil && r.History != nil {
		history := *r.History
		p.History = &history
		changed = true
	}
	return p, changed
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
