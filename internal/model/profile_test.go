package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLocation_BackfillsOnlyWhenUnset(t *testing.T) {
	empty := BuildingProfile{}
	geocoded := Coordinates{Lat: 59.935, Lon: 30.325}

	filled := empty.WithLocation(geocoded)
	require.NotNil(t, filled.Location)
	assert.Equal(t, geocoded, *filled.Location)
	assert.Nil(t, empty.Location, "receiver must not be mutated")

	own := Coordinates{Lat: 1, Lon: 2}
	withOwn := BuildingProfile{Location: &own}
	kept := withOwn.WithLocation(geocoded)
	assert.Equal(t, own, *kept.Location)
}

func TestWithImagePath(t *testing.T) {
	p := BuildingProfile{}.WithImagePath("/uploads/a.jpg")
	require.NotNil(t, p.ImagePath)
	assert.Equal(t, "/uploads/a.jpg", *p.ImagePath)

	again := p.WithImagePath("/uploads/b.jpg")
	assert.Equal(t, "/uploads/a.jpg", *again.ImagePath)

	none := BuildingProfile{}.WithImagePath("")
	assert.Nil(t, none.ImagePath)
}

func TestNeedsEnrichment(t *testing.T) {
	tests := []struct {
		name    string
		profile BuildingProfile
		want    bool
	}{
		{"empty", BuildingProfile{}, true},
		{"only year", BuildingProfile{YearBuilt: IntPtr(1900)}, true},
		{"missing history", BuildingProfile{YearBuilt: IntPtr(1900), Architect: StringPtr("A")}, true},
		{"complete", BuildingProfile{YearBuilt: IntPtr(1900), Architect: StringPtr("A"), History: StringPtr("H")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.NeedsEnrichment())
		})
	}
}

func TestMergeMissing_NeverOverwrites(t *testing.T) {
	base := BuildingProfile{
		Name:      StringPtr("Singer House"),
		Architect: StringPtr("Pavel Suzor"),
	}
	result := &LLMQueryResult{
		YearBuilt: IntPtr(1904),
		Architect: StringPtr("Someone Else"),
		History:   StringPtr("Built for the Singer company."),
	}

	merged, changed := base.MergeMissing(result)

	assert.True(t, changed)
	assert.Equal(t, 1904, *merged.YearBuilt)
	assert.Equal(t, "Pavel Suzor", *merged.Architect)
	assert.Equal(t, "Built for the Singer company.", *merged.History)
	assert.Equal(t, "Singer House", *merged.Name)
	assert.Nil(t, base.YearBuilt, "receiver must not be mutated")
}

func TestMergeMissing_NoChange(t *testing.T) {
	full := BuildingProfile{YearBuilt: IntPtr(1), Architect: StringPtr("a"), History: StringPtr("h")}

	_, changed := full.MergeMissing(&LLMQueryResult{YearBuilt: IntPtr(2)})
	assert.False(t, changed)

	_, changed = BuildingProfile{}.MergeMissing(&LLMQueryResult{})
	assert.False(t, changed)

	_, changed = BuildingProfile{}.MergeMissing(nil)
	assert.False(t, changed)
}

func TestCoordinatesValid(t *testing.T) {
	assert.True(t, Coordinates{Lat: 59.9, Lon: 30.3}.Valid())
	assert.True(t, Coordinates{Lat: -90, Lon: 180}.Valid())
	assert.False(t, Coordinates{Lat: 91, Lon: 0}.Valid())
	assert.False(t, Coordinates{Lat: 0, Lon: -181}.Valid())
	assert.False(t, Coordinates{Lat: math.NaN(), Lon: 0}.Valid())
}

func TestRequestHasLocation(t *testing.T) {
	assert.False(t, BuildingInfoRequest{}.HasLocation())
	assert.False(t, BuildingInfoRequest{ImageBase64: "abcd"}.HasLocation())
	assert.True(t, BuildingInfoRequest{Address: "Nevsky 28"}.HasLocation())
	assert.True(t, BuildingInfoRequest{Coordinates: &Coordinates{}}.HasLocation())
}
