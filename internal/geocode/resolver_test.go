package geocode

import (
	"testing"

	olc "github.com/google/open-location-code/go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromURL(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		wantLat float64
		wantLng float64
	}{
		{
			name:    "place url with !3d!4d markers",
			link:    "https://www.google.com/maps/place/Franklin+Institute/@39.9582,-75.1731,17z/data=!3m1!4b1",
			wantLat: 39.9582,
			wantLng: -75.1731,
		},
		{
			name:    "southern hemisphere",
			link:    "https://maps.example.com/@-33.8688,151.2093,15z",
			wantLat: -33.8688,
			wantLng: 151.2093,
		},
		{
			name:    "separated by path noise",
			link:    "https://maps.example.com/place/data=40.7128abc/xyz-74.0060/more",
			wantLat: 40.7128,
			wantLng: -74.0060,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, err := FromURL(tt.link)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLat, pt.Lat, 1e-9)
			assert.InDelta(t, tt.wantLng, pt.Lng, 1e-9)
		})
	}
}

func TestFromURLNoCoordinates(t *testing.T) {
	tests := []struct {
		name string
		link string
	}{
		{name: "no numbers", link: "https://maps.example.com/place/Nowhere"},
		{name: "single decimal only", link: "https://maps.example.com/@39.9582,15z"},
		{name: "integers only", link: "https://maps.example.com/@39,-75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromURL(tt.link)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrCoordinateNotFound))
		})
	}
}

func TestRefine(t *testing.T) {
	// Shorten a full code for a point near the approximate anchor; Refine
	// must recover the area and land on its center.
	target := Point{Lat: 39.9526, Lng: -75.1652}
	full := olc.Encode(target.Lat, target.Lng, 10)
	short := full[4:] + " Philadelphia"

	approx := Point{Lat: 39.95, Lng: -75.17}
	pt, ok := Refine(short, approx)
	require.True(t, ok)
	assert.InDelta(t, target.Lat, pt.Lat, 0.005)
	assert.InDelta(t, target.Lng, pt.Lng, 0.005)
}

func TestRefineFallsBack(t *testing.T) {
	approx := Point{Lat: 39.95, Lng: -75.17}

	tests := []struct {
		name string
		code string
	}{
		{name: "empty", code: ""},
		{name: "whitespace", code: "   "},
		{name: "garbage token", code: "!!!! Philadelphia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt, ok := Refine(tt.code, approx)
			assert.False(t, ok)
			assert.Equal(t, approx, pt)
		})
	}
}
