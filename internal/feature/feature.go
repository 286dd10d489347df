// Package feature defines the persisted place record and its GeoJSON
// encoding.
package feature

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/placetimes/internal/geocode"
	"github.com/sells-group/placetimes/internal/populartimes"
)

// ScrapedAtLayout is the second-precision timestamp format written into
// feature properties.
const ScrapedAtLayout = "2006-01-02 15:04:05"

// Properties carries the scraped attributes of one place. Optional fields
// are pointers so absence serializes as null, keeping the persisted shape
// stable across partial extractions.
type Properties struct {
	Name         string                 `json:"name"`
	Address      *string                `json:"address"`
	Category     *string                `json:"category"`
	Link         string                 `json:"link"`
	Code         *string                `json:"code"`
	LiveInfo     *populartimes.LiveInfo `json:"live_info"`
	PopularTimes [][]int                `json:"populartimes"`
	ScrapedAt    string                 `json:"scraped_at"`
}

// Feature is one GeoJSON place record. Geometry is kept in its encoded form
// and accessed through Point.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties Properties      `json:"properties"`
}

// New builds a Feature for the given place at (lat, lng). times may be nil
// when the place exposed no popular-times UI; that serializes as a null
// populartimes field, distinct from an all-zero grid.
func New(name, link string, pt geocode.Point, times *populartimes.Result, now time.Time) (*Feature, error) {
	geomJSON, err := geojson.Marshal(geom.NewPointFlat(geom.XY, []float64{pt.Lng, pt.Lat}))
	if err != nil {
		return nil, eris.Wrapf(err, "feature: encode point for %s", link)
	}

	f := &Feature{
		Type:     "Feature",
		Geometry: geomJSON,
		Properties: Properties{
			Name:      name,
			Link:      link,
			ScrapedAt: now.Format(ScrapedAtLayout),
		},
	}
	if times != nil {
		f.Properties.PopularTimes = times.Times.Rows()
		f.Properties.LiveInfo = times.Live
	}
	return f, nil
}

// SetAddress records the optional copy-address label value.
func (f *Feature) SetAddress(addr string) {
	f.Properties.Address = &addr
}

// SetCategory records the optional place category.
func (f *Feature) SetCategory(cat string) {
	f.Properties.Category = &cat
}

// SetCode records the plus code recovered for this place.
func (f *Feature) SetCode(code string) {
	f.Properties.Code = &code
}

// Point decodes the stored geometry back into a coordinate.
func (f *Feature) Point() (geocode.Point, error) {
	var g geom.T
	if err := geojson.Unmarshal(f.Geometry, &g); err != nil {
		return geocode.Point{}, eris.Wrapf(err, "feature: decode geometry for %s", f.Properties.Link)
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return geocode.Point{}, eris.Errorf("feature: geometry for %s is %T, want point", f.Properties.Link, g)
	}
	coords := pt.Coords()
	return geocode.Point{Lng: coords[0], Lat: coords[1]}, nil
}

// Collection is the persisted feature-collection envelope.
type Collection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// NewCollection wraps features in a FeatureCollection envelope.
func NewCollection(features []*Feature) *Collection {
	return &Collection{Type: "FeatureCollection", Features: features}
}
