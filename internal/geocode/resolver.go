// Package geocode recovers place coordinates from search-result URLs and
// refines them with plus codes.
package geocode

import (
	"regexp"
	"strconv"
	"strings"

	olc "github.com/google/open-location-code/go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCoordinateNotFound signals a URL with no embedded coordinate pair. The
// enclosing place cannot be recorded without at least an approximate
// position, so callers treat this as a hard, place-scoped failure.
var ErrCoordinateNotFound = eris.New("geocode: no coordinate pair in url")

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Two consecutive signed decimals anywhere in the URL text. The first is
// latitude, the second longitude, matching the map URL layout.
var latLngRe = regexp.MustCompile(`(-?\d+\.\d+).+?(-?\d+\.\d+)`)

// FromURL extracts the approximate coordinate embedded in a search-result
// link.
func FromURL(link string) (Point, error) {
	m := latLngRe.FindStringSubmatch(link)
	if m == nil {
		return Point{}, eris.Wrapf(ErrCoordinateNotFound, "link %s", link)
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrCoordinateNotFound, "link %s", link)
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Point{}, eris.Wrapf(ErrCoordinateNotFound, "link %s", link)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// Refine decodes a short plus code using approx as the disambiguation
// anchor and returns the decoded area's center. The code label may carry a
// trailing locality ("76VV+QJ Philadelphia"); only the leading token is the
// code. On any decode failure the approximate point is returned unchanged
// with ok=false, and the caller records the code as absent.
func Refine(code string, approx Point) (Point, bool) {
	token, _, _ := strings.Cut(strings.TrimSpace(code), " ")
	if token == "" {
		return approx, false
	}

	full, err := olc.RecoverNearest(token, approx.Lat, approx.Lng)
	if err != nil {
		zap.L().Debug("plus code recovery failed",
			zap.String("code", token),
			zap.Error(err),
		)
		return approx, false
	}
	area, err := olc.Decode(full)
	if err != nil {
		zap.L().Debug("plus code decode failed",
			zap.String("code", full),
			zap.Error(err),
		)
		return approx, false
	}

	lat, lng := area.Center()
	return Point{Lat: lat, Lng: lng}, true
}
