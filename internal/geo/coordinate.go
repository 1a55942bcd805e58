// Package geo holds the coordinate type shared by the record cache and the
// move-location session, plus the single normalization point for the
// coordinate shapes map events and CLI input produce.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/tphakala/worktracker-go/internal/errors"
)

// world is the valid WGS84 range, lon on X and lat on Y
var world = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// LatLng is the structured pair emitted by map click and drag events.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to an orb point (lon, lat).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point (lon, lat).
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// Valid reports whether c is finite and inside WGS84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return world.Contains(c.Point())
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + ", " + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

// DistanceMeters is the great-circle distance between a and b.
func DistanceMeters(a, b Coordinate) float64 {
	return orbgeo.Distance(a.Point(), b.Point())
}

// Normalize accepts every shape a pending coordinate can arrive in:
// Coordinate, LatLng, orb.Point, a map with "lat" and "lng" or "lon" keys,
// an ordered [lat, lon] pair as []float64, [2]float64 or []any, and a
// "lat,lon" string.
func Normalize(raw any) (Coordinate, error) {
	var c Coordinate

	switch v := raw.(type) {
	case Coordinate:
		c = v
	case *Coordinate:
		if v == nil {
			return Coordinate{}, invalid("nil coordinate")
		}
		c = *v
	case LatLng:
		c = Coordinate{Lat: v.Lat, Lon: v.Lng}
	case *LatLng:
		if v == nil {
			return Coordinate{}, invalid("nil coordinate")
		}
		c = Coordinate{Lat: v.Lat, Lon: v.Lng}
	case orb.Point:
		c = FromPoint(v)
	case [2]float64:
		c = Coordinate{Lat: v[0], Lon: v[1]}
	case []float64:
		if len(v) != 2 {
			return Coordinate{}, invalid(fmt.Sprintf("expected 2 values, got %d", len(v)))
		}
		c = Coordinate{Lat: v[0], Lon: v[1]}
	case []any:
		if len(v) != 2 {
			return Coordinate{}, invalid(fmt.Sprintf("expected 2 values, got %d", len(v)))
		}
		lat, err := toFloat(v[0])
		if err != nil {
			return Coordinate{}, err
		}
		lon, err := toFloat(v[1])
		if err != nil {
			return Coordinate{}, err
		}
		c = Coordinate{Lat: lat, Lon: lon}
	case map[string]any:
		latRaw, ok := v["lat"]
		if !ok {
			return Coordinate{}, invalid("missing lat")
		}
		lonRaw, ok := v["lng"]
		if !ok {
			if lonRaw, ok = v["lon"]; !ok {
				return Coordinate{}, invalid("missing lng")
			}
		}
		lat, err := toFloat(latRaw)
		if err != nil {
			return Coordinate{}, err
		}
		lon, err := toFloat(lonRaw)
		if err != nil {
			return Coordinate{}, err
		}
		c = Coordinate{Lat: lat, Lon: lon}
	case string:
		parts := strings.Split(v, ",")
		if len(parts) != 2 {
			return Coordinate{}, invalid(fmt.Sprintf("expected \"lat,lon\", got %q", v))
		}
		lat, err := toFloat(parts[0])
		if err != nil {
			return Coordinate{}, err
		}
		lon, err := toFloat(parts[1])
		if err != nil {
			return Coordinate{}, err
		}
		c = Coordinate{Lat: lat, Lon: lon}
	default:
		return Coordinate{}, invalid(fmt.Sprintf("unsupported coordinate type %T", raw))
	}

	if !c.Valid() {
		return Coordinate{}, invalid(fmt.Sprintf("coordinate out of range: %v", c))
	}
	return c, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, invalid(fmt.Sprintf("not a number: %q", n))
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, invalid(fmt.Sprintf("not a number: %q", n))
		}
		return f, nil
	default:
		return 0, invalid(fmt.Sprintf("not a number: %T", v))
	}
}

func invalid(msg string) error {
	return errors.Newf("invalid coordinate: %s", msg).
		Component("geo").
		Category(errors.CategoryValidation).
		Build()
}

// Feature renders a located record as a GeoJSON point feature.
func Feature(id int64, title string, c Coordinate) *geojson.Feature {
	f := geojson.NewFeature(c.Point())
	f.ID = id
	f.Properties["id"] = id
	f.Properties["title"] = title
	return f
}
