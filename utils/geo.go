package utils

import (
	"math"

	"eco-route/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// EarthRadius WGS84 semi-major axis in meters, same radius orb/geo uses.
const EarthRadius = orb.EarthRadius

// metersPerDegreeLat is close enough for building search windows.
const metersPerDegreeLat = 111320.0

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// ToOrb converts a model point to orb's [lon, lat] order.
func ToOrb(p model.Point) orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromOrb converts an orb point back to a model point.
func FromOrb(p orb.Point) model.Point {
	return model.Point{Lat: p.Lat(), Lng: p.Lon()}
}

// HaversineDistance returns the great-circle distance between two points in meters.
// It weights edges in the road graph and measures access legs to snapped nodes.
func HaversineDistance(p1, p2 model.Point) float64 {
	return geo.DistanceHaversine(ToOrb(p1), ToOrb(p2))
}

// Midpoint returns the geographic midpoint of a segment.
func Midpoint(p1, p2 model.Point) model.Point {
	return FromOrb(geo.Midpoint(ToOrb(p1), ToOrb(p2)))
}

// BoundAround returns a lat/lng box that contains every point within
// meters of p.
func BoundAround(p model.Point, meters float64) orb.Bound {
	dLat := meters / metersPerDegreeLat
	cos := math.Cos(DegreesToRadians(p.Lat))
	if cos < 0.01 {
		cos = 0.01
	}
	dLng := meters / (metersPerDegreeLat * cos)
	return orb.Bound{
		Min: orb.Point{p.Lng - dLng, p.Lat - dLat},
		Max: orb.Point{p.Lng + dLng, p.Lat + dLat},
	}
}

// ValidCoordinate reports whether lat/lng are finite and in range.
func ValidCoordinate(p model.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
