// Package geo provides the small amount of geodesy the simulator needs.
package geo

import (
	"math"
	"math/rand"
)

const (
	// EarthRadiusM is the mean Earth radius used by Distance.
	EarthRadiusM = 6371000.0
	// MetersPerDegreeLat is the flat-earth scale used for synthetic motion.
	MetersPerDegreeLat = 111111.0
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Distance returns the haversine great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusM * c
}

// Offset moves p by the given north/east displacement in meters using a
// flat-earth approximation. Good enough for synthetic motion, not for measurement.
func Offset(p Point, northM, eastM float64) Point {
	dLat := northM / MetersPerDegreeLat
	dLng := eastM / (MetersPerDegreeLat * math.Cos(p.Lat*math.Pi/180))
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Bounds is a lat/lng rectangle.
type Bounds struct {
	North float64 `json:"north" yaml:"north"`
	South float64 `json:"south" yaml:"south"`
	East  float64 `json:"east" yaml:"east"`
	West  float64 `json:"west" yaml:"west"`
}

// DefaultBounds covers central Manhattan.
var DefaultBounds = Bounds{
	North: 40.8176,
	South: 40.7489,
	East:  -73.9441,
	West:  -74.0059,
}

// IsZero reports whether b is unset.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Clamp pins p to the nearest point inside b.
func (b Bounds) Clamp(p Point) Point {
	return Point{
		Lat: math.Max(b.South, math.Min(b.North, p.Lat)),
		Lng: math.Max(b.West, math.Min(b.East, p.Lng)),
	}
}

// RandomPoint samples a point uniformly (in degrees) inside b.
func (b Bounds) RandomPoint(r *rand.Rand) Point {
	return Point{
		Lat: b.South + r.Float64()*(b.North-b.South),
		Lng: b.West + r.Float64()*(b.East-b.West),
	}
}
