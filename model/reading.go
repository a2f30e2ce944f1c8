package model

import "time"

// Reading is one air-quality observation from a monitoring station.
type Reading struct {
	Station    string    `json:"station"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	AQI        float64   `json:"aqi"`
	CO2        float64   `json:"co2"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
}

// Point returns the station location.
func (r Reading) Point() Point {
	return Point{Lat: r.Lat, Lng: r.Lng}
}
