package model

import "github.com/lib/pq"

// Area is a named neighbourhood in the gazetteer. Its AQI/CO2 values are the
// baseline readings used when no live air-quality feed is configured.
type Area struct {
	Name     string         `json:"name" gorm:"primaryKey"`
	Aliases  pq.StringArray `json:"aliases,omitempty" gorm:"type:text[]"`
	Lat      float64        `json:"lat"`
	Lng      float64        `json:"lng"`
	AQI      float64        `json:"aqi"`
	CO2      float64        `json:"co2"`
	Greenery float64        `json:"greenery"` // 0..1
}

// Point returns the area's centroid.
func (a Area) Point() Point {
	return Point{Lat: a.Lat, Lng: a.Lng}
}

// Reading returns the area's baseline air-quality values as a station reading.
func (a Area) Reading() Reading {
	return Reading{Station: a.Name, Lat: a.Lat, Lng: a.Lng, AQI: a.AQI, CO2: a.CO2}
}
