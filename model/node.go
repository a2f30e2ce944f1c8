package model

// Point is a WGS84 coordinate
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LatLng returns the point as the [lat, lon] pair used on the wire.
func (p Point) LatLng() [2]float64 {
	return [2]float64{p.Lat, p.Lng}
}

// Node is a routable point on the road network: an intersection or the
// centroid of a named area.
type Node struct {
	ID   string  `json:"id" gorm:"primaryKey"`
	Name string  `json:"name" gorm:"index"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type" gorm:"index"` // "area", "junction", "osm"
}

// Point returns the node's coordinates.
func (n Node) Point() Point {
	return Point{Lat: n.Lat, Lng: n.Lng}
}
