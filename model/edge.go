package model

// Edge is a road segment between two nodes. Distances are in meters.
// Edges are immutable once a graph has been built from them.
type Edge struct {
	ID      uint    `json:"-" gorm:"primaryKey"`
	From    string  `json:"from" gorm:"index"`
	To      string  `json:"to" gorm:"index"`
	Dist    float64 `json:"dist"`              // 0 means "compute from coordinates"
	Highway string  `json:"highway,omitempty"` // road class, e.g. "primary"
	Name    string  `json:"name,omitempty"`
	OneWay  bool    `json:"oneway,omitempty"`
}

// MapData is the on-disk seed format: nodes, edges and the area gazetteer.
type MapData struct {
	Meta  map[string]interface{} `json:"meta"`
	Nodes []Node                 `json:"nodes"`
	Edges []Edge                 `json:"edges"`
	Areas []Area                 `json:"areas"`
}
