// Package data embeds the Mysore seed dataset: road network nodes and edges
// plus the area gazetteer with baseline AQI/CO2 readings.
package data

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"eco-route/model"
)

//go:embed mysore_map.json
var mysoreMap []byte

// Mysore returns a fresh copy of the embedded dataset.
func Mysore() (*model.MapData, error) {
	var md model.MapData
	if err := json.Unmarshal(mysoreMap, &md); err != nil {
		return nil, fmt.Errorf("decode embedded map data: %w", err)
	}
	return &md, nil
}
