package algo

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"

	"eco-route/model"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
)

// routableHighways lists the highway tag values kept from an OSM extract.
var routableHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

func isRoutable(tags osm.Tags) bool {
	if !routableHighways[tags.Find("highway")] {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	access := tags.Find("access")
	return access != "no" && access != "private"
}

// osmNodeID is the graph ID given to an OSM node.
func osmNodeID(id osm.NodeID) string {
	return "osm:" + strconv.FormatInt(int64(id), 10)
}

// ParseOSM reads an OSM XML extract and converts its routable ways into map
// data. Every way node becomes a graph node; consecutive way nodes become
// edges. oneway=-1 ways are stored reversed.
func ParseOSM(ctx context.Context, r io.Reader) (*model.MapData, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	nodes := make(map[osm.NodeID]*osm.Node)
	var ways []*osm.Way
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = o
		case *osm.Way:
			if isRoutable(o.Tags) {
				ways = append(ways, o)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan osm: %w", err)
	}

	data := &model.MapData{Meta: map[string]interface{}{"source": "osm"}}
	used := make(map[osm.NodeID]bool)
	addNode := func(id osm.NodeID) bool {
		n, ok := nodes[id]
		if !ok {
			return false
		}
		if !used[id] {
			used[id] = true
			data.Nodes = append(data.Nodes, model.Node{
				ID:   osmNodeID(id),
				Name: n.Tags.Find("name"),
				Lat:  n.Lat,
				Lng:  n.Lon,
				Type: "osm",
			})
		}
		return true
	}

	skipped := 0
	for _, w := range ways {
		oneway := w.Tags.Find("oneway")
		reverse := oneway == "-1" || oneway == "reverse"
		isOneWay := reverse || oneway == "yes" || oneway == "true" || oneway == "1" ||
			w.Tags.Find("junction") == "roundabout" || w.Tags.Find("highway") == "motorway"

		for i := 1; i < len(w.Nodes); i++ {
			a, b := w.Nodes[i-1].ID, w.Nodes[i].ID
			if !addNode(a) || !addNode(b) {
				skipped++
				continue
			}
			if reverse {
				a, b = b, a
			}
			data.Edges = append(data.Edges, model.Edge{
				From:    osmNodeID(a),
				To:      osmNodeID(b),
				Highway: w.Tags.Find("highway"),
				Name:    w.Tags.Find("name"),
				OneWay:  isOneWay,
			})
		}
	}
	if skipped > 0 {
		log.Printf("osm: skipped %d segments referencing missing nodes", skipped)
	}

	return data, nil
}

// LoadFromOSM parses an OSM XML extract and builds a graph from it.
func LoadFromOSM(ctx context.Context, r io.Reader, opts Options) (*Graph, error) {
	data, err := ParseOSM(ctx, r)
	if err != nil {
		return nil, err
	}
	log.Printf("osm: %d nodes, %d edges", len(data.Nodes), len(data.Edges))
	return BuildGraph(data, opts)
}
