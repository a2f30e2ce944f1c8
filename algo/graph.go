package algo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"eco-route/model"
	"eco-route/utils"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// DefaultMaxSnapMeters is how far a query point may be from the nearest node.
const DefaultMaxSnapMeters = 3000.0

var (
	// ErrNoRoute is returned when the destination cannot be reached from the origin.
	ErrNoRoute = errors.New("no route found")
	// ErrUnknownNode is returned for node indices or IDs not in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Options controls graph construction.
type Options struct {
	MaxSnapMeters float64
}

// Arc is a directed edge in index form.
type Arc struct {
	From    int
	To      int
	Dist    float64 // meters
	Highway string
	Name    string
}

// Graph is the routable road network. It is immutable after BuildGraph
// returns and safe for concurrent readers.
type Graph struct {
	NodeList []model.Node // nodes by index
	Arcs     []Arc        // directed edges by index
	AdjList  [][]int      // node index -> outgoing arc indices

	index     map[string]int
	component []int
	tree      rtree.RTreeG[int]
	bound     orb.Bound
	maxSnap   float64
}

// BuildGraph validates map data and builds the indexed graph. Edges with a
// zero distance get the haversine distance between their endpoints; edges
// that are not one-way get a reverse arc unless the data already has one.
func BuildGraph(data *model.MapData, opts Options) (*Graph, error) {
	if data == nil || len(data.Nodes) == 0 {
		return nil, errors.New("map data has no nodes")
	}
	if opts.MaxSnapMeters <= 0 {
		opts.MaxSnapMeters = DefaultMaxSnapMeters
	}

	g := &Graph{
		NodeList: make([]model.Node, 0, len(data.Nodes)),
		index:    make(map[string]int, len(data.Nodes)),
		maxSnap:  opts.MaxSnapMeters,
	}

	// 1. nodes
	for _, n := range data.Nodes {
		if n.ID == "" {
			return nil, errors.New("node with empty id")
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		if !utils.ValidCoordinate(n.Point()) {
			return nil, fmt.Errorf("node %q has invalid coordinates (%f, %f)", n.ID, n.Lat, n.Lng)
		}
		g.index[n.ID] = len(g.NodeList)
		g.NodeList = append(g.NodeList, n)
	}
	g.AdjList = make([][]int, len(g.NodeList))

	// 2. edges, with reverse arcs for two-way roads
	type pair struct{ from, to int }
	seen := make(map[pair]bool, len(data.Edges)*2)
	var oneWay []bool
	addArc := func(a Arc) {
		seen[pair{a.From, a.To}] = true
		g.AdjList[a.From] = append(g.AdjList[a.From], len(g.Arcs))
		g.Arcs = append(g.Arcs, a)
	}
	for _, e := range data.Edges {
		from, ok := g.index[e.From]
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: %w %q", e.From, e.To, ErrUnknownNode, e.From)
		}
		to, ok := g.index[e.To]
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: %w %q", e.From, e.To, ErrUnknownNode, e.To)
		}
		if from == to {
			continue
		}
		dist := e.Dist
		if dist < 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
			return nil, fmt.Errorf("edge %s->%s has invalid distance %f", e.From, e.To, dist)
		}
		if dist == 0 {
			dist = utils.HaversineDistance(g.NodeList[from].Point(), g.NodeList[to].Point())
		}
		if seen[pair{from, to}] {
			continue
		}
		addArc(Arc{From: from, To: to, Dist: dist, Highway: e.Highway, Name: e.Name})
		oneWay = append(oneWay, e.OneWay)
	}
	// Reverse arcs go in a second pass so explicit reverse edges win.
	forward := len(g.Arcs)
	for i := 0; i < forward; i++ {
		a := g.Arcs[i]
		if oneWay[i] || seen[pair{a.To, a.From}] {
			continue
		}
		addArc(Arc{From: a.To, To: a.From, Dist: a.Dist, Highway: a.Highway, Name: a.Name})
	}

	// Deterministic neighbour order: by target index, then arc index.
	for u := range g.AdjList {
		adj := g.AdjList[u]
		sort.Slice(adj, func(i, j int) bool {
			ai, aj := g.Arcs[adj[i]], g.Arcs[adj[j]]
			if ai.To != aj.To {
				return ai.To < aj.To
			}
			return adj[i] < adj[j]
		})
	}

	g.component = labelComponents(g)

	// 3. spatial index and coverage bound
	var mp orb.MultiPoint
	for i, n := range g.NodeList {
		pt := [2]float64{n.Lng, n.Lat}
		g.tree.Insert(pt, pt, i)
		mp = append(mp, utils.ToOrb(n.Point()))
	}
	b := mp.Bound()
	g.bound = orb.Bound{
		Min: utils.BoundAround(utils.FromOrb(b.Min), g.maxSnap).Min,
		Max: utils.BoundAround(utils.FromOrb(b.Max), g.maxSnap).Max,
	}

	return g, nil
}

// LoadFromJSON loads map data from a JSON file and builds a graph. The
// file's areas are returned alongside.
func LoadFromJSON(path string, opts Options) (*Graph, []model.Area, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read map file: %w", err)
	}

	var data model.MapData
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, nil, fmt.Errorf("decode map file: %w", err)
	}
	g, err := BuildGraph(&data, opts)
	if err != nil {
		return nil, nil, err
	}
	return g, data.Areas, nil
}

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.NodeList) }

// Node returns the node at index i.
func (g *Graph) Node(i int) model.Node { return g.NodeList[i] }

// NodeIndex resolves a node ID to its index.
func (g *Graph) NodeIndex(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Neighbors returns the outgoing arc indices of node i in deterministic order.
func (g *Graph) Neighbors(i int) []int { return g.AdjList[i] }

// Connected reports whether a and b lie in the same weakly connected component.
// One-way streets can still make b unreachable; the search reports that.
func (g *Graph) Connected(a, b int) bool {
	return g.component[a] == g.component[b]
}

// Bound is the covered region: the node bounding box padded by the snap radius.
func (g *Graph) Bound() orb.Bound { return g.bound }

// MaxSnapMeters is the largest allowed distance between a query point and its node.
func (g *Graph) MaxSnapMeters() float64 { return g.maxSnap }

// Covers reports whether p lies inside the service region.
func (g *Graph) Covers(p model.Point) bool {
	if !utils.ValidCoordinate(p) || !g.bound.Contains(utils.ToOrb(p)) {
		return false
	}
	_, _, ok := g.Nearest(p)
	return ok
}

// Nearest finds the node closest to p within the snap radius. The R-tree is
// queried with growing windows; ties go to the lower node index.
func (g *Graph) Nearest(p model.Point) (idx int, meters float64, ok bool) {
	if !utils.ValidCoordinate(p) {
		return -1, 0, false
	}
	for _, radius := range []float64{250, 1000, g.maxSnap} {
		if radius > g.maxSnap {
			radius = g.maxSnap
		}
		box := utils.BoundAround(p, radius)
		best, bestDist := -1, math.Inf(1)
		g.tree.Search(
			[2]float64{box.Min.Lon(), box.Min.Lat()},
			[2]float64{box.Max.Lon(), box.Max.Lat()},
			func(_, _ [2]float64, i int) bool {
				d := utils.HaversineDistance(p, g.NodeList[i].Point())
				if d < bestDist || (d == bestDist && i < best) {
					best, bestDist = i, d
				}
				return true
			},
		)
		// Anything outside the box is farther than radius, so a hit within
		// radius is final.
		if best >= 0 && bestDist <= radius {
			return best, bestDist, true
		}
	}
	return -1, 0, false
}
