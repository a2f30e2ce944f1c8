// Package planner computes the shortest and the eco-friendly route between
// two named locations and scores both against the same pollution snapshot.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"eco-route/algo"
	"eco-route/geocode"
	"eco-route/pollution"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds the two route searches together.
const DefaultTimeout = 5 * time.Second

// Geocoder resolves a place name or "lat,lon" string.
type Geocoder interface {
	Geocode(query string) (geocode.Match, error)
}

// SnapshotSource hands out the pollution snapshot in effect.
type SnapshotSource interface {
	Current() *pollution.Snapshot
}

// Config holds the eco weights and scoring parameters.
type Config struct {
	DistanceWeight  float64 // w1, per meter
	PollutionWeight float64 // w2, per meter at AQI 100
	Timeout         time.Duration
	Scoring         ScoringConfig
}

// DefaultConfig returns equal distance and pollution weights.
func DefaultConfig() Config {
	return Config{
		DistanceWeight:  1,
		PollutionWeight: 1,
		Timeout:         DefaultTimeout,
		Scoring:         DefaultScoringConfig(),
	}
}

// Validate reports a configuration that could break the eco-route guarantee.
func (c Config) Validate() error {
	if c.DistanceWeight <= 0 || c.PollutionWeight <= 0 {
		return errors.New("eco weights must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("planner timeout must be positive")
	}
	return c.Scoring.validate()
}

// Endpoint is a resolved origin or destination.
type Endpoint struct {
	Query  string        `json:"query"`
	Match  geocode.Match `json:"match"`
	NodeID string        `json:"node_id"`
	Snap   float64       `json:"snap_meters"`
}

// RouteResult is the outcome of one route request. Both routes were computed
// and scored against the same snapshot.
type RouteResult struct {
	From            Endpoint
	To              Endpoint
	Shortest        Route
	Eco             Route
	SnapshotVersion uint64
	SnapshotSource  pollution.Source
}

// Planner is safe for concurrent use. The graph is read-only and each call
// takes one snapshot for its whole duration.
type Planner struct {
	graph     *algo.Graph
	geocoder  Geocoder
	snapshots SnapshotSource
	cfg       Config
}

// New creates a planner after validating cfg.
func New(g *algo.Graph, geo Geocoder, snapshots SnapshotSource, cfg Config) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("planner config: %w", err)
	}
	return &Planner{graph: g, geocoder: geo, snapshots: snapshots, cfg: cfg}, nil
}

// EcoWeight returns the eco search cost w1*dist + w2*dist*AQI/100 for snap.
func EcoWeight(g *algo.Graph, snap *pollution.Snapshot, w1, w2 float64) algo.WeightFunc {
	return func(e int) float64 {
		return w1*g.Arcs[e].Dist + w2*snap.EdgeCost(g, e)
	}
}

// Plan resolves from and to, then computes and scores the shortest and the
// eco route between them.
func (p *Planner) Plan(ctx context.Context, from, to string) (*RouteResult, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidEndpoints)
	}
	if strings.EqualFold(from, to) {
		return nil, fmt.Errorf("%w: origin and destination are the same", ErrInvalidEndpoints)
	}

	src, err := p.resolve(from)
	if err != nil {
		return nil, fmt.Errorf("%w: origin: %w", ErrInvalidEndpoints, err)
	}
	dst, err := p.resolve(to)
	if err != nil {
		return nil, fmt.Errorf("%w: destination: %w", ErrInvalidEndpoints, err)
	}
	if src.node == dst.node {
		return nil, fmt.Errorf("%w: %q and %q resolve to the same road node", ErrInvalidEndpoints, from, to)
	}
	if !p.graph.Connected(src.node, dst.node) {
		return nil, fmt.Errorf("%w: %q and %q are not connected", ErrNoRouteFound, from, to)
	}

	snap := p.snapshots.Current()

	searchCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	var shortest, eco algo.Path
	eg, egCtx := errgroup.WithContext(searchCtx)
	eg.Go(func() error {
		var err error
		shortest, err = p.graph.ShortestPath(egCtx, src.node, dst.node, p.graph.DistanceWeight())
		return err
	})
	eg.Go(func() error {
		var err error
		eco, err = p.graph.ShortestPath(egCtx, src.node, dst.node,
			EcoWeight(p.graph, snap, p.cfg.DistanceWeight, p.cfg.PollutionWeight))
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, p.searchError(err, from, to)
	}

	access := src.snap + dst.snap
	origin, dest := src.match.Point(), dst.match.Point()
	res := &RouteResult{
		From:            src.endpoint(p.graph, from),
		To:              dst.endpoint(p.graph, to),
		Shortest:        scoreRoute(p.graph, snap, p.cfg.Scoring, shortest, origin, dest, access, flagHigh),
		Eco:             scoreRoute(p.graph, snap, p.cfg.Scoring, eco, origin, dest, access, flagLow),
		SnapshotVersion: snap.Version,
		SnapshotSource:  snap.Source,
	}
	if snap.Source == pollution.SourceNeutral {
		log.Printf("planner: %q -> %q scored with neutral air quality (snapshot v%d)", from, to, snap.Version)
	}
	return res, nil
}

type resolved struct {
	match geocode.Match
	node  int
	snap  float64
}

func (r resolved) endpoint(g *algo.Graph, query string) Endpoint {
	return Endpoint{Query: query, Match: r.match, NodeID: g.Node(r.node).ID, Snap: r.snap}
}

// resolve geocodes a query and snaps it to the nearest road node.
func (p *Planner) resolve(query string) (resolved, error) {
	m, err := p.geocoder.Geocode(query)
	if err != nil {
		return resolved{}, err
	}
	idx, meters, ok := p.graph.Nearest(m.Point())
	if !ok {
		return resolved{}, fmt.Errorf("%w: %q is too far from the road network", ErrLocationNotFound, query)
	}
	return resolved{match: m, node: idx, snap: meters}, nil
}

// searchError maps a failed search. Any expired deadline, the planner's or
// the caller's, becomes ErrPlannerTimeout; cancellation is returned as is.
func (p *Planner) searchError(err error, from, to string) error {
	switch {
	case errors.Is(err, algo.ErrNoRoute):
		return fmt.Errorf("%w: %q -> %q", ErrNoRouteFound, from, to)
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("planner: %q -> %q: search deadline exceeded (limit %s)", from, to, p.cfg.Timeout)
		return fmt.Errorf("%w: %w", ErrPlannerTimeout, err)
	}
	return err
}
