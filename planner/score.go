package planner

import (
	"errors"
	"math"
	"sort"

	"eco-route/algo"
	"eco-route/model"
	"eco-route/pollution"
	"eco-route/utils"
)

// minAccessLegMeters: shorter gaps between a geocoded point and its snapped
// node are not drawn as a separate polyline vertex.
const minAccessLegMeters = 1.0

// eco score component weights; they sum to 1
const (
	aqiScoreWeight      = 0.60
	co2ScoreWeight      = 0.25
	distanceScoreWeight = 0.15
)

// ScoringConfig holds the eco-score normalization constants and the
// waypoint flag thresholds.
type ScoringConfig struct {
	HighAQIThreshold float64 // shortest-route points above this are flagged
	LowAQIThreshold  float64 // eco-route points below this are flagged
	MaxFlaggedPoints int
	AQICeiling       float64 // avg AQI at or above this scores 0 on the AQI part
	CO2Ceiling       float64
	DistanceScaleKm  float64 // distance at which the distance part is halved
}

// DefaultScoringConfig returns the default thresholds.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		HighAQIThreshold: 80,
		LowAQIThreshold:  50,
		MaxFlaggedPoints: 10,
		AQICeiling:       200,
		CO2Ceiling:       300,
		DistanceScaleKm:  5,
	}
}

func (c ScoringConfig) validate() error {
	switch {
	case c.LowAQIThreshold >= c.HighAQIThreshold:
		return errors.New("low AQI threshold must be below high AQI threshold")
	case c.AQICeiling <= 0 || c.CO2Ceiling <= 0 || c.DistanceScaleKm <= 0:
		return errors.New("score ceilings and distance scale must be positive")
	case c.MaxFlaggedPoints < 0:
		return errors.New("max flagged points must not be negative")
	}
	return nil
}

// Waypoint is a flagged point on a route.
type Waypoint struct {
	Coordinates [2]float64 `json:"coordinates"`
	AQI         float64    `json:"aqi"`
	CO2         float64    `json:"co2"`
}

// Route is one scored route.
type Route struct {
	Coordinates [][2]float64 // [lat, lon], origin first
	Nodes       []string     // node IDs along the road network
	Distance    float64      // km, 2 decimals
	AvgAQI      float64
	AvgCO2      float64
	EcoScore    float64
	Flagged     []Waypoint // high-AQI points on the shortest route, low-AQI on the eco route
}

// flagMode picks which waypoints a route reports.
type flagMode int

const (
	flagHigh flagMode = iota
	flagLow
)

// EcoScore maps route pollution and length to 0..100. It is non-increasing
// in avgAQI, avgCO2 and distance.
func (c ScoringConfig) EcoScore(avgAQI, avgCO2, distanceKm float64) float64 {
	aqiPart := 1 - math.Min(math.Max(avgAQI, 0)/c.AQICeiling, 1)
	co2Part := 1 - math.Min(math.Max(avgCO2, 0)/c.CO2Ceiling, 1)
	distPart := c.DistanceScaleKm / (c.DistanceScaleKm + math.Max(distanceKm, 0))
	return round(100*(aqiScoreWeight*aqiPart+co2ScoreWeight*co2Part+distanceScoreWeight*distPart), 1)
}

// scoreRoute aggregates a path. Averages are weighted by arc length over the
// road-network part of the route; access legs only add distance.
func scoreRoute(g *algo.Graph, snap *pollution.Snapshot, cfg ScoringConfig, path algo.Path,
	origin, dest model.Point, accessMeters float64, mode flagMode) Route {

	var sumD, sumAQI, sumCO2 float64
	for _, e := range path.Arcs {
		d := g.Arcs[e].Dist
		sumD += d
		sumAQI += d * snap.Edge[e].AQI
		sumCO2 += d * snap.Edge[e].CO2
	}
	var avgAQI, avgCO2 float64
	if sumD > 0 {
		avgAQI = sumAQI / sumD
		avgCO2 = sumCO2 / sumD
	}

	r := Route{
		Nodes:  make([]string, len(path.Nodes)),
		AvgAQI: round(avgAQI, 1),
		AvgCO2: round(avgCO2, 1),
	}
	distanceKm := (path.Distance + accessMeters) / 1000
	r.Distance = round(distanceKm, 2)
	r.EcoScore = cfg.EcoScore(avgAQI, avgCO2, distanceKm)

	first := g.Node(path.Nodes[0]).Point()
	if utils.HaversineDistance(origin, first) >= minAccessLegMeters {
		r.Coordinates = append(r.Coordinates, origin.LatLng())
	}
	for i, n := range path.Nodes {
		node := g.Node(n)
		r.Nodes[i] = node.ID
		r.Coordinates = append(r.Coordinates, node.Point().LatLng())
	}
	last := g.Node(path.Nodes[len(path.Nodes)-1]).Point()
	if utils.HaversineDistance(dest, last) >= minAccessLegMeters {
		r.Coordinates = append(r.Coordinates, dest.LatLng())
	}

	r.Flagged = flagWaypoints(g, snap, cfg, path, mode)
	return r
}

// flagWaypoints keeps the most extreme qualifying nodes, reported in route order.
func flagWaypoints(g *algo.Graph, snap *pollution.Snapshot, cfg ScoringConfig, path algo.Path, mode flagMode) []Waypoint {
	type hit struct {
		pos int
		aqi float64
	}
	var hits []hit
	for pos, n := range path.Nodes {
		aqi := snap.Node[n].AQI
		if (mode == flagHigh && aqi > cfg.HighAQIThreshold) || (mode == flagLow && aqi < cfg.LowAQIThreshold) {
			hits = append(hits, hit{pos: pos, aqi: aqi})
		}
	}

	if cfg.MaxFlaggedPoints >= 0 && len(hits) > cfg.MaxFlaggedPoints {
		sort.SliceStable(hits, func(i, j int) bool {
			if mode == flagHigh {
				return hits[i].aqi > hits[j].aqi
			}
			return hits[i].aqi < hits[j].aqi
		})
		hits = hits[:cfg.MaxFlaggedPoints]
		sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	}

	points := make([]Waypoint, 0, len(hits))
	for _, h := range hits {
		n := path.Nodes[h.pos]
		points = append(points, Waypoint{
			Coordinates: g.Node(n).Point().LatLng(),
			AQI:         round(snap.Node[n].AQI, 1),
			CO2:         round(snap.Node[n].CO2, 1),
		})
	}
	return points
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
