package pollution

import (
	"math"
	"sort"
	"time"

	"eco-route/algo"
	"eco-route/model"
	"eco-route/utils"
)

// Source says where a snapshot's readings came from.
type Source string

const (
	SourceLive    Source = "live"    // fresh from the provider
	SourceCache   Source = "cache"   // last-known readings restored from disk
	SourceNeutral Source = "neutral" // no usable readings, every sample is neutral
)

// exactMatchMeters: a station closer than this to a point supplies its value directly.
const exactMatchMeters = 1.0

// Sample is the air quality estimated at one point.
type Sample struct {
	AQI float64 `json:"aqi"`
	CO2 float64 `json:"co2"`
}

// Snapshot is an immutable set of per-node and per-edge samples aligned with
// one graph. A new snapshot replaces the old one wholesale on refresh.
type Snapshot struct {
	Version   uint64
	Source    Source
	FetchedAt time.Time
	Readings  int
	Node      []Sample // by node index
	Edge      []Sample // by arc index, sampled at the arc midpoint
}

// Age is how old the underlying readings are at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// EdgeCost is the pollution exposure of traversing arc e: its length in
// meters scaled by AQI/100.
func (s *Snapshot) EdgeCost(g *algo.Graph, e int) float64 {
	return g.Arcs[e].Dist * s.Edge[e].AQI / 100
}

// newSnapshot interpolates readings onto every node and arc midpoint of g
// with inverse-distance weighting.
func newSnapshot(g *algo.Graph, readings []model.Reading, power float64) *Snapshot {
	rs := sortedReadings(readings)
	snap := &Snapshot{
		Readings: len(rs),
		Node:     make([]Sample, len(g.NodeList)),
		Edge:     make([]Sample, len(g.Arcs)),
	}
	for i, n := range g.NodeList {
		snap.Node[i] = idw(n.Point(), rs, power)
	}
	for e, a := range g.Arcs {
		mid := utils.Midpoint(g.NodeList[a.From].Point(), g.NodeList[a.To].Point())
		snap.Edge[e] = idw(mid, rs, power)
	}
	return snap
}

// neutralSnapshot gives every node and arc the same sample.
func neutralSnapshot(g *algo.Graph, neutral Sample) *Snapshot {
	snap := &Snapshot{
		Source: SourceNeutral,
		Node:   make([]Sample, len(g.NodeList)),
		Edge:   make([]Sample, len(g.Arcs)),
	}
	for i := range snap.Node {
		snap.Node[i] = neutral
	}
	for i := range snap.Edge {
		snap.Edge[i] = neutral
	}
	return snap
}

// sortedReadings fixes the summation order so interpolation is reproducible.
func sortedReadings(readings []model.Reading) []model.Reading {
	rs := make([]model.Reading, len(readings))
	copy(rs, readings)
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Station != rs[j].Station {
			return rs[i].Station < rs[j].Station
		}
		if rs[i].Lat != rs[j].Lat {
			return rs[i].Lat < rs[j].Lat
		}
		return rs[i].Lng < rs[j].Lng
	})
	return rs
}

func idw(p model.Point, rs []model.Reading, power float64) Sample {
	var wSum, aqi, co2 float64
	for _, r := range rs {
		d := utils.HaversineDistance(p, r.Point())
		if d < exactMatchMeters {
			return Sample{AQI: r.AQI, CO2: r.CO2}
		}
		w := 1 / math.Pow(d, power)
		wSum += w
		aqi += w * r.AQI
		co2 += w * r.CO2
	}
	if wSum == 0 {
		return Sample{}
	}
	return Sample{AQI: aqi / wSum, CO2: co2 / wSum}
}
