package algo

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"slices"
)

// ctxCheckInterval is how many heap pops happen between context checks.
const ctxCheckInterval = 256

// WeightFunc returns the search cost of traversing arc e. Costs must be
// non-negative; a negative, NaN or infinite cost makes the arc unusable.
type WeightFunc func(e int) float64

// DistanceWeight weighs every arc by its length.
func (g *Graph) DistanceWeight() WeightFunc {
	return func(e int) float64 { return g.Arcs[e].Dist }
}

// Path is the result of a shortest-path search.
type Path struct {
	Nodes    []int   // node indices, origin first
	Arcs     []int   // arc indices, len(Nodes)-1
	Cost     float64 // total weight under the search's WeightFunc
	Distance float64 // total length in meters
}

// pqItem is an entry in the priority queue.
type pqItem struct {
	node  int
	cost  float64
	dist  float64
	index int
}

// priorityQueue implements heap.Interface. Entries order by cost, then by
// distance, then by node index, so equal-cost searches are reproducible and
// prefer the shorter path.
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra from src to dst under weight. Among paths of
// equal cost the one with the lowest total distance wins. It returns
// ErrNoRoute when dst is unreachable and the context error when ctx ends
// before the search does.
func (g *Graph) ShortestPath(ctx context.Context, src, dst int, weight WeightFunc) (Path, error) {
	n := len(g.NodeList)
	if src < 0 || src >= n || dst < 0 || dst >= n {
		return Path{}, fmt.Errorf("%w: %d -> %d", ErrUnknownNode, src, dst)
	}

	cost := make([]float64, n)
	dist := make([]float64, n)
	prevArc := make([]int, n)
	visited := make([]bool, n)
	for i := range cost {
		cost[i] = math.Inf(1)
		dist[i] = math.Inf(1)
		prevArc[i] = -1
	}
	cost[src], dist[src] = 0, 0

	pq := make(priorityQueue, 0, 64)
	heap.Push(&pq, &pqItem{node: src})

	pops := 0
	for pq.Len() > 0 {
		pops++
		if pops%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Path{}, err
			}
		}

		current := heap.Pop(&pq).(*pqItem)
		u := current.node
		if visited[u] {
			continue
		}
		visited[u] = true
		if u == dst {
			break
		}

		for _, e := range g.AdjList[u] {
			arc := g.Arcs[e]
			v := arc.To
			if visited[v] {
				continue
			}
			w := weight(e)
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				continue
			}
			nc := cost[u] + w
			nd := dist[u] + arc.Dist
			if nc < cost[v] || (nc == cost[v] && nd < dist[v]) {
				cost[v] = nc
				dist[v] = nd
				prevArc[v] = e
				heap.Push(&pq, &pqItem{node: v, cost: nc, dist: nd})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return Path{}, err
	}

	if math.IsInf(cost[dst], 1) {
		return Path{}, ErrNoRoute
	}

	// walk predecessors back to the origin
	var arcs []int
	nodes := []int{dst}
	for at := dst; at != src; {
		e := prevArc[at]
		arcs = append(arcs, e)
		at = g.Arcs[e].From
		nodes = append(nodes, at)
	}
	slices.Reverse(nodes)
	slices.Reverse(arcs)

	return Path{
		Nodes:    nodes,
		Arcs:     arcs,
		Cost:     cost[dst],
		Distance: dist[dst],
	}, nil
}
