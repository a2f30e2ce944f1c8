package algo

// unionFind is a disjoint-set with path halving and union by rank.
type unionFind struct {
	parent []int
	rank   []byte
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: make([]byte, n)}
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
}

// labelComponents returns a weakly-connected component label per node.
// Labels are the smallest node index in each component.
func labelComponents(g *Graph) []int {
	uf := newUnionFind(len(g.NodeList))
	for _, a := range g.Arcs {
		uf.union(a.From, a.To)
	}

	smallest := make(map[int]int)
	labels := make([]int, len(g.NodeList))
	for i := range g.NodeList {
		root := uf.find(i)
		if _, ok := smallest[root]; !ok {
			smallest[root] = i
		}
		labels[i] = smallest[root]
	}
	return labels
}

// NumComponents returns how many weakly connected components the graph has.
func (g *Graph) NumComponents() int {
	n := 0
	for i, c := range g.component {
		if c == i {
			n++
		}
	}
	return n
}
