package centrality

import (
	"math/rand"
	"sort"
)

// Graph is an undirected simple graph with weighted edges. Edge weights
// record co-occurrence counts; shortest paths treat every edge as unit
// length.
type Graph struct {
	nodes []string
	index map[string]int
	adj   []map[int]float64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Ensure adds a node if absent and returns its index.
func (g *Graph) Ensure(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[name] = i
	g.nodes = append(g.nodes, name)
	g.adj = append(g.adj, make(map[int]float64))
	return i
}

// AddEdge accumulates weight on the undirected edge a-b. Self loops are
// ignored.
func (g *Graph) AddEdge(a, b string, weight float64) {
	if a == b {
		return
	}
	ai, bi := g.Ensure(a), g.Ensure(b)
	g.adj[ai][bi] += weight
	g.adj[bi][ai] += weight
}

// Order returns the node count.
func (g *Graph) Order() int { return len(g.nodes) }

// Nodes returns node names in insertion order.
func (g *Graph) Nodes() []string { return g.nodes }

// Weight returns the accumulated weight of edge a-b, zero when absent.
func (g *Graph) Weight(a, b string) float64 {
	ai, ok := g.index[a]
	if !ok {
		return 0
	}
	bi, ok := g.index[b]
	if !ok {
		return 0
	}
	return g.adj[ai][bi]
}

// Remove drops the named nodes and every incident edge. Used to prune
// low-frequency words before centrality computation.
func (g *Graph) Remove(names map[string]struct{}) *Graph {
	pruned := NewGraph()
	for ai, neighbors := range g.adj {
		a := g.nodes[ai]
		if _, drop := names[a]; drop {
			continue
		}
		pruned.Ensure(a)
		for bi, w := range neighbors {
			b := g.nodes[bi]
			if _, drop := names[b]; drop {
				continue
			}
			if ai < bi {
				pruned.AddEdge(a, b, w)
			}
		}
	}
	return pruned
}

// Degree returns normalized degree centrality for every node:
// |neighbors| / (N-1).
func (g *Graph) Degree() map[string]float64 {
	out := make(map[string]float64, len(g.nodes))
	n := len(g.nodes)
	if n < 2 {
		for _, name := range g.nodes {
			out[name] = 0
		}
		return out
	}
	for i, name := range g.nodes {
		out[name] = float64(len(g.adj[i])) / float64(n-1)
	}
	return out
}

// sampleThreshold is the node count above which betweenness switches to
// sampled sources.
const sampleThreshold = 1000

// Betweenness computes normalized betweenness centrality with Brandes'
// algorithm. For graphs larger than sampleThreshold nodes, contributions
// are accumulated from at most sampleSize seeded-random sources and
// rescaled by N/k so sampled values stay comparable to exact ones.
func (g *Graph) Betweenness(sampleSize int, seed int64) map[string]float64 {
	n := len(g.nodes)
	out := make(map[string]float64, n)
	for _, name := range g.nodes {
		out[name] = 0
	}
	if n < 3 {
		return out
	}

	sources := make([]int, n)
	for i := range sources {
		sources[i] = i
	}
	scale := 1.0
	if n > sampleThreshold && sampleSize > 0 && sampleSize < n {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) {
			sources[i], sources[j] = sources[j], sources[i]
		})
		sources = sources[:sampleSize]
		scale = float64(n) / float64(sampleSize)
	}

	centrality := make([]float64, n)
	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for _, s := range sources {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0
		stack = stack[:0]
		queue = append(queue[:0], s)

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for w := range g.adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	// Undirected traversal counts each pair twice; dividing by
	// (N-1)(N-2) brings exact values into [0,1].
	norm := float64(n-1) * float64(n-2)
	for i, name := range g.nodes {
		out[name] = centrality[i] * scale / norm
	}
	return out
}

// TopN returns the n highest-scoring node names, ties broken by name for
// stable output.
func TopN(scores map[string]float64, n int) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}
