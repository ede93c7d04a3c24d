package matching

import (
	"fmt"

	"github.com/shivam123-dev/cowSolver/internal/domain"
)

// orderEdge models one order as a directed edge in the token graph: an order
// selling X for Y is an edge X -> Y. Edges index into the order slice the graph
// was built from; the arena never owns orders.
type orderEdge struct {
	idx  int
	sell domain.Token
	buy  domain.Token
}

// TokenGraph is an arena of order edges indexed by sell token. It backs ring
// match detection and is rebuilt per solve call from the order snapshot.
type TokenGraph struct {
	edges  []orderEdge
	bySell map[string][]int
}

// NewTokenGraph builds the edge arena for a batch of orders.
func NewTokenGraph(orders []domain.Order) *TokenGraph {
	g := &TokenGraph{
		edges:  make([]orderEdge, 0, len(orders)),
		bySell: make(map[string][]int),
	}
	for i, o := range orders {
		key := tokenKey(o.SellToken)
		g.bySell[key] = append(g.bySell[key], len(g.edges))
		g.edges = append(g.edges, orderEdge{idx: i, sell: o.SellToken, buy: o.BuyToken})
	}
	return g
}

// FindCycles enumerates simple order cycles of length 3 up to maxLen edges.
// Each cycle is returned once, canonicalized to start at its lowest edge index,
// and cycles are emitted in ascending order of that start index so detection is
// deterministic.
func (g *TokenGraph) FindCycles(maxLen int) [][]int {
	if maxLen < 3 || len(g.edges) < 3 {
		return nil
	}

	var cycles [][]int
	path := make([]int, 0, maxLen)
	used := make([]bool, len(g.edges))

	var walk func(start, current int)
	walk = func(start, current int) {
		cur := g.edges[current]
		// Close the ring when the chain returns to the start token.
		if len(path) >= 3 && cur.buy.Equal(g.edges[start].sell) {
			cycle := make([]int, len(path))
			for i, e := range path {
				cycle[i] = g.edges[e].idx
			}
			cycles = append(cycles, cycle)
			return
		}
		if len(path) == maxLen {
			return
		}
		for _, next := range g.bySell[tokenKey(cur.buy)] {
			// Only extend with higher indices than the start edge so each
			// cycle is found exactly once, at its canonical rotation.
			if next <= start || used[next] {
				continue
			}
			used[next] = true
			path = append(path, next)
			walk(start, next)
			path = path[:len(path)-1]
			used[next] = false
		}
	}

	for start := range g.edges {
		used[start] = true
		path = append(path, start)
		walk(start, start)
		path = path[:0]
		used[start] = false
	}
	return cycles
}

func tokenKey(t domain.Token) string {
	return fmt.Sprintf("%d:%s", t.ChainID, t.Address.Hex())
}
