package router

import (
	"bytes"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/krazyTry/perpdex-go/shared"
)

// maxCandidatePaths caps the number of token paths enumerated per query.
const maxCandidatePaths = 256

type pairKey struct {
	a, b common.Address
}

func newPairKey(x, y common.Address) pairKey {
	if bytes.Compare(x[:], y[:]) > 0 {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// MarketsGraph is the undirected token graph of a markets snapshot: nodes are collateral
// tokens, edges are the markets that swap between them.
type MarketsGraph struct {
	adjacency map[common.Address][]common.Address
	markets   map[pairKey][]*shared.Market
}

// NewMarketsGraph builds the graph of info. Disabled markets, markets whose long and short
// token coincide and markets whose tokens are unknown to info are left out, as is every
// market in excluded.
func NewMarketsGraph(info *shared.MarketsInfo, excluded map[common.Address]bool) *MarketsGraph {
	g := &MarketsGraph{
		adjacency: make(map[common.Address][]common.Address),
		markets:   make(map[pairKey][]*shared.Market),
	}
	if info == nil {
		return g
	}
	for address, market := range info.Markets {
		if market == nil || market.IsDisabled || excluded[address] || market.IsSameCollaterals() {
			continue
		}
		if _, ok := info.Token(market.LongToken); !ok {
			continue
		}
		if _, ok := info.Token(market.ShortToken); !ok {
			continue
		}
		g.addEdge(market)
	}

	for token := range g.adjacency {
		slices.SortFunc(g.adjacency[token], func(x, y common.Address) int {
			return bytes.Compare(x[:], y[:])
		})
	}
	for key := range g.markets {
		slices.SortFunc(g.markets[key], func(x, y *shared.Market) int {
			return bytes.Compare(x.Address[:], y.Address[:])
		})
	}
	return g
}

func (g *MarketsGraph) addEdge(market *shared.Market) {
	key := newPairKey(market.LongToken, market.ShortToken)
	if _, found := g.markets[key]; !found {
		g.adjacency[market.LongToken] = append(g.adjacency[market.LongToken], market.ShortToken)
		g.adjacency[market.ShortToken] = append(g.adjacency[market.ShortToken], market.LongToken)
	}
	g.markets[key] = append(g.markets[key], market)
}

// Neighbours returns the tokens one hop away from token, in address order.
func (g *MarketsGraph) Neighbours(token common.Address) []common.Address {
	return g.adjacency[token]
}

// MarketsBetween returns the markets swapping x against y, in address order.
func (g *MarketsGraph) MarketsBetween(x, y common.Address) []*shared.Market {
	return g.markets[newPairKey(x, y)]
}

// FindTokenPaths returns every simple token path from source to dest with at most maxHops
// edges. Each path lists the tokens visited, both ends included. Paths come out in a
// depth-first order fixed by the sorted adjacency, so the result is stable.
func (g *MarketsGraph) FindTokenPaths(source, dest common.Address, maxHops int) [][]common.Address {
	if maxHops <= 0 || source == dest {
		return nil
	}
	visited := make(map[common.Address]bool)
	return g.findPath(maxHops, source, dest, visited, nil, nil)
}

func (g *MarketsGraph) findPath(
	maxHops int,
	source common.Address,
	dest common.Address,
	visited map[common.Address]bool,
	path []common.Address,
	allPaths [][]common.Address,
) [][]common.Address {
	if len(allPaths) == maxCandidatePaths {
		return allPaths
	}
	path = append(path, source)
	visited[source] = true

	if source == dest {
		allPaths = append(allPaths, slices.Clone(path))
	} else if len(path) <= maxHops {
		for _, next := range g.adjacency[source] {
			if visited[next] {
				continue
			}
			allPaths = g.findPath(maxHops, next, dest, visited, path, allPaths)
		}
	}

	visited[source] = false
	return allPaths
}
