// Package pathresolver implements the conversion-path resolver: given an
// exchange's current market set (an undirected graph over currencies),
// find the shortest sequence of markets converting currency A into
// currency B, preferring paths through the exchange's preferred payment
// currencies when multiple shortest paths exist.
package pathresolver

import (
	"errors"
	"sort"

	"coincenter-core/internal/market"
	"coincenter-core/internal/money"
)

// ErrNoConversionPath is returned when no sequence of markets connects
// the two currencies.
var ErrNoConversionPath = errors.New("pathresolver: no conversion path")

// Step is one market traversal in a resolved path: Forward means
// base->quote, otherwise the market is traversed quote->base.
type Step struct {
	Market  market.Market
	Forward bool
}

type edge struct {
	mkt      market.Market
	neighbor money.CurrencyCode
	forward  bool
}

// Resolver answers FindPath queries against a fixed market set and
// preferred-currency list. It is pure: the same inputs always produce
// the same output.
type Resolver struct {
	adjacency map[uint64][]edge
	preferred map[uint64]int // currency symbol bits -> preference rank (lower is better)
}

// New builds a Resolver over markets, with preferred ranked in the order
// given (earlier entries are more preferred).
func New(markets []market.Market, preferred []money.CurrencyCode) *Resolver {
	r := &Resolver{
		adjacency: make(map[uint64][]edge),
		preferred: make(map[uint64]int, len(preferred)),
	}
	for i, p := range preferred {
		r.preferred[symbolKey(p)] = i
	}
	for _, m := range markets {
		base, quote := m.Base(), m.Quote()
		r.adjacency[symbolKey(base)] = append(r.adjacency[symbolKey(base)], edge{mkt: m, neighbor: quote, forward: true})
		r.adjacency[symbolKey(quote)] = append(r.adjacency[symbolKey(quote)], edge{mkt: m, neighbor: base, forward: false})
	}
	for k := range r.adjacency {
		edges := r.adjacency[k]
		sort.SliceStable(edges, func(i, j int) bool {
			return r.rank(edges[i].neighbor) < r.rank(edges[j].neighbor)
		})
		r.adjacency[k] = edges
	}
	return r
}

func symbolKey(c money.CurrencyCode) uint64 {
	return c.WithNoDecimalsPart().Code()
}

func (r *Resolver) rank(c money.CurrencyCode) int {
	if rank, ok := r.preferred[symbolKey(c)]; ok {
		return rank
	}
	return len(r.preferred)
}

type predEntry struct {
	from money.CurrencyCode
	e    edge
}

// FindPath runs a breadth-first search from `from`, expanding through
// every market touching the current currency, and returns the ordered
// list of markets to traverse to reach `to`. Ties among equally-short
// paths favor the exchange's preferred payment currencies appearing
// earlier, by visiting preferred neighbors first at each BFS step.
func (r *Resolver) FindPath(from, to money.CurrencyCode) ([]Step, error) {
	if from.Equal(to) {
		return nil, nil
	}
	visited := map[uint64]bool{symbolKey(from): true}
	pred := map[uint64]predEntry{}
	queue := []money.CurrencyCode{from}
	toKey := symbolKey(to)
	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range r.adjacency[symbolKey(cur)] {
			nk := symbolKey(e.neighbor)
			if visited[nk] {
				continue
			}
			visited[nk] = true
			pred[nk] = predEntry{from: cur, e: e}
			if nk == toKey {
				found = true
				break
			}
			queue = append(queue, e.neighbor)
		}
	}
	if !visited[toKey] {
		return nil, ErrNoConversionPath
	}
	var steps []Step
	cur := to
	for symbolKey(cur) != symbolKey(from) {
		p, ok := pred[symbolKey(cur)]
		if !ok {
			return nil, ErrNoConversionPath
		}
		steps = append(steps, Step{Market: p.e.mkt, Forward: p.e.forward})
		cur = p.from
	}
	// reverse into from->to order
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps, nil
}
