// Package synergy models which discounts may stack on the same basket line.
// Compatibility is an explicit adjacency relation over discount ids; the
// mutation API keeps it symmetric so a pair declared on either side holds
// for both.
package synergy

import (
	"github.com/velmart/pricing-core/internal/money"
	"github.com/velmart/pricing-core/internal/rule"
)

// Cap bounds the total reduction a discount may take from one line when it
// participates in a stack.
type Cap struct {
	Value     int64
	ValueType rule.ValueType
}

// Floor returns the minimum effective price the cap allows for a line with
// the given pre-discount cost.
func (c Cap) Floor(cost int64) int64 {
	amount := c.Value
	if c.ValueType == rule.ValuePercent {
		amount = money.Percent(cost, c.Value)
	}
	return money.Max(cost-amount, 0)
}

// Graph is the symmetric compatibility relation between discounts.
type Graph struct {
	adj  map[int64]map[int64]struct{}
	caps map[int64]Cap
}

// NewGraph returns an empty relation.
func NewGraph() *Graph {
	return &Graph{
		adj:  make(map[int64]map[int64]struct{}),
		caps: make(map[int64]Cap),
	}
}

// FromDiscountConditions builds the run graph from the synergy conditions of
// the loaded rule set. conds maps discount id to its synergy condition.
func FromDiscountConditions(conds map[int64]rule.Condition) *Graph {
	g := NewGraph()
	for id, cond := range conds {
		g.Attach(id, cond.SynergyIDs)
		if cond.MaxValue > 0 {
			g.SetCap(id, Cap{Value: cond.MaxValue, ValueType: cond.MaxValueType})
		}
	}
	return g
}

// Attach declares id compatible with each partner, both directions.
func (g *Graph) Attach(id int64, partners []int64) {
	for _, partner := range partners {
		g.addPair(id, partner)
	}
}

// Detach removes id from the relation entirely, pruning every edge that
// references it so no dangling partner entries remain.
func (g *Graph) Detach(id int64) {
	for partner := range g.adj[id] {
		delete(g.adj[partner], id)
		if len(g.adj[partner]) == 0 {
			delete(g.adj, partner)
		}
	}
	delete(g.adj, id)
	delete(g.caps, id)
}

// RemovePair deletes one compatibility edge in both directions.
func (g *Graph) RemovePair(a, b int64) {
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	if len(g.adj[a]) == 0 {
		delete(g.adj, a)
	}
	if len(g.adj[b]) == 0 {
		delete(g.adj, b)
	}
}

// SetCap records the maximum-value cap carried by a synergy condition.
func (g *Graph) SetCap(id int64, cap Cap) {
	if cap.Value <= 0 {
		delete(g.caps, id)
		return
	}
	g.caps[id] = cap
}

// CapFor returns the stack cap declared for the discount, if any.
func (g *Graph) CapFor(id int64) (Cap, bool) {
	cap, ok := g.caps[id]
	return cap, ok
}

// Compatible reports whether the pair may stack on one line.
func (g *Graph) Compatible(a, b int64) bool {
	if a == b {
		return true
	}
	_, ok := g.adj[a][b]
	return ok
}

// Partners returns the ids the discount may stack with.
func (g *Graph) Partners(id int64) []int64 {
	set := g.adj[id]
	if len(set) == 0 {
		return nil
	}
	out := make([]int64, 0, len(set))
	for partner := range set {
		out = append(out, partner)
	}
	return out
}

func (g *Graph) addPair(a, b int64) {
	if a == b {
		return
	}
	if g.adj[a] == nil {
		g.adj[a] = make(map[int64]struct{})
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[int64]struct{})
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}
