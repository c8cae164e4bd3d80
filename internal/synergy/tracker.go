package synergy

// Tracker resolves stacking during one calculation run. It remembers which
// discounts already touched each offer and admits a new one only when every
// already-applied discount is declared compatible with it. One Tracker per
// run; never shared across runs.
type Tracker struct {
	graph   *Graph
	applied map[int64][]int64
}

// NewTracker returns an empty per-run tracker over the given graph.
func NewTracker(graph *Graph) *Tracker {
	if graph == nil {
		graph = NewGraph()
	}
	return &Tracker{graph: graph, applied: make(map[int64][]int64)}
}

// CanApply reports whether discountID may be applied to the offer given what
// has already been applied to it this run.
func (t *Tracker) CanApply(offerID, discountID int64) bool {
	for _, appliedID := range t.applied[offerID] {
		if !t.graph.Compatible(discountID, appliedID) {
			return false
		}
	}
	return true
}

// Record notes that discountID was applied to the offer.
func (t *Tracker) Record(offerID, discountID int64) {
	for _, appliedID := range t.applied[offerID] {
		if appliedID == discountID {
			return
		}
	}
	t.applied[offerID] = append(t.applied[offerID], discountID)
}

// AppliedTo returns the discounts applied to the offer so far, in order.
func (t *Tracker) AppliedTo(offerID int64) []int64 {
	return t.applied[offerID]
}

// CapFloor returns the minimum price the discount's stack cap permits for a
// line with the given cost, or 0 when no cap is declared.
func (t *Tracker) CapFloor(discountID, cost int64) int64 {
	cap, ok := t.graph.CapFor(discountID)
	if !ok {
		return 0
	}
	return cap.Floor(cost)
}
