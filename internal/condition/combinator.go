package condition

import "github.com/velmart/pricing-core/internal/rule"

// BoolFunc is a deferred checker evaluation. Every checker in a group is
// constructed up front; the operators may short-circuit evaluation.
type BoolFunc func() bool

// And is true iff all checkers are true, stopping at the first false.
// An empty list passes vacuously.
func And(fns []BoolFunc) bool {
	for _, fn := range fns {
		if !fn() {
			return false
		}
	}
	return true
}

// Or is true iff any checker is true, stopping at the first true.
// An empty list passes vacuously.
func Or(fns []BoolFunc) bool {
	if len(fns) == 0 {
		return true
	}
	for _, fn := range fns {
		if fn() {
			return true
		}
	}
	return false
}

// AndNot is true iff the first checker is true and none of the rest are.
func AndNot(fns []BoolFunc) bool {
	if len(fns) == 0 {
		return true
	}
	if !fns[0]() {
		return false
	}
	for _, fn := range fns[1:] {
		if fn() {
			return false
		}
	}
	return true
}

// OrNot is true iff the first checker is true or at least one checker is
// false. A false first checker is itself the false element, so any non-empty
// list passes; the first checker still runs for its side effects on the run
// store, the rest are never evaluated.
func OrNot(fns []BoolFunc) bool {
	if len(fns) == 0 {
		return true
	}
	fns[0]()
	return true
}

// Evaluate dispatches to the operator named by op. Unknown operators fail closed.
func Evaluate(op rule.Op, fns []BoolFunc) bool {
	switch op {
	case rule.OpAnd:
		return And(fns)
	case rule.OpOr:
		return Or(fns)
	case rule.OpAndNot:
		return AndNot(fns)
	case rule.OpOrNot:
		return OrNot(fns)
	default:
		return false
	}
}

// GenericSkip lists the condition types excluded from the generic group pass:
// they need cross-cutting state and are re-checked by specialized code paths.
var GenericSkip = map[rule.ConditionType]bool{
	rule.CondDeliveryMethod:         true,
	rule.CondDifferentProductsCount: true,
	rule.CondDiscountSynergy:        true,
}

// EvalGroup evaluates one condition group through its operator. Conditions in
// skip are left out of the list entirely; a group emptied this way passes.
func EvalGroup(g rule.Group, env *Env, skip map[rule.ConditionType]bool) bool {
	fns := make([]BoolFunc, 0, len(g.Conditions))
	for _, cond := range g.Conditions {
		if skip[cond.Type] {
			continue
		}
		c := cond
		fns = append(fns, func() bool { return Check(c, env) })
	}
	if len(fns) == 0 {
		return true
	}
	return Evaluate(g.Logic, fns)
}

// EvalGroups combines group results through the rule's top-level operator,
// reusing the same four combinators at both levels.
func EvalGroups(groups []rule.Group, op rule.Op, env *Env, skip map[rule.ConditionType]bool) bool {
	if len(groups) == 0 {
		return true
	}
	fns := make([]BoolFunc, 0, len(groups))
	for _, g := range groups {
		group := g
		fns = append(fns, func() bool { return EvalGroup(group, env, skip) })
	}
	return Evaluate(op, fns)
}
