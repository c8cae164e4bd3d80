package condition

import "github.com/velmart/pricing-core/internal/rule"

// Store remembers which conditions fired during a single calculation run so
// later stages (per-item merchant filtering, bonus amount computation) can
// read them back. One Store is created per run and discarded with it; entries
// are keyed by rule id plus stable condition id, never by object identity.
type Store struct {
	merchants     map[int64][]rule.Condition
	productCounts map[int64]rule.Condition
}

// NewStore returns an empty run-scoped store.
func NewStore() *Store {
	return &Store{
		merchants:     make(map[int64][]rule.Condition),
		productCounts: make(map[int64]rule.Condition),
	}
}

// RecordMerchant notes a satisfied merchant condition for the given rule.
func (s *Store) RecordMerchant(ruleID int64, cond rule.Condition) {
	if s == nil {
		return
	}
	for _, existing := range s.merchants[ruleID] {
		if existing.ID == cond.ID {
			return
		}
	}
	s.merchants[ruleID] = append(s.merchants[ruleID], cond)
}

// MerchantConditions returns the merchant conditions recorded for a rule.
func (s *Store) MerchantConditions(ruleID int64) []rule.Condition {
	if s == nil {
		return nil
	}
	return s.merchants[ruleID]
}

// RecordProductCount keeps the most restrictive satisfied distinct-product
// threshold per rule: the condition with the largest MinCount wins.
func (s *Store) RecordProductCount(ruleID int64, cond rule.Condition) {
	if s == nil {
		return
	}
	if existing, ok := s.productCounts[ruleID]; ok && existing.MinCount >= cond.MinCount {
		return
	}
	s.productCounts[ruleID] = cond
}

// ProductCountCondition returns the recorded threshold condition for a rule.
func (s *Store) ProductCountCondition(ruleID int64) (rule.Condition, bool) {
	if s == nil {
		return rule.Condition{}, false
	}
	cond, ok := s.productCounts[ruleID]
	return cond, ok
}
