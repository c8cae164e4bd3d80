// Package pricetier computes role-based price markups from merchant
// settings, resolved through a prioritized fallback chain:
// product → category → brand → merchant defaults.
package pricetier

// RoleMarkup maps a customer role to a whole-number markup percent.
type RoleMarkup map[int64]int64

// Settings is one merchant's pre-fetched markup configuration.
type Settings struct {
	MerchantID int64                 `json:"merchantId"`
	Default    RoleMarkup            `json:"default"`
	ByBrand    map[int64]RoleMarkup  `json:"byBrand,omitempty"`
	ByCategory map[int64]RoleMarkup  `json:"byCategory,omitempty"`
	ByProduct  map[int64]RoleMarkup  `json:"byProduct,omitempty"`
}

// MarkupFor resolves the markup percent for the given item coordinates and
// customer roles. Levels are probed most specific first; within a level the
// first role (caller priority order) with a configured markup wins.
func (s *Settings) MarkupFor(productID, categoryID, brandID int64, roles []int64) (int64, bool) {
	if s == nil {
		return 0, false
	}
	if m, ok := lookup(s.ByProduct, productID, roles); ok {
		return m, true
	}
	if m, ok := lookup(s.ByCategory, categoryID, roles); ok {
		return m, true
	}
	if m, ok := lookup(s.ByBrand, brandID, roles); ok {
		return m, true
	}
	return roleLookup(s.Default, roles)
}

func lookup(level map[int64]RoleMarkup, id int64, roles []int64) (int64, bool) {
	if len(level) == 0 || id == 0 {
		return 0, false
	}
	markups, ok := level[id]
	if !ok {
		return 0, false
	}
	return roleLookup(markups, roles)
}

func roleLookup(markups RoleMarkup, roles []int64) (int64, bool) {
	if len(markups) == 0 {
		return 0, false
	}
	for _, role := range roles {
		if m, ok := markups[role]; ok {
			return m, true
		}
	}
	return 0, false
}
