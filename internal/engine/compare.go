package engine

import (
	"github.com/storeside/cartengine/internal/cart"
)

// QuantityFix is one quantity drift detected by Diff: the snapshot's
// quantity for a line that otherwise matches.
type QuantityFix struct {
	CommerceItemID string
	ProductID      string
	CatalogRefID   string
	Quantity       int
}

// Patch is the set of in-place corrections Diff found. It is applied
// separately via ApplyPatch; comparison itself never mutates.
type Patch struct {
	QuantityFixes []QuantityFix
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.QuantityFixes) == 0
}

// Diff structurally compares the in-memory lines against snapshot lines.
// The trees are equal when they have the same length and every snapshot item
// matches a local item under the identity rule. Trivial quantity drift does
// not break equality; it is returned as a Patch for the caller to apply. A
// false result means the snapshot is stale and must be reloaded instead of
// trusted.
func Diff(local, snap []*cart.LineItem) (Patch, bool) {
	if len(local) != len(snap) {
		return Patch{}, false
	}
	var patch Patch
	for _, s := range snap {
		matched := false
		for _, l := range local {
			if !cart.SameLine(l, s) {
				continue
			}
			matched = true
			if l.Quantity != s.Quantity {
				patch.QuantityFixes = append(patch.QuantityFixes, QuantityFix{
					CommerceItemID: l.CommerceItemID,
					ProductID:      l.ProductID,
					CatalogRefID:   l.CatalogRefID,
					Quantity:       s.Quantity,
				})
			}
			break
		}
		if !matched {
			return Patch{}, false
		}
	}
	return patch, true
}

// ApplyPatch writes the quantity fixes onto the matching lines.
func ApplyPatch(items []*cart.LineItem, patch Patch) {
	for _, fix := range patch.QuantityFixes {
		for _, item := range items {
			if fix.CommerceItemID != "" {
				if item.CommerceItemID != fix.CommerceItemID {
					continue
				}
			} else if item.ProductID != fix.ProductID || item.CatalogRefID != fix.CatalogRefID {
				continue
			}
			item.Quantity = fix.Quantity
			item.UpdatableQuantity = fix.Quantity
			break
		}
	}
}

// EqualItemsAndQuantity is the strict comparison used as a merge guard:
// equal length, every item matched by identity, quantities equal, and for
// configurable items the child trees must agree recursively. Unlike Diff it
// treats any quantity difference as inequality and exits on the first
// mismatch. The two functions intentionally keep separate semantics; their
// call sites need different answers for configurable items.
func EqualItemsAndQuantity(a, b []*cart.LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		match := false
		for _, y := range b {
			if !cart.SameLine(x, y) {
				continue
			}
			if x.Quantity != y.Quantity {
				return false
			}
			if x.Configurable() && !EqualItemsAndQuantity(x.ChildItems, y.ChildItems) {
				return false
			}
			match = true
			break
		}
		if !match {
			return false
		}
	}
	return true
}
