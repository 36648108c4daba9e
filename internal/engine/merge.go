package engine

import (
	"github.com/storeside/cartengine/internal/cart"
)

// MergeItems folds incoming server or snapshot items into the cart state.
// For each incoming item the identity rule locates a matching existing line:
// a match on commerce item id means both sides describe the same persisted
// line, so quantity is overwritten (merging the same snapshot twice is a
// no-op); a match without one is a not-yet-persisted duplicate add and the
// quantities accumulate. Price, discount, and detail fields are always
// overwritten from the incoming side. Unmatched items are cloned in with
// their full child tree.
func MergeItems(s *cart.State, incoming []*cart.LineItem) {
	for _, in := range incoming {
		existing := findMergeTarget(s, in)
		if existing == nil {
			s.Items = append(s.Items, in.Clone())
			continue
		}
		if in.CommerceItemID != "" && in.CommerceItemID == existing.CommerceItemID {
			existing.Quantity = in.Quantity
		} else {
			existing.Quantity += in.Quantity
		}
		existing.UpdatableQuantity = existing.Quantity
		overwritePricing(existing, in)
	}
}

func findMergeTarget(s *cart.State, in *cart.LineItem) *cart.LineItem {
	for _, item := range s.Items {
		if !cart.SameLine(item, in) {
			continue
		}
		// Under combine=no distinct lines for the same product/SKU pair are
		// legal; only an exact persisted-line match merges.
		if s.Combine == cart.CombineNo &&
			(in.CommerceItemID == "" || in.CommerceItemID != item.CommerceItemID) {
			continue
		}
		return item
	}
	return nil
}

// overwritePricing copies the server-computed price fields onto dst and
// refreshes the child tree's prices level by level.
func overwritePricing(dst, src *cart.LineItem) {
	dst.UnitPrice = src.UnitPrice
	dst.RawTotalPrice = src.RawTotalPrice
	dst.DiscountInfo = append([]cart.DiscountInfo(nil), src.DiscountInfo...)
	dst.DetailedPriceInfo = append([]cart.DetailedPriceInfo(nil), src.DetailedPriceInfo...)
	if dst.CommerceItemID == "" {
		dst.CommerceItemID = src.CommerceItemID
	}
	cart.UpdateChildPrices(src, dst)
}
