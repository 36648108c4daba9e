package engine

import (
	"github.com/storeside/cartengine/internal/cart"
	"github.com/storeside/cartengine/internal/remote"
)

// updateCartData is the authoritative reconciliation after any price or
// order call: the server's items, totals, coupon maps, gift card records,
// shipping groups, and gift-with-purchase markers overwrite local state.
// Local lines absent from the response are dropped; response lines with no
// local match are constructed with their full child tree.
func updateCartData(s *cart.State, resp *remote.OrderResponse) {
	if resp == nil {
		return
	}
	if resp.OrderID != "" {
		s.OrderID = resp.OrderID
	}
	if resp.State != "" {
		s.OrderState = mapOrderState(resp.State)
	}
	if resp.PriceListGroupID != "" {
		s.PriceListGroupID = resp.PriceListGroupID
	}

	reconcileItems(s, resp.Items)
	reconcileTotals(s, resp)
	reconcileCoupons(s, resp)

	cart.SyncGiftCards(s.GiftCards, remote.ToPaymentRecords(resp.Payments))

	if len(resp.ShippingGroups) > 0 {
		s.ShippingGroups = s.ShippingGroups[:0]
		for _, g := range resp.ShippingGroups {
			s.ShippingGroups = append(s.ShippingGroups, cart.ShippingGroup{
				ID:             g.ID,
				ShippingMethod: g.ShippingMethod,
				Price:          g.Price,
			})
		}
	}
	if resp.DynamicProperties != nil {
		s.DynamicProperties = resp.DynamicProperties
	}
}

// reconcileItems rewrites the item forest to server truth while keeping
// matched local line instances alive, so references held by the caller stay
// valid across a pricing cycle.
func reconcileItems(s *cart.State, wireItems []remote.WireItem) {
	next := make([]*cart.LineItem, 0, len(wireItems))
	markers := make([]cart.GiftMarker, 0)

	for i := range wireItems {
		incoming := wireItems[i].ToLineItem()
		markers = append(markers, incoming.GiftWithPurchaseMarkers...)

		// A commerce id is the strongest identity and also covers
		// product-with-addons lines, which SameLine keeps distinct.
		local := s.FindByCommerceItemID(incoming.CommerceItemID)
		if local == nil {
			local = s.FindItem(incoming)
		}
		if local == nil {
			next = append(next, incoming)
			continue
		}

		local.CommerceItemID = incoming.CommerceItemID
		local.Quantity = incoming.Quantity
		local.UpdatableQuantity = incoming.Quantity
		local.UnitPrice = incoming.UnitPrice
		local.RawTotalPrice = incoming.RawTotalPrice
		local.DiscountInfo = incoming.DiscountInfo
		local.DetailedPriceInfo = incoming.DetailedPriceInfo
		local.GiftWithPurchaseMarkers = incoming.GiftWithPurchaseMarkers
		local.StockState = incoming.StockState
		cart.UpdateChildPrices(incoming, local)
		next = append(next, local)
	}
	s.Items = next
	s.GiftWithPurchaseOrderMarkers = markers
}

func reconcileTotals(s *cart.State, resp *remote.OrderResponse) {
	if resp.PriceInfo != nil {
		s.Totals = toTotals(resp.PriceInfo)
	}
	if resp.SecondaryPriceInfo != nil {
		secondary := toTotals(resp.SecondaryPriceInfo)
		s.SecondaryTotals = &secondary
	} else {
		s.SecondaryTotals = nil
	}
}

func toTotals(p *remote.WirePriceInfo) cart.Totals {
	return cart.Totals{
		Subtotal:          p.SubTotal,
		Tax:               p.Tax,
		Shipping:          p.Shipping,
		ShippingDiscount:  p.ShippingDiscount,
		ShippingSurcharge: p.ShippingSurcharge,
		OrderDiscount:     p.OrderDiscount,
		Total:             p.Total,
		CurrencyCode:      p.CurrencyCode,
	}
}

// reconcileCoupons syncs the coupon list against the response's two coupon
// maps: codes in the applied map become applied, codes only claimed stay
// claimed, and codes in neither are dropped. The derived
// claimed-with-applied-promotions view is recomputed afterwards.
func reconcileCoupons(s *cart.State, resp *remote.OrderResponse) {
	if resp.OrderCouponsMap == nil && resp.ClaimedCouponMultiPromotions == nil {
		return
	}
	applied := remote.ToPromotionRecords(resp.OrderCouponsMap)
	claimed := remote.ToPromotionRecords(resp.ClaimedCouponMultiPromotions)

	union := make(map[string]cart.PromotionRecord, len(applied)+len(claimed))
	for code, rec := range claimed {
		union[code] = rec
	}
	for code, rec := range applied {
		union[code] = rec
	}

	s.Coupons = cart.PopulateCoupons(s.Coupons, union, cart.CouponClaimed)
	for _, c := range s.Coupons {
		if _, ok := applied[c.Code]; ok {
			c.Status = cart.CouponApplied
		}
	}
	s.ClaimedWithAppliedPromotions = cart.ClaimedWithAppliedPromotions(s.Coupons)
}

func mapOrderState(state string) cart.OrderState {
	switch state {
	case "PENDING_PAYMENT":
		return cart.OrderStatePendingPayment
	case "PENDING_PAYMENT_TEMPLATE":
		return cart.OrderStatePendingPaymentTemplate
	case "QUOTED":
		return cart.OrderStateQuoted
	default:
		return cart.OrderStateNormal
	}
}
