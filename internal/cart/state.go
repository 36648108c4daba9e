package cart

import (
	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of the order backing the cart.
type OrderState string

const (
	OrderStateNormal                 OrderState = "normal"
	OrderStateQuoted                 OrderState = "quoted"
	OrderStatePendingPayment         OrderState = "pending_payment"
	OrderStatePendingPaymentTemplate OrderState = "pending_payment_template"
)

// SuppressesMutations reports whether the order state suspends stock checks,
// invalid-item removal, and re-pricing side effects. In-flight checkout
// states must not have the cart rewritten underneath them.
func (s OrderState) SuppressesMutations() bool {
	return s == OrderStatePendingPayment || s == OrderStatePendingPaymentTemplate
}

// CombinePolicy controls whether identical product/SKU pairs merge into one
// line or stay distinct.
type CombinePolicy string

const (
	CombineYes CombinePolicy = "yes"
	CombineNo  CombinePolicy = "no"
)

// Totals are the aggregate monetary figures for one currency.
type Totals struct {
	Subtotal          decimal.Decimal
	Tax               decimal.Decimal
	Shipping          decimal.Decimal
	ShippingDiscount  decimal.Decimal
	ShippingSurcharge decimal.Decimal
	OrderDiscount     decimal.Decimal
	Total             decimal.Decimal
	CurrencyCode      string
}

// Zeroed resets every monetary field to zero, keeping the currency. Used when
// a failed call forces a reload and the figures are pending recomputation.
func (t *Totals) Zeroed() Totals {
	return Totals{CurrencyCode: t.CurrencyCode}
}

// ShippingGroup is one shipping group returned by pricing, kept for the
// shipping-options flow.
type ShippingGroup struct {
	ID             string
	ShippingMethod string
	Price          decimal.Decimal
}

// State is the aggregate cart: the top-level item forest, coupons, gift
// cards, totals, and the identity of the backing order. One State exists per
// browsing session; it is owned by the engine and mutated only under the
// engine's lock.
type State struct {
	Items             []*LineItem
	Coupons           []*Coupon
	GiftCards         []*GiftCard
	DynamicProperties map[string]any

	// ClaimedWithAppliedPromotions is the derived coupon view, recomputed
	// after every coupon sync.
	ClaimedWithAppliedPromotions []*Coupon

	GiftWithPurchaseOrderMarkers []GiftMarker

	Totals           Totals
	SecondaryTotals  *Totals
	PriceListGroupID string

	ShippingGroups []ShippingGroup

	OrderID    string
	OrderState OrderState

	Dirty                bool
	SubmissionInProgress bool

	Combine CombinePolicy
}

// NewState creates an empty cart state under the given combine policy.
func NewState(combine CombinePolicy) *State {
	return &State{
		OrderState: OrderStateNormal,
		Combine:    combine,
	}
}

// FindItem returns the first top-level item that is the same line as probe
// under the identity rule, or nil.
func (s *State) FindItem(probe *LineItem) *LineItem {
	for _, item := range s.Items {
		if SameLine(item, probe) {
			return item
		}
	}
	return nil
}

// FindByCommerceItemID returns the top-level item with the given commerce
// item id, or nil. Children are not searched.
func (s *State) FindByCommerceItemID(id string) *LineItem {
	if id == "" {
		return nil
	}
	for _, item := range s.Items {
		if item.CommerceItemID == id {
			return item
		}
	}
	return nil
}

// RemoveItem drops the top-level item with the given commerce item id,
// reporting whether it was present.
func (s *State) RemoveItem(commerceItemID string) bool {
	for i, item := range s.Items {
		if item.CommerceItemID == commerceItemID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			return true
		}
	}
	return false
}

// NumberOfItems is the total committed quantity across top-level lines.
func (s *State) NumberOfItems() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no items.
func (s *State) Empty() bool {
	return len(s.Items) == 0
}
