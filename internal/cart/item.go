// Package cart holds the in-memory shopping cart data model: the recursive
// line-item tree, the aggregate cart state, the mutation event log, and the
// coupon and gift card collections.
//
// Everything in this package is plain data plus pure(ish) operations over it.
// Network flows, dirty tracking, and reconciliation against server responses
// live in the engine package.
package cart

import (
	"github.com/shopspring/decimal"
)

// ItemKind classifies a line item at construction time. The kind decides
// which identity-matching rule applies when lines are merged or compared.
type ItemKind string

const (
	// KindSimple is a plain product/SKU pair with no configuration.
	KindSimple ItemKind = "simple"
	// KindConfigurable is a multi-component (CPQ-style) product carrying a
	// configurator id and/or child items.
	KindConfigurable ItemKind = "configurable"
	// KindProductWithAddons is a product whose shopper selected add-ons.
	// Such lines are never combined, even for identical product/SKU pairs.
	KindProductWithAddons ItemKind = "product_with_addons"
)

// StockState mirrors the availability status returned by the stock service.
type StockState string

const (
	StockInStock    StockState = "IN_STOCK"
	StockOutOfStock StockState = "OUT_OF_STOCK"
	StockPreorder   StockState = "PREORDERABLE"
	StockBackorder  StockState = "BACKORDERABLE"
	StockUnknown    StockState = ""
)

// DiscountInfo describes one promotion applied to a line.
type DiscountInfo struct {
	PromotionID string
	Description string
	Amount      decimal.Decimal
}

// DetailedPriceInfo is one per-quantity-range price breakdown entry for a
// line, as computed by the pricing service.
type DetailedPriceInfo struct {
	Amount            decimal.Decimal
	Quantity          int
	DetailedUnitPrice decimal.Decimal
	CurrencyCode      string
	DiscountInfo      []DiscountInfo
}

// GiftMarker marks a line as a gift-with-purchase placeholder or selection.
type GiftMarker struct {
	GiftWithPurchaseID string
	PromotionID        string
	AutoRemove         bool
}

// LineItem is one purchasable entry in the cart. ChildItems form an
// exclusively owned subtree: a child is never referenced from two parents.
type LineItem struct {
	ProductID      string
	CatalogRefID   string
	CommerceItemID string
	ConfiguratorID string
	Kind           ItemKind

	DisplayName string

	// Quantity is the committed quantity; UpdatableQuantity is the proposed
	// quantity pending validation by the next pricing call.
	Quantity          int
	UpdatableQuantity int

	UnitPrice     decimal.Decimal
	RawTotalPrice decimal.Decimal

	// ExternalPrice overrides catalog pricing for externally-priced items.
	// It applies to at most ExternalPriceQuantity units.
	ExternalPrice         decimal.Decimal
	ExternalPriceQuantity int

	DiscountInfo      []DiscountInfo
	DetailedPriceInfo []DetailedPriceInfo

	ChildItems []*LineItem

	// IsAddon marks a child line attached as a selectable add-on of its
	// parent, as opposed to a fixed configuration sub-item. Set at
	// construction; the two are removed under different policies.
	IsAddon bool

	GiftWithPurchaseMarkers []GiftMarker
	DynamicProperties       map[string]any

	// Invalid soft-deletes the line pending removal after the next
	// reconciliation pass.
	Invalid    bool
	StockState StockState
}

// ClassifyKind assigns the item kind at construction time.
func ClassifyKind(configuratorID string, childCount int, hasSelectedAddons bool) ItemKind {
	switch {
	case hasSelectedAddons:
		return KindProductWithAddons
	case configuratorID != "" || childCount > 0:
		return KindConfigurable
	default:
		return KindSimple
	}
}

// Configurable reports whether the line uses configurable identity matching.
func (li *LineItem) Configurable() bool {
	return li.Kind == KindConfigurable
}

// Key is the identity key of a line item.
type Key struct {
	ProductID      string
	CatalogRefID   string
	CommerceItemID string
}

// Key returns the item's identity key.
func (li *LineItem) Key() Key {
	return Key{
		ProductID:      li.ProductID,
		CatalogRefID:   li.CatalogRefID,
		CommerceItemID: li.CommerceItemID,
	}
}

// SameLine reports whether a and b are the same cart line under the
// identity-matching rule:
//
//   - product and catalog ref must match;
//   - product-with-addons lines never match anything, each add creates a new
//     line because shopper-supplied inputs may differ per purchase;
//   - non-configurable lines match when both commerce item ids are empty and
//     neither has children (not yet persisted), or when both ids are set and
//     equal;
//   - configurable lines match on commerce item id, falling back to the
//     configurator id for a reconfiguration that has not been persisted yet.
func SameLine(a, b *LineItem) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind == KindProductWithAddons || b.Kind == KindProductWithAddons {
		return false
	}
	if a.ProductID != b.ProductID || a.CatalogRefID != b.CatalogRefID {
		return false
	}
	if a.Configurable() != b.Configurable() {
		return false
	}
	if a.Configurable() {
		if a.CommerceItemID != "" && b.CommerceItemID != "" {
			return a.CommerceItemID == b.CommerceItemID
		}
		return a.ConfiguratorID != "" && a.ConfiguratorID == b.ConfiguratorID
	}
	if a.CommerceItemID == "" && b.CommerceItemID == "" {
		return len(a.ChildItems) == 0 && len(b.ChildItems) == 0
	}
	return a.CommerceItemID != "" && a.CommerceItemID == b.CommerceItemID
}

// Clone deep-copies the line item and its entire child tree, preserving the
// forest invariant when server data is merged into a new line.
func (li *LineItem) Clone() *LineItem {
	if li == nil {
		return nil
	}
	cp := *li
	cp.DiscountInfo = append([]DiscountInfo(nil), li.DiscountInfo...)
	cp.DetailedPriceInfo = cloneDetails(li.DetailedPriceInfo)
	cp.GiftWithPurchaseMarkers = append([]GiftMarker(nil), li.GiftWithPurchaseMarkers...)
	if li.DynamicProperties != nil {
		cp.DynamicProperties = make(map[string]any, len(li.DynamicProperties))
		for k, v := range li.DynamicProperties {
			cp.DynamicProperties[k] = v
		}
	}
	if len(li.ChildItems) > 0 {
		cp.ChildItems = make([]*LineItem, len(li.ChildItems))
		for i, child := range li.ChildItems {
			cp.ChildItems[i] = child.Clone()
		}
	} else {
		cp.ChildItems = nil
	}
	return &cp
}

func cloneDetails(details []DetailedPriceInfo) []DetailedPriceInfo {
	if details == nil {
		return nil
	}
	out := make([]DetailedPriceInfo, len(details))
	for i, d := range details {
		out[i] = d
		out[i].DiscountInfo = append([]DiscountInfo(nil), d.DiscountInfo...)
	}
	return out
}
