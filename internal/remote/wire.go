package remote

import (
	"github.com/shopspring/decimal"

	"github.com/storeside/cartengine/internal/cart"
)

// WireItem is a line item as carried on the wire, in requests and responses.
// Child trees nest recursively.
type WireItem struct {
	ProductID             string              `json:"productId"`
	CatalogRefID          string              `json:"catalogRefId"`
	CommerceItemID        string              `json:"commerceItemId,omitempty"`
	ConfiguratorID        string              `json:"configuratorId,omitempty"`
	DisplayName           string              `json:"displayName,omitempty"`
	Quantity              int                 `json:"quantity"`
	UpdatableQuantity     int                 `json:"updatableQuantity,omitempty"`
	UnitPrice             decimal.Decimal     `json:"unitPrice"`
	RawTotalPrice         decimal.Decimal     `json:"rawTotalPrice"`
	ExternalPrice         *decimal.Decimal    `json:"externalPrice,omitempty"`
	ExternalPriceQuantity int                 `json:"externalPriceQuantity,omitempty"`
	DiscountInfo          []WireDiscount      `json:"discountInfo,omitempty"`
	DetailedItemPriceInfo []WirePriceDetail   `json:"detailedItemPriceInfo,omitempty"`
	ChildItems            []WireItem          `json:"childItems,omitempty"`
	AddOnItem             bool                `json:"addOnItem,omitempty"`
	GiftWithPurchaseInfo  []WireGiftMarker    `json:"giftWithPurchaseCommerceItemMarkers,omitempty"`
	DynamicProperties     map[string]any      `json:"dynamicProperties,omitempty"`
	StockState            string              `json:"stockState,omitempty"`
}

// WireDiscount is one applied promotion on a line.
type WireDiscount struct {
	PromotionID string          `json:"promotionId"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// WirePriceDetail is one detailed price breakdown entry on a line.
type WirePriceDetail struct {
	Amount            decimal.Decimal `json:"amount"`
	Quantity          int             `json:"quantity"`
	DetailedUnitPrice decimal.Decimal `json:"detailedUnitPrice"`
	CurrencyCode      string          `json:"currencyCode,omitempty"`
	DiscountInfo      []WireDiscount  `json:"discountInfo,omitempty"`
}

// WireGiftMarker marks a line as gift-with-purchase on the wire.
type WireGiftMarker struct {
	GiftWithPurchaseID string `json:"giftWithPurchaseId"`
	PromotionID        string `json:"promotionId,omitempty"`
	AutoRemove         bool   `json:"autoRemove,omitempty"`
}

// WirePromotionRecord is the per-coupon entry of a response coupon map.
type WirePromotionRecord struct {
	Description     string          `json:"promotionDesc"`
	Level           string          `json:"promotionLevel"`
	PromotionID     string          `json:"promotionId"`
	TotalAdjustment decimal.Decimal `json:"totalAdjustment"`
	Promotions      []WirePromotion `json:"promotions,omitempty"`
}

// WirePromotion is one nested promotion of a multi-promotion coupon.
type WirePromotion struct {
	PromotionID string          `json:"promotionId"`
	Description string          `json:"promotionDesc"`
	Applied     bool            `json:"applied"`
	Adjustment  decimal.Decimal `json:"totalAdjustment"`
}

// WirePriceInfo carries the order-level totals for one currency.
type WirePriceInfo struct {
	SubTotal          decimal.Decimal `json:"subTotal"`
	Tax               decimal.Decimal `json:"tax"`
	Shipping          decimal.Decimal `json:"shipping"`
	ShippingDiscount  decimal.Decimal `json:"shippingDiscount"`
	ShippingSurcharge decimal.Decimal `json:"shippingSurchargeValue"`
	OrderDiscount     decimal.Decimal `json:"orderDiscount"`
	Total             decimal.Decimal `json:"total"`
	CurrencyCode      string          `json:"currencyCode"`
}

// WireShippingGroup is one shipping group of a priced order.
type WireShippingGroup struct {
	ID             string          `json:"shippingGroupId"`
	ShippingMethod string          `json:"shippingMethod"`
	Price          decimal.Decimal `json:"priceInfo,omitempty"`
}

// WirePayment is one payment group entry; gift cards appear here.
type WirePayment struct {
	PaymentMethod string          `json:"paymentMethod"`
	MaskedNumber  string          `json:"maskedCardNumber,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// OrderResponse is the authoritative order/pricing payload the engine
// reconciles against.
type OrderResponse struct {
	OrderID                      string                     `json:"orderId,omitempty"`
	State                        string                     `json:"state,omitempty"`
	Items                        []WireItem                 `json:"items"`
	PriceInfo                    *WirePriceInfo             `json:"priceInfo,omitempty"`
	SecondaryPriceInfo           *WirePriceInfo             `json:"secondaryCurrencyPriceInfo,omitempty"`
	PriceListGroupID             string                     `json:"priceListGroupId,omitempty"`
	OrderCouponsMap              map[string]WirePromotionRecord `json:"orderCouponsMap,omitempty"`
	ClaimedCouponMultiPromotions map[string]WirePromotionRecord `json:"claimedCouponMultiPromotions,omitempty"`
	ShippingGroups               []WireShippingGroup        `json:"shippingGroups,omitempty"`
	Payments                     []WirePayment              `json:"payments,omitempty"`
	DynamicProperties            map[string]any             `json:"dynamicProperties,omitempty"`
}

// OrderRequest is the body of a create-order, update-order, or price call.
type OrderRequest struct {
	Items             []WireItem     `json:"items"`
	Coupons           []string       `json:"coupons,omitempty"`
	GiftCards         []WireGiftCard `json:"giftCards,omitempty"`
	ProfileID         string         `json:"profileId,omitempty"`
	PriceListGroupID  string         `json:"priceListGroupId,omitempty"`
	ShippingMethod    string         `json:"shippingMethod,omitempty"`
	DynamicProperties map[string]any `json:"dynamicProperties,omitempty"`
}

// WireGiftCard is a gift card as sent on a pricing request.
type WireGiftCard struct {
	Number string `json:"giftCardNumber"`
	Pin    string `json:"giftCardPin,omitempty"`
}

// ShippingMethodsResponse lists the shipping options for the current cart.
type ShippingMethodsResponse struct {
	Methods []ShippingMethod `json:"items"`
}

// ShippingMethod is one available shipping option.
type ShippingMethod struct {
	ID    string          `json:"repositoryId"`
	Name  string          `json:"displayName"`
	Price decimal.Decimal `json:"shippingCost"`
}

// ToLineItem converts a wire item into a domain line item, recursively
// constructing the child tree and assigning the item kind.
func (w *WireItem) ToLineItem() *cart.LineItem {
	item := &cart.LineItem{
		ProductID:             w.ProductID,
		CatalogRefID:          w.CatalogRefID,
		CommerceItemID:        w.CommerceItemID,
		ConfiguratorID:        w.ConfiguratorID,
		DisplayName:           w.DisplayName,
		Quantity:              w.Quantity,
		UpdatableQuantity:     w.UpdatableQuantity,
		UnitPrice:             w.UnitPrice,
		RawTotalPrice:         w.RawTotalPrice,
		ExternalPriceQuantity: w.ExternalPriceQuantity,
		IsAddon:               w.AddOnItem,
		DynamicProperties:     w.DynamicProperties,
		StockState:            cart.StockState(w.StockState),
	}
	if item.UpdatableQuantity == 0 {
		item.UpdatableQuantity = item.Quantity
	}
	if w.ExternalPrice != nil {
		item.ExternalPrice = *w.ExternalPrice
	}
	for _, d := range w.DiscountInfo {
		item.DiscountInfo = append(item.DiscountInfo, cart.DiscountInfo{
			PromotionID: d.PromotionID,
			Description: d.Description,
			Amount:      d.Amount,
		})
	}
	for _, d := range w.DetailedItemPriceInfo {
		item.DetailedPriceInfo = append(item.DetailedPriceInfo, toPriceDetail(d))
	}
	for _, m := range w.GiftWithPurchaseInfo {
		item.GiftWithPurchaseMarkers = append(item.GiftWithPurchaseMarkers, cart.GiftMarker{
			GiftWithPurchaseID: m.GiftWithPurchaseID,
			PromotionID:        m.PromotionID,
			AutoRemove:         m.AutoRemove,
		})
	}
	hasAddonChild := false
	for _, c := range w.ChildItems {
		child := c.ToLineItem()
		if child.IsAddon {
			hasAddonChild = true
		}
		item.ChildItems = append(item.ChildItems, child)
	}
	item.Kind = cart.ClassifyKind(w.ConfiguratorID, len(item.ChildItems), hasAddonChild)
	return item
}

func toPriceDetail(d WirePriceDetail) cart.DetailedPriceInfo {
	detail := cart.DetailedPriceInfo{
		Amount:            d.Amount,
		Quantity:          d.Quantity,
		DetailedUnitPrice: d.DetailedUnitPrice,
		CurrencyCode:      d.CurrencyCode,
	}
	for _, disc := range d.DiscountInfo {
		detail.DiscountInfo = append(detail.DiscountInfo, cart.DiscountInfo{
			PromotionID: disc.PromotionID,
			Description: disc.Description,
			Amount:      disc.Amount,
		})
	}
	return detail
}

// FromLineItem converts a domain line item into its wire form, recursively.
func FromLineItem(item *cart.LineItem) WireItem {
	w := WireItem{
		ProductID:             item.ProductID,
		CatalogRefID:          item.CatalogRefID,
		CommerceItemID:        item.CommerceItemID,
		ConfiguratorID:        item.ConfiguratorID,
		DisplayName:           item.DisplayName,
		Quantity:              item.UpdatableQuantity,
		UnitPrice:             item.UnitPrice,
		RawTotalPrice:         item.RawTotalPrice,
		ExternalPriceQuantity: item.ExternalPriceQuantity,
		AddOnItem:             item.IsAddon,
		DynamicProperties:     item.DynamicProperties,
	}
	if w.Quantity == 0 {
		w.Quantity = item.Quantity
	}
	if !item.ExternalPrice.IsZero() {
		price := item.ExternalPrice
		w.ExternalPrice = &price
	}
	for _, child := range item.ChildItems {
		w.ChildItems = append(w.ChildItems, FromLineItem(child))
	}
	return w
}

// ToPromotionRecords converts a wire coupon map into the domain form.
func ToPromotionRecords(m map[string]WirePromotionRecord) map[string]cart.PromotionRecord {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]cart.PromotionRecord, len(m))
	for code, rec := range m {
		domain := cart.PromotionRecord{
			Description:     rec.Description,
			Level:           rec.Level,
			PromotionID:     rec.PromotionID,
			TotalAdjustment: rec.TotalAdjustment,
		}
		for _, p := range rec.Promotions {
			domain.Promotions = append(domain.Promotions, cart.Promotion{
				ID:          p.PromotionID,
				Description: p.Description,
				Applied:     p.Applied,
				Adjustment:  p.Adjustment,
			})
		}
		out[code] = domain
	}
	return out
}

// ToPaymentRecords extracts the gift card payment records of a response.
func ToPaymentRecords(payments []WirePayment) []cart.PaymentRecord {
	var out []cart.PaymentRecord
	for _, p := range payments {
		out = append(out, cart.PaymentRecord{
			MaskedNumber:  p.MaskedNumber,
			Amount:        p.Amount,
			Balance:       p.Balance,
			PaymentMethod: p.PaymentMethod,
		})
	}
	return out
}
