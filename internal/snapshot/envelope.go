package snapshot

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/storeside/cartengine/internal/cart"
)

// Envelope is the persisted cart snapshot. Field names in the serialized
// form are stable: an envelope written by an older session must keep
// decoding, so additions are append-only and unknown keys are skipped.
type Envelope struct {
	Items                        []*cart.LineItem
	Coupons                      []*cart.Coupon
	GiftWithPurchaseOrderMarkers []cart.GiftMarker
	DynamicProperties            map[string]any
	LineAttributes               []string
	CartPriceListGroupID         string
	NumberOfItems                int
	Totals                       cart.Totals
	RecurringChargeAmount        decimal.Decimal
	RecurringChargeCurrencyCode  string
}

// FromState captures the persistable slice of a cart state.
func FromState(s *cart.State, lineAttributes []string) *Envelope {
	env := &Envelope{
		Items:                make([]*cart.LineItem, 0, len(s.Items)),
		Coupons:              s.Coupons,
		DynamicProperties:    s.DynamicProperties,
		LineAttributes:       lineAttributes,
		CartPriceListGroupID: s.PriceListGroupID,
		NumberOfItems:        s.NumberOfItems(),
		Totals:               s.Totals,
	}
	for _, item := range s.Items {
		env.Items = append(env.Items, item.Clone())
	}
	return env
}

// Encode serializes the envelope to its JSON form.
func (env *Envelope) Encode() string {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, item := range env.Items {
					encodeItem(e, item)
				}
			})
		})
		e.Field("coupons", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range env.Coupons {
					encodeCoupon(e, c)
				}
			})
		})
		e.Field("giftWithPurchaseOrderMarkers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, m := range env.GiftWithPurchaseOrderMarkers {
					encodeMarker(e, m)
				}
			})
		})
		e.Field("dynamicProperties", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for name, value := range env.DynamicProperties {
					e.Field(name, func(e *jx.Encoder) { encodeAny(e, value) })
				}
			})
		})
		e.Field("lineAttributes", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, name := range env.LineAttributes {
					e.Str(name)
				}
			})
		})
		e.Field("cartPriceListGroupId", func(e *jx.Encoder) { e.Str(env.CartPriceListGroupID) })
		e.Field("numberOfItems", func(e *jx.Encoder) { e.Int(env.NumberOfItems) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.Total) })
		e.Field("subTotal", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.Subtotal) })
		e.Field("tax", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.Tax) })
		e.Field("shipping", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.Shipping) })
		e.Field("shippingDiscount", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.ShippingDiscount) })
		e.Field("shippingSurcharge", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.ShippingSurcharge) })
		e.Field("orderDiscount", func(e *jx.Encoder) { encodeDecimal(e, env.Totals.OrderDiscount) })
		e.Field("currencyCode", func(e *jx.Encoder) { e.Str(env.Totals.CurrencyCode) })
		e.Field("recurringChargeAmount", func(e *jx.Encoder) { encodeDecimal(e, env.RecurringChargeAmount) })
		e.Field("recurringChargeCurrencyCode", func(e *jx.Encoder) { e.Str(env.RecurringChargeCurrencyCode) })
	})
	return e.String()
}

// Decode parses an envelope serialized by Encode. Unknown keys are skipped.
func Decode(raw string) (*Envelope, error) {
	env := &Envelope{}
	d := jx.DecodeStr(raw)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				env.Items = append(env.Items, item)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCoupon(d)
				if err != nil {
					return err
				}
				env.Coupons = append(env.Coupons, c)
				return nil
			})
		case "giftWithPurchaseOrderMarkers":
			return d.Arr(func(d *jx.Decoder) error {
				m, err := decodeMarker(d)
				if err != nil {
					return err
				}
				env.GiftWithPurchaseOrderMarkers = append(env.GiftWithPurchaseOrderMarkers, m)
				return nil
			})
		case "dynamicProperties":
			return d.Obj(func(d *jx.Decoder, name string) error {
				value, err := decodeAny(d)
				if err != nil {
					return err
				}
				if env.DynamicProperties == nil {
					env.DynamicProperties = make(map[string]any)
				}
				env.DynamicProperties[name] = value
				return nil
			})
		case "lineAttributes":
			return d.Arr(func(d *jx.Decoder) error {
				name, err := d.Str()
				if err != nil {
					return err
				}
				env.LineAttributes = append(env.LineAttributes, name)
				return nil
			})
		case "cartPriceListGroupId":
			return decodeStrInto(d, &env.CartPriceListGroupID)
		case "numberOfItems":
			n, err := d.Int()
			env.NumberOfItems = n
			return err
		case "total":
			return decodeDecimalInto(d, &env.Totals.Total)
		case "subTotal":
			return decodeDecimalInto(d, &env.Totals.Subtotal)
		case "tax":
			return decodeDecimalInto(d, &env.Totals.Tax)
		case "shipping":
			return decodeDecimalInto(d, &env.Totals.Shipping)
		case "shippingDiscount":
			return decodeDecimalInto(d, &env.Totals.ShippingDiscount)
		case "shippingSurcharge":
			return decodeDecimalInto(d, &env.Totals.ShippingSurcharge)
		case "orderDiscount":
			return decodeDecimalInto(d, &env.Totals.OrderDiscount)
		case "currencyCode":
			return decodeStrInto(d, &env.Totals.CurrencyCode)
		case "recurringChargeAmount":
			return decodeDecimalInto(d, &env.RecurringChargeAmount)
		case "recurringChargeCurrencyCode":
			return decodeStrInto(d, &env.RecurringChargeCurrencyCode)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode snapshot envelope")
	}
	return env, nil
}

func encodeItem(e *jx.Encoder, item *cart.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Str(item.ProductID) })
		e.Field("catalogRefId", func(e *jx.Encoder) { e.Str(item.CatalogRefID) })
		e.Field("commerceItemId", func(e *jx.Encoder) { e.Str(item.CommerceItemID) })
		e.Field("configuratorId", func(e *jx.Encoder) { e.Str(item.ConfiguratorID) })
		e.Field("kind", func(e *jx.Encoder) { e.Str(string(item.Kind)) })
		e.Field("displayName", func(e *jx.Encoder) { e.Str(item.DisplayName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(item.Quantity) })
		e.Field("updatableQuantity", func(e *jx.Encoder) { e.Int(item.UpdatableQuantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { encodeDecimal(e, item.UnitPrice) })
		e.Field("rawTotalPrice", func(e *jx.Encoder) { encodeDecimal(e, item.RawTotalPrice) })
		e.Field("externalPrice", func(e *jx.Encoder) { encodeDecimal(e, item.ExternalPrice) })
		e.Field("externalPriceQuantity", func(e *jx.Encoder) { e.Int(item.ExternalPriceQuantity) })
		e.Field("addOnItem", func(e *jx.Encoder) { e.Bool(item.IsAddon) })
		e.Field("invalid", func(e *jx.Encoder) { e.Bool(item.Invalid) })
		e.Field("stockState", func(e *jx.Encoder) { e.Str(string(item.StockState)) })
		e.Field("discountInfo", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, disc := range item.DiscountInfo {
					encodeDiscount(e, disc)
				}
			})
		})
		e.Field("detailedItemPriceInfo", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, detail := range item.DetailedPriceInfo {
					encodeDetail(e, detail)
				}
			})
		})
		e.Field("giftWithPurchaseCommerceItemMarkers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, m := range item.GiftWithPurchaseMarkers {
					encodeMarker(e, m)
				}
			})
		})
		e.Field("dynamicProperties", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for name, value := range item.DynamicProperties {
					e.Field(name, func(e *jx.Encoder) { encodeAny(e, value) })
				}
			})
		})
		if len(item.ChildItems) > 0 {
			e.Field("childItems", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, child := range item.ChildItems {
						encodeItem(e, child)
					}
				})
			})
		}
	})
}

func decodeItem(d *jx.Decoder) (*cart.LineItem, error) {
	item := &cart.LineItem{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			return decodeStrInto(d, &item.ProductID)
		case "catalogRefId":
			return decodeStrInto(d, &item.CatalogRefID)
		case "commerceItemId":
			return decodeStrInto(d, &item.CommerceItemID)
		case "configuratorId":
			return decodeStrInto(d, &item.ConfiguratorID)
		case "kind":
			s, err := d.Str()
			item.Kind = cart.ItemKind(s)
			return err
		case "displayName":
			return decodeStrInto(d, &item.DisplayName)
		case "quantity":
			n, err := d.Int()
			item.Quantity = n
			return err
		case "updatableQuantity":
			n, err := d.Int()
			item.UpdatableQuantity = n
			return err
		case "unitPrice":
			return decodeDecimalInto(d, &item.UnitPrice)
		case "rawTotalPrice":
			return decodeDecimalInto(d, &item.RawTotalPrice)
		case "externalPrice":
			return decodeDecimalInto(d, &item.ExternalPrice)
		case "externalPriceQuantity":
			n, err := d.Int()
			item.ExternalPriceQuantity = n
			return err
		case "addOnItem":
			b, err := d.Bool()
			item.IsAddon = b
			return err
		case "invalid":
			b, err := d.Bool()
			item.Invalid = b
			return err
		case "stockState":
			s, err := d.Str()
			item.StockState = cart.StockState(s)
			return err
		case "discountInfo":
			return d.Arr(func(d *jx.Decoder) error {
				disc, err := decodeDiscount(d)
				if err != nil {
					return err
				}
				item.DiscountInfo = append(item.DiscountInfo, disc)
				return nil
			})
		case "detailedItemPriceInfo":
			return d.Arr(func(d *jx.Decoder) error {
				detail, err := decodeDetail(d)
				if err != nil {
					return err
				}
				item.DetailedPriceInfo = append(item.DetailedPriceInfo, detail)
				return nil
			})
		case "giftWithPurchaseCommerceItemMarkers":
			return d.Arr(func(d *jx.Decoder) error {
				m, err := decodeMarker(d)
				if err != nil {
					return err
				}
				item.GiftWithPurchaseMarkers = append(item.GiftWithPurchaseMarkers, m)
				return nil
			})
		case "dynamicProperties":
			return d.Obj(func(d *jx.Decoder, name string) error {
				value, err := decodeAny(d)
				if err != nil {
					return err
				}
				if item.DynamicProperties == nil {
					item.DynamicProperties = make(map[string]any)
				}
				item.DynamicProperties[name] = value
				return nil
			})
		case "childItems":
			return d.Arr(func(d *jx.Decoder) error {
				child, err := decodeItem(d)
				if err != nil {
					return err
				}
				item.ChildItems = append(item.ChildItems, child)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func encodeDiscount(e *jx.Encoder, disc cart.DiscountInfo) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("promotionId", func(e *jx.Encoder) { e.Str(disc.PromotionID) })
		e.Field("description", func(e *jx.Encoder) { e.Str(disc.Description) })
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, disc.Amount) })
	})
}

func decodeDiscount(d *jx.Decoder) (cart.DiscountInfo, error) {
	var disc cart.DiscountInfo
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "promotionId":
			return decodeStrInto(d, &disc.PromotionID)
		case "description":
			return decodeStrInto(d, &disc.Description)
		case "amount":
			return decodeDecimalInto(d, &disc.Amount)
		default:
			return d.Skip()
		}
	})
	return disc, err
}

func encodeDetail(e *jx.Encoder, detail cart.DetailedPriceInfo) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, detail.Amount) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(detail.Quantity) })
		e.Field("detailedUnitPrice", func(e *jx.Encoder) { encodeDecimal(e, detail.DetailedUnitPrice) })
		e.Field("currencyCode", func(e *jx.Encoder) { e.Str(detail.CurrencyCode) })
		e.Field("discountInfo", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, disc := range detail.DiscountInfo {
					encodeDiscount(e, disc)
				}
			})
		})
	})
}

func decodeDetail(d *jx.Decoder) (cart.DetailedPriceInfo, error) {
	var detail cart.DetailedPriceInfo
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "amount":
			return decodeDecimalInto(d, &detail.Amount)
		case "quantity":
			n, err := d.Int()
			detail.Quantity = n
			return err
		case "detailedUnitPrice":
			return decodeDecimalInto(d, &detail.DetailedUnitPrice)
		case "currencyCode":
			return decodeStrInto(d, &detail.CurrencyCode)
		case "discountInfo":
			return d.Arr(func(d *jx.Decoder) error {
				disc, err := decodeDiscount(d)
				if err != nil {
					return err
				}
				detail.DiscountInfo = append(detail.DiscountInfo, disc)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	return detail, err
}

func encodeMarker(e *jx.Encoder, m cart.GiftMarker) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("giftWithPurchaseId", func(e *jx.Encoder) { e.Str(m.GiftWithPurchaseID) })
		e.Field("promotionId", func(e *jx.Encoder) { e.Str(m.PromotionID) })
		e.Field("autoRemove", func(e *jx.Encoder) { e.Bool(m.AutoRemove) })
	})
}

func decodeMarker(d *jx.Decoder) (cart.GiftMarker, error) {
	var m cart.GiftMarker
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "giftWithPurchaseId":
			return decodeStrInto(d, &m.GiftWithPurchaseID)
		case "promotionId":
			return decodeStrInto(d, &m.PromotionID)
		case "autoRemove":
			b, err := d.Bool()
			m.AutoRemove = b
			return err
		default:
			return d.Skip()
		}
	})
	return m, err
}

func encodeCoupon(e *jx.Encoder, c *cart.Coupon) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(c.Status)) })
		e.Field("level", func(e *jx.Encoder) { e.Str(c.Level) })
		e.Field("promotionId", func(e *jx.Encoder) { e.Str(c.PromotionID) })
		e.Field("totalAdjustment", func(e *jx.Encoder) { encodeDecimal(e, c.TotalAdjustment) })
		e.Field("promotions", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range c.Promotions {
					e.Obj(func(e *jx.Encoder) {
						e.Field("promotionId", func(e *jx.Encoder) { e.Str(p.ID) })
						e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
						e.Field("applied", func(e *jx.Encoder) { e.Bool(p.Applied) })
						e.Field("adjustment", func(e *jx.Encoder) { encodeDecimal(e, p.Adjustment) })
					})
				}
			})
		})
	})
}

func decodeCoupon(d *jx.Decoder) (*cart.Coupon, error) {
	c := &cart.Coupon{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			return decodeStrInto(d, &c.Code)
		case "description":
			return decodeStrInto(d, &c.Description)
		case "status":
			s, err := d.Str()
			c.Status = cart.CouponStatus(s)
			return err
		case "level":
			return decodeStrInto(d, &c.Level)
		case "promotionId":
			return decodeStrInto(d, &c.PromotionID)
		case "totalAdjustment":
			return decodeDecimalInto(d, &c.TotalAdjustment)
		case "promotions":
			return d.Arr(func(d *jx.Decoder) error {
				var p cart.Promotion
				err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "promotionId":
						return decodeStrInto(d, &p.ID)
					case "description":
						return decodeStrInto(d, &p.Description)
					case "applied":
						b, err := d.Bool()
						p.Applied = b
						return err
					case "adjustment":
						return decodeDecimalInto(d, &p.Adjustment)
					default:
						return d.Skip()
					}
				})
				if err != nil {
					return err
				}
				c.Promotions = append(c.Promotions, p)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Decimals travel as strings to avoid any float round trip.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Str(v.String())
}

func decodeDecimalInto(d *jx.Decoder, out *decimal.Decimal) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", s)
	}
	*out = v
	return nil
}

func decodeStrInto(d *jx.Decoder, out *string) error {
	s, err := d.Str()
	*out = s
	return err
}

func encodeAny(e *jx.Encoder, value any) {
	switch v := value.(type) {
	case string:
		e.Str(v)
	case bool:
		e.Bool(v)
	case int:
		e.Int(v)
	case int64:
		e.Int64(v)
	case float64:
		e.Float64(v)
	case nil:
		e.Null()
	default:
		e.Null()
	}
}

func decodeAny(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		num, err := d.Num()
		if err != nil {
			return nil, err
		}
		if num.IsInt() {
			return num.Int64()
		}
		return num.Float64()
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, d.Skip()
	}
}
