package cart

import (
	"github.com/shopspring/decimal"
)

// CouponStatus tracks whether a coupon code is merely claimed on the order or
// has produced an applied promotion.
type CouponStatus string

const (
	CouponClaimed CouponStatus = "claimed"
	CouponApplied CouponStatus = "applied"
)

// Promotion is one promotion record attached to a multi-promotion coupon.
type Promotion struct {
	ID          string
	Description string
	Applied     bool
	Adjustment  decimal.Decimal
}

// Coupon is one coupon code tracked on the cart, flat-keyed by Code.
type Coupon struct {
	Code            string
	Description     string
	Status          CouponStatus
	Level           string
	PromotionID     string
	TotalAdjustment decimal.Decimal
	Promotions      []Promotion
}

// MultiPromotion reports whether the coupon carries more than one promotion
// record.
func (c *Coupon) MultiPromotion() bool {
	return len(c.Promotions) > 1
}

// PromotionRecord is the server's view of one coupon code, as carried in the
// coupon maps of a pricing or order response.
type PromotionRecord struct {
	Description     string
	Level           string
	PromotionID     string
	TotalAdjustment decimal.Decimal
	Promotions      []Promotion
}

// PopulateCoupons reconciles the local coupon list against a server coupon
// map: codes in the map are upserted with the server's description, level,
// promotion id, adjustment, and the given status; codes present locally but
// absent from the map are dropped. Nested promotion records are upserted by
// promotion id the same way. Returns the reconciled list.
func PopulateCoupons(coupons []*Coupon, serverMap map[string]PromotionRecord, status CouponStatus) []*Coupon {
	kept := coupons[:0]
	seen := make(map[string]bool, len(serverMap))
	for _, c := range coupons {
		rec, ok := serverMap[c.Code]
		if !ok {
			continue
		}
		applyRecord(c, rec, status)
		seen[c.Code] = true
		kept = append(kept, c)
	}
	for code, rec := range serverMap {
		if seen[code] {
			continue
		}
		c := &Coupon{Code: code}
		applyRecord(c, rec, status)
		kept = append(kept, c)
	}
	return kept
}

func applyRecord(c *Coupon, rec PromotionRecord, status CouponStatus) {
	c.Description = rec.Description
	c.Level = rec.Level
	c.PromotionID = rec.PromotionID
	c.TotalAdjustment = rec.TotalAdjustment
	c.Status = status
	upsertPromotions(c, rec.Promotions)
}

// upsertPromotions merges server promotion records into the coupon's nested
// list by promotion id, dropping local records the server no longer reports.
func upsertPromotions(c *Coupon, records []Promotion) {
	if len(records) == 0 {
		c.Promotions = nil
		return
	}
	merged := make([]Promotion, 0, len(records))
	for _, rec := range records {
		p := rec
		for _, existing := range c.Promotions {
			if existing.ID == rec.ID {
				p = existing
				p.Description = rec.Description
				p.Applied = rec.Applied
				p.Adjustment = rec.Adjustment
				break
			}
		}
		merged = append(merged, p)
	}
	c.Promotions = merged
}

// ClaimedWithAppliedPromotions is the derived view of claimed multi-promotion
// coupons that have at least one applied promotion. Recomputed after every
// coupon sync.
func ClaimedWithAppliedPromotions(coupons []*Coupon) []*Coupon {
	var out []*Coupon
	for _, c := range coupons {
		if c.Status != CouponClaimed {
			continue
		}
		for _, p := range c.Promotions {
			if p.Applied {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// FindCoupon returns the coupon with the given code, or nil.
func FindCoupon(coupons []*Coupon, code string) *Coupon {
	for _, c := range coupons {
		if c.Code == code {
			return c
		}
	}
	return nil
}

// RemoveCoupon drops the coupon with the given code, reporting whether it
// was present.
func RemoveCoupon(coupons []*Coupon, code string) ([]*Coupon, bool) {
	for i, c := range coupons {
		if c.Code == code {
			return append(coupons[:i], coupons[i+1:]...), true
		}
	}
	return coupons, false
}
