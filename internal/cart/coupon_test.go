package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulateCoupons_UpsertAndDrop(t *testing.T) {
	coupons := []*Coupon{
		{Code: "KEEP", Status: CouponClaimed},
		{Code: "GONE", Status: CouponApplied},
	}
	serverMap := map[string]PromotionRecord{
		"KEEP": {Description: "10% off", PromotionID: "promo1", TotalAdjustment: decimal.RequireFromString("-2.50")},
		"NEW":  {Description: "free shipping", PromotionID: "promo2"},
	}

	coupons = PopulateCoupons(coupons, serverMap, CouponApplied)

	require.Len(t, coupons, 2)
	keep := FindCoupon(coupons, "KEEP")
	require.NotNil(t, keep)
	assert.Equal(t, CouponApplied, keep.Status)
	assert.Equal(t, "promo1", keep.PromotionID)
	assert.True(t, keep.TotalAdjustment.Equal(decimal.RequireFromString("-2.50")))

	assert.NotNil(t, FindCoupon(coupons, "NEW"))
	assert.Nil(t, FindCoupon(coupons, "GONE"))
}

func TestPopulateCoupons_NestedPromotionUpsert(t *testing.T) {
	coupons := []*Coupon{{
		Code: "MULTI",
		Promotions: []Promotion{
			{ID: "a", Description: "old", Applied: false},
			{ID: "stale", Description: "dropped"},
		},
	}}
	serverMap := map[string]PromotionRecord{
		"MULTI": {Promotions: []Promotion{
			{ID: "a", Description: "updated", Applied: true, Adjustment: decimal.NewFromInt(-1)},
			{ID: "b", Description: "added"},
		}},
	}

	coupons = PopulateCoupons(coupons, serverMap, CouponClaimed)

	c := FindCoupon(coupons, "MULTI")
	require.NotNil(t, c)
	require.Len(t, c.Promotions, 2)
	assert.Equal(t, "updated", c.Promotions[0].Description)
	assert.True(t, c.Promotions[0].Applied)
	assert.Equal(t, "b", c.Promotions[1].ID)
	assert.True(t, c.MultiPromotion())
}

func TestPopulateCoupons_EmptyMapDropsAll(t *testing.T) {
	coupons := []*Coupon{{Code: "A"}, {Code: "B"}}

	coupons = PopulateCoupons(coupons, map[string]PromotionRecord{}, CouponApplied)

	assert.Empty(t, coupons)
}

func TestClaimedWithAppliedPromotions(t *testing.T) {
	coupons := []*Coupon{
		{Code: "CLAIMED_HIT", Status: CouponClaimed, Promotions: []Promotion{{ID: "a"}, {ID: "b", Applied: true}}},
		{Code: "CLAIMED_MISS", Status: CouponClaimed, Promotions: []Promotion{{ID: "c"}}},
		{Code: "APPLIED", Status: CouponApplied, Promotions: []Promotion{{ID: "d", Applied: true}}},
	}

	derived := ClaimedWithAppliedPromotions(coupons)

	require.Len(t, derived, 1)
	assert.Equal(t, "CLAIMED_HIT", derived[0].Code)
}

func TestRemoveCoupon(t *testing.T) {
	coupons := []*Coupon{{Code: "A"}, {Code: "B"}}

	coupons, ok := RemoveCoupon(coupons, "A")
	require.True(t, ok)
	require.Len(t, coupons, 1)
	assert.Equal(t, "B", coupons[0].Code)

	coupons, ok = RemoveCoupon(coupons, "X")
	assert.False(t, ok)
	assert.Len(t, coupons, 1)
}
