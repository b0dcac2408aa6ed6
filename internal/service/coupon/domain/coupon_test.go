package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func activeCoupon() *Coupon {
	return &Coupon{
		ID:            1,
		Code:          "WELCOME20",
		DiscountType:  DiscountPercentage,
		DiscountValue: 20,
		PerUserLimit:  1,
		IsActive:      true,
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WELCOME20", NormalizeCode("  welcome20 "))
}

func TestCheckEligibility_Inactive(t *testing.T) {
	c := activeCoupon()
	c.IsActive = false
	err := c.CheckEligibility(time.Now(), 0, 0)
	assert.ErrorIs(t, err, ErrCouponInactive)
}

func TestCheckEligibility_NotYetValid(t *testing.T) {
	c := activeCoupon()
	tomorrow := time.Now().Add(24 * time.Hour)
	c.ValidFrom = &tomorrow

	err := c.CheckEligibility(time.Now(), 0, 0)
	assert.ErrorIs(t, err, ErrCouponNotYetValid)

	// 到了生效时间后同一张券应当通过
	err = c.CheckEligibility(tomorrow.Add(time.Minute), 0, 0)
	assert.NoError(t, err)
}

func TestCheckEligibility_Expired(t *testing.T) {
	c := activeCoupon()
	yesterday := time.Now().Add(-24 * time.Hour)
	c.ValidUntil = &yesterday
	err := c.CheckEligibility(time.Now(), 0, 0)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestCheckEligibility_WindowBoundsInclusive(t *testing.T) {
	c := activeCoupon()
	from := time.Now().Add(-time.Hour)
	until := time.Now().Add(time.Hour)
	c.ValidFrom = &from
	c.ValidUntil = &until
	assert.NoError(t, c.CheckEligibility(from, 0, 0))
	assert.NoError(t, c.CheckEligibility(until, 0, 0))
}

func TestCheckEligibility_CourseRestriction(t *testing.T) {
	c := activeCoupon()
	c.CourseIDs = []int64{10, 11}

	assert.ErrorIs(t, c.CheckEligibility(time.Now(), 12, 100), ErrCouponNotApplicable)
	assert.NoError(t, c.CheckEligibility(time.Now(), 11, 100))
}

func TestCheckEligibility_MinPurchaseBoundaryInclusive(t *testing.T) {
	c := activeCoupon()
	c.MinPurchase = f64(100)

	assert.ErrorIs(t, c.CheckEligibility(time.Now(), 1, 99.99), ErrBelowMinimumPurchase)
	// 恰好等于门槛时应当通过
	assert.NoError(t, c.CheckEligibility(time.Now(), 1, 100))
}

func TestCheckEligibility_NoCourseSkipsCourseChecks(t *testing.T) {
	c := activeCoupon()
	c.MinPurchase = f64(100)
	c.CourseIDs = []int64{10, 11}

	// 未指定课程时不存在可比较的原价，课程限定与最低消费不参与校验
	assert.NoError(t, c.CheckEligibility(time.Now(), 0, 0))
}

func TestCheckEligibility_UsageLimitReached(t *testing.T) {
	c := activeCoupon()
	c.UsageLimit = i64(5)
	c.UsedCount = 5
	assert.ErrorIs(t, c.CheckEligibility(time.Now(), 0, 0), ErrUsageLimitReached)

	c.UsedCount = 4
	assert.NoError(t, c.CheckEligibility(time.Now(), 0, 0))
}
