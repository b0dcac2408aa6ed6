package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestComputeDiscount_PercentageNoCap(t *testing.T) {
	c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 20}
	res := ComputeDiscount(1000, c)
	assert.Equal(t, 200.0, res.DiscountAmount)
	assert.Equal(t, 800.0, res.FinalPrice)
}

func TestComputeDiscount_PercentageCapped(t *testing.T) {
	c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 50, MaxDiscount: f64(300)}
	res := ComputeDiscount(1000, c)
	assert.Equal(t, 300.0, res.DiscountAmount)
	assert.Equal(t, 700.0, res.FinalPrice)
}

func TestComputeDiscount_FixedClampedToPrice(t *testing.T) {
	c := &Coupon{DiscountType: DiscountFixed, DiscountValue: 1000}
	res := ComputeDiscount(500, c)
	assert.Equal(t, 500.0, res.DiscountAmount)
	assert.Equal(t, 0.0, res.FinalPrice)
}

func TestComputeDiscount_FullPercentage(t *testing.T) {
	c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 100}
	res := ComputeDiscount(49.99, c)
	assert.Equal(t, 49.99, res.DiscountAmount)
	assert.Equal(t, 0.0, res.FinalPrice)
}

func TestComputeDiscount_RoundsHalfUpOnce(t *testing.T) {
	// 33.335 -> 33.34，只在封顶与钳制之后舍入一次
	c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 33.335}
	res := ComputeDiscount(100, c)
	assert.Equal(t, 33.34, res.DiscountAmount)
	assert.Equal(t, 66.66, res.FinalPrice)
}

func TestComputeDiscount_Deterministic(t *testing.T) {
	c := &Coupon{DiscountType: DiscountPercentage, DiscountValue: 17.5, MaxDiscount: f64(120)}
	first := ComputeDiscount(999.99, c)
	second := ComputeDiscount(999.99, c)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.FinalPrice, 0.0)
	assert.LessOrEqual(t, first.FinalPrice, 999.99)
}
