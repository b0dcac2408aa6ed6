package domain

import "math"

// DiscountResult 是折扣计算的结果。
type DiscountResult struct {
	DiscountAmount float64
	FinalPrice     float64
}

// ComputeDiscount 根据原价和优惠券计算折扣，纯函数、无 I/O。
//   - 百分比：raw = price * value / 100，若设置了 MaxDiscount 则封顶
//   - 固定金额：折扣不超过原价，实付不会为负
//
// 舍入只做一次：在封顶与钳制之后，按四舍五入保留到分，
// 避免多次舍入累积误差。
func ComputeDiscount(price float64, c *Coupon) DiscountResult {
	var raw float64
	switch c.DiscountType {
	case DiscountPercentage:
		raw = price * c.DiscountValue / 100
		if c.MaxDiscount != nil && raw > *c.MaxDiscount {
			raw = *c.MaxDiscount
		}
	case DiscountFixed:
		raw = c.DiscountValue
	}
	if raw > price {
		raw = price
	}
	if raw < 0 {
		raw = 0
	}

	discount := roundToCent(raw)
	final := price - discount
	if final < 0 {
		final = 0
	}
	return DiscountResult{DiscountAmount: discount, FinalPrice: final}
}

// roundToCent 四舍五入（round-half-up）到两位小数。
func roundToCent(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
