package port

import "context"

// CouponVerdict 是优惠券服务返回的结构化校验裁决。
type CouponVerdict struct {
	Valid          bool    `json:"valid"`
	Reason         string  `json:"reason,omitempty"`
	Message        string  `json:"message,omitempty"`
	CouponID       int64   `json:"coupon_id,omitempty"`
	Code           string  `json:"code,omitempty"`
	OriginalPrice  float64 `json:"original_price,omitempty"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	FinalPrice     float64 `json:"final_price,omitempty"`
}

// CouponService 是优惠券校验的出站端口。
// 下单编排链用它在服务端复核折扣，客户端展示的价格永远不可信。
type CouponService interface {
	Validate(ctx context.Context, code string, courseID, userID int64) (*CouponVerdict, error)
}
