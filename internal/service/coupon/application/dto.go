package application

import "time"

// ValidateCouponRequest 校验请求。CourseID 可以为 0，
// 此时跳过课程限定、最低消费与折扣金额计算。
type ValidateCouponRequest struct {
	Code     string `json:"code"`
	CourseID int64  `json:"course_id,omitempty"`
	UserID   int64  `json:"user_id"`
}

// ValidateCouponResponse 是结构化的校验裁决。
// Valid=false 时 Reason 携带具体的拒绝原因码，永远不是笼统的 "invalid"。
type ValidateCouponResponse struct {
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`

	CouponID       int64   `json:"coupon_id,omitempty"`
	Code           string  `json:"code,omitempty"`
	DiscountType   string  `json:"discount_type,omitempty"`
	OriginalPrice  float64 `json:"original_price,omitempty"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	FinalPrice     float64 `json:"final_price,omitempty"`
}

// CouponDTO 管理端读写的完整券定义。
type CouponDTO struct {
	ID              int64      `json:"id,omitempty"`
	Code            string     `json:"code"`
	Description     string     `json:"description,omitempty"`
	DiscountType    string     `json:"discount_type"`
	DiscountValue   float64    `json:"discount_value"`
	MaxDiscount     *float64   `json:"max_discount,omitempty"`
	MinPurchase     *float64   `json:"min_purchase,omitempty"`
	UsageLimit      *int64     `json:"usage_limit,omitempty"`
	PerUserLimit    int64      `json:"per_user_limit,omitempty"`
	UsedCount       int64      `json:"used_count"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	IsActive        bool       `json:"is_active"`
	CourseIDs       []int64    `json:"course_ids,omitempty"`
	EligibilityRule string     `json:"eligibility_rule,omitempty"`
}
