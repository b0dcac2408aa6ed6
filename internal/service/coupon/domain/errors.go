package domain

import "github.com/pkg/errors"

// 校验拒绝原因。这些都是用户可修正的业务结果，
// HTTP 层会把它们映射为结构化的 reason 字段，而不是 500。
var (
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrCouponInactive       = errors.New("coupon is inactive")
	ErrCouponExpired        = errors.New("coupon has expired")
	ErrCouponNotYetValid    = errors.New("coupon is not yet valid")
	ErrCouponNotApplicable  = errors.New("coupon is not applicable to this course")
	ErrBelowMinimumPurchase = errors.New("course price is below the coupon's minimum purchase")
	ErrUsageLimitReached    = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached  = errors.New("per-user usage limit reached")
	ErrRuleRejected         = errors.New("coupon eligibility rule rejected this purchase")

	ErrCodeAlreadyExists = errors.New("coupon code already exists")
)

// ReasonOf 把拒绝原因映射为对外稳定的 reason 码，未知错误返回空串。
func ReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrCouponNotFound):
		return "CouponNotFound"
	case errors.Is(err, ErrCouponInactive):
		return "CouponInactive"
	case errors.Is(err, ErrCouponExpired):
		return "CouponExpired"
	case errors.Is(err, ErrCouponNotYetValid):
		return "CouponNotYetValid"
	case errors.Is(err, ErrCouponNotApplicable):
		return "CouponNotApplicableToCourse"
	case errors.Is(err, ErrBelowMinimumPurchase):
		return "BelowMinimumPurchase"
	case errors.Is(err, ErrUsageLimitReached):
		return "UsageLimitReached"
	case errors.Is(err, ErrPerUserLimitReached):
		return "PerUserLimitReached"
	case errors.Is(err, ErrRuleRejected):
		return "CouponNotEligible"
	default:
		return ""
	}
}
