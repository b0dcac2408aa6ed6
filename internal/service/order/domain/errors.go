package domain

import "github.com/pkg/errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNotPending 状态机保护：只有 PENDING 订单可以被结算
	ErrOrderNotPending = errors.New("order is not in pending state")

	// ErrAlreadyEnrolled 用户已持有该课程的有效报名
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")

	// ErrPaymentVerificationFailed 网关签名校验失败，该订单永久失败
	ErrPaymentVerificationFailed = errors.New("payment signature verification failed")

	// ErrCouponLimitRaceLost 结算时条件更新影响 0 行：
	// 券的全局余量在校验与结算之间被并发结算耗尽
	ErrCouponLimitRaceLost = errors.New("coupon usage limit exhausted by a concurrent settlement")

	// ErrPerUserLimitExceeded 结算时发现用户核销次数已达上限
	ErrPerUserLimitExceeded = errors.New("per-user coupon limit exceeded at settlement")

	// ErrCouponRejected 下单时服务端复核优惠券未通过
	ErrCouponRejected = errors.New("coupon validation rejected")
)

// FailureReasonOf 把结算失败原因映射为持久化在订单上的原因码。
// 幂等重放时直接用该字段还原上一次的结算结果。
func FailureReasonOf(err error) string {
	switch {
	case errors.Is(err, ErrPaymentVerificationFailed):
		return "PaymentVerificationFailed"
	case errors.Is(err, ErrCouponLimitRaceLost):
		return "CouponLimitRaceLost"
	case errors.Is(err, ErrPerUserLimitExceeded):
		return "PerUserLimitExceeded"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "AlreadyEnrolled"
	default:
		return "SettlementFailed"
	}
}
