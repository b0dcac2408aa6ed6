package domain

import (
	"strings"
	"time"
)

// DiscountType 折扣类型：按比例或固定金额。
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon 是优惠券的领域模型。
// 定义字段由管理端维护，UsedCount 只会被结算事务递增。
type Coupon struct {
	ID            int64
	Code          string // 全局唯一，统一按大写存储与比较
	Description   string
	DiscountType  DiscountType
	DiscountValue float64
	MaxDiscount   *float64 // 仅对百分比折扣生效的封顶金额
	MinPurchase   *float64 // 课程原价需不低于该金额才可用
	UsageLimit    *int64   // 全局核销上限，nil 表示不限量
	PerUserLimit  int64    // 单用户核销上限，默认 1
	UsedCount     int64
	ValidFrom     *time.Time // 生效窗口，nil 表示该侧无界
	ValidUntil    *time.Time
	IsActive      bool    // 独立于时间窗口的启停开关
	CourseIDs     []int64 // 限定可用的课程，为空表示全场通用

	// EligibilityRule 是可选的 CEL 表达式，在基础校验全部通过后追加执行。
	// 例如 `price >= 99.0 && course_id != 42`。
	EligibilityRule string
}

// NormalizeCode 将用户输入的券码归一化：去首尾空白并转大写。
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// AppliesToCourse 判断优惠券是否适用于指定课程。
func (c *Coupon) AppliesToCourse(courseID int64) bool {
	if len(c.CourseIDs) == 0 {
		return true
	}
	for _, id := range c.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// CheckEligibility 按固定顺序执行基础校验，返回第一个不满足的原因。
// price 为课程原价（未扣减）。courseID 为 0 表示未指定课程，
// 此时跳过课程限定与最低消费这两项按课程计算的校验。
// 单用户次数校验需要查库，由应用层完成。
func (c *Coupon) CheckEligibility(now time.Time, courseID int64, price float64) error {
	if !c.IsActive {
		return ErrCouponInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrCouponNotYetValid
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return ErrCouponExpired
	}
	if courseID > 0 {
		if !c.AppliesToCourse(courseID) {
			return ErrCouponNotApplicable
		}
		if c.MinPurchase != nil && price < *c.MinPurchase {
			return ErrBelowMinimumPurchase
		}
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Redemption 是一次已提交核销的不可变记录。
// OrderID 上有唯一约束，保证一张订单至多产生一条核销。
type Redemption struct {
	ID               int64
	CouponID         int64
	UserID           int64
	OrderID          string
	AmountDiscounted float64
	RedeemedAt       time.Time
}
