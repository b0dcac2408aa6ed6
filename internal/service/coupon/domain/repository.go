package domain

import "context"

// CouponRepository 是优惠券的持久化端口。
// 校验路径只读；写操作仅供管理端使用，核销计数由订单服务的结算事务维护。
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	FindByID(ctx context.Context, id int64) (*Coupon, error)
	List(ctx context.Context, offset, limit int) ([]*Coupon, error)
	Create(ctx context.Context, coupon *Coupon) error
	Update(ctx context.Context, coupon *Coupon) error
	Delete(ctx context.Context, id int64) error

	// CountRedemptions 统计某用户对某券已提交的核销次数
	CountRedemptions(ctx context.Context, couponID, userID int64) (int64, error)
}

// RuleEngine 执行优惠券上挂载的可选资格规则。
type RuleEngine interface {
	// Evaluate 返回规则是否放行；规则为空串时恒为放行
	Evaluate(ctx context.Context, rule string, userID, courseID int64, price float64) (bool, error)
}
