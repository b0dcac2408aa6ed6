package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Order 是订单聚合的根实体。
// 一笔订单对应一个用户购买一门课程的一次尝试。
type Order struct {
	ID              string // UUID
	UserID          int64
	CourseID        int64
	OriginalPrice   float64
	AppliedCouponID *int64 // 下单时通过校验的券，结算前不占用余量
	CouponCode      string
	DiscountAmount  float64
	FinalPrice      float64
	GatewayOrderRef string
	Status          State
	// FailureReason 终态为 FAILED 时的原因码，幂等重放时原样返回
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrder 创建一笔 PENDING 订单。价格字段由下单编排链在服务端计算后填入。
func NewOrder(userID, courseID int64, originalPrice float64) (*Order, error) {
	if userID <= 0 || courseID <= 0 {
		return nil, errors.New("cannot create order with empty required fields")
	}
	if originalPrice < 0 {
		return nil, errors.New("cannot create order with negative price")
	}
	now := time.Now()
	return &Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		CourseID:      courseID,
		OriginalPrice: originalPrice,
		FinalPrice:    originalPrice,
		Status:        StatePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ApplyCoupon 把服务端复核后的折扣写入订单。
func (o *Order) ApplyCoupon(couponID int64, code string, discount, finalPrice float64) {
	o.AppliedCouponID = &couponID
	o.CouponCode = code
	o.DiscountAmount = discount
	o.FinalPrice = finalPrice
	o.UpdatedAt = time.Now()
}

// MarkPaid 将订单推进到 PAID 终态，只允许从 PENDING 出发。
func (o *Order) MarkPaid() error {
	if o.Status != StatePending {
		return ErrOrderNotPending
	}
	o.Status = StatePaid
	o.UpdatedAt = time.Now()
	return nil
}

// MarkFailed 将订单推进到 FAILED 终态并记录原因码。
func (o *Order) MarkFailed(reason string) error {
	if o.Status != StatePending {
		return ErrOrderNotPending
	}
	o.Status = StateFailed
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
	return nil
}
