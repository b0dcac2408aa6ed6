package infrastructure

import (
	"database/sql"
	"time"
)

// OrderModel 对应数据库中的 orders 表。
type OrderModel struct {
	ID              string `gorm:"primarykey;size:36"`
	UserID          int64  `gorm:"index"`
	CourseID        int64
	OriginalPrice   float64 `gorm:"type:decimal(10,2)"`
	AppliedCouponID sql.NullInt64
	CouponCode      string  `gorm:"size:64"`
	DiscountAmount  float64 `gorm:"type:decimal(10,2)"`
	FinalPrice      float64 `gorm:"type:decimal(10,2)"`
	// 网关订单号在向网关建单后回填，NULL 可重复、非 NULL 唯一
	GatewayOrderRef sql.NullString `gorm:"uniqueIndex;size:64"`
	Status          string         `gorm:"size:16;index"`
	FailureReason   string         `gorm:"size:64"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// EnrollmentModel 对应 enrollment 表，(user_id, course_id) 唯一。
// 只在结算事务中插入。
type EnrollmentModel struct {
	ID         uint  `gorm:"primarykey"`
	UserID     int64 `gorm:"index:idx_enrollment_user_course,unique"`
	CourseID   int64 `gorm:"index:idx_enrollment_user_course,unique"`
	OrderID    string `gorm:"size:36"`
	EnrolledAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (EnrollmentModel) TableName() string {
	return "enrollment"
}

// RedemptionModel 对应 redemption 表。order_id 唯一约束
// 保证一张订单至多产生一条核销记录。
// 优惠券服务按同名模型读取此表，字段声明必须与之保持逐一相同。
type RedemptionModel struct {
	ID               uint   `gorm:"primarykey"`
	CouponID         int64  `gorm:"index:idx_redemption_coupon_user"`
	UserID           int64  `gorm:"index:idx_redemption_coupon_user"`
	OrderID          string `gorm:"uniqueIndex;size:64"`
	AmountDiscounted float64 `gorm:"type:decimal(10,2)"`
	RedeemedAt       time.Time
}

// TableName 指定 GORM 应该使用的表名
func (RedemptionModel) TableName() string {
	return "redemption"
}

// CouponUserUsageModel 对应 coupon_user_usage 表，(coupon_id, user_id) 唯一。
// 结算事务用 SELECT ... FOR UPDATE 锁定该行来串行化同一用户的并发核销。
type CouponUserUsageModel struct {
	ID        uint  `gorm:"primarykey"`
	CouponID  int64 `gorm:"index:idx_usage_coupon_user,unique"`
	UserID    int64 `gorm:"index:idx_usage_coupon_user,unique"`
	UsedCount int64 `gorm:"default:0"`
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (CouponUserUsageModel) TableName() string {
	return "coupon_user_usage"
}
