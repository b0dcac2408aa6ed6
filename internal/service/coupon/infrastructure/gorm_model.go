package infrastructure

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// CouponModel 对应数据库中的 coupon 表。
// used_count 由订单服务的结算事务通过条件更新递增，本服务只读。
type CouponModel struct {
	gorm.Model
	Code            string `gorm:"uniqueIndex;size:64"`
	Description     string `gorm:"type:text"`
	DiscountType    string `gorm:"size:16"`
	DiscountValue   float64 `gorm:"type:decimal(10,2)"`
	MaxDiscount     sql.NullFloat64 `gorm:"type:decimal(10,2)"`
	MinPurchase     sql.NullFloat64 `gorm:"type:decimal(10,2)"`
	UsageLimit      sql.NullInt64
	PerUserLimit    int64 `gorm:"default:1"`
	UsedCount       int64 `gorm:"default:0"`
	ValidFrom       sql.NullTime
	ValidUntil      sql.NullTime
	IsActive        bool   `gorm:"default:true"`
	EligibilityRule string `gorm:"type:text"`

	Courses []CouponCourseModel `gorm:"foreignKey:CouponID"`
}

// TableName 指定 GORM 应该使用的表名
func (CouponModel) TableName() string {
	return "coupon"
}

// CouponCourseModel 对应 coupon_course 关联表，限定券可用的课程。
type CouponCourseModel struct {
	ID       uint `gorm:"primarykey"`
	CouponID uint `gorm:"index:idx_coupon_course,unique"`
	CourseID int64 `gorm:"index:idx_coupon_course,unique"`
}

// TableName 指定 GORM 应该使用的表名
func (CouponCourseModel) TableName() string {
	return "coupon_course"
}

// RedemptionModel 对应 redemption 表。
// 写入只发生在订单服务的结算事务里，这里用于单用户次数统计。
// 字段声明必须与订单服务的同名模型逐一相同，
// 两边的 AutoMigrate 才能幂等共存，不会交替触发 ALTER TABLE。
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
