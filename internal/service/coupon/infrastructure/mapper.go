package infrastructure

import (
	"database/sql"

	"gorm.io/gorm"

	"academy/internal/service/coupon/domain"
)

// ToDomainCoupon 将数据库模型转换为领域模型
func ToDomainCoupon(model *CouponModel) *domain.Coupon {
	if model == nil {
		return nil
	}
	c := &domain.Coupon{
		ID:              int64(model.ID),
		Code:            model.Code,
		Description:     model.Description,
		DiscountType:    domain.DiscountType(model.DiscountType),
		DiscountValue:   model.DiscountValue,
		PerUserLimit:    model.PerUserLimit,
		UsedCount:       model.UsedCount,
		IsActive:        model.IsActive,
		EligibilityRule: model.EligibilityRule,
	}
	if model.MaxDiscount.Valid {
		v := model.MaxDiscount.Float64
		c.MaxDiscount = &v
	}
	if model.MinPurchase.Valid {
		v := model.MinPurchase.Float64
		c.MinPurchase = &v
	}
	if model.UsageLimit.Valid {
		v := model.UsageLimit.Int64
		c.UsageLimit = &v
	}
	if model.ValidFrom.Valid {
		t := model.ValidFrom.Time
		c.ValidFrom = &t
	}
	if model.ValidUntil.Valid {
		t := model.ValidUntil.Time
		c.ValidUntil = &t
	}
	for _, cc := range model.Courses {
		c.CourseIDs = append(c.CourseIDs, cc.CourseID)
	}
	return c
}

// FromDomainCoupon 将领域模型转换为数据库模型（用于插入与更新）
func FromDomainCoupon(dmn *domain.Coupon) *CouponModel {
	if dmn == nil {
		return nil
	}
	model := &CouponModel{
		Model: gorm.Model{
			ID: uint(dmn.ID),
		},
		Code:            dmn.Code,
		Description:     dmn.Description,
		DiscountType:    string(dmn.DiscountType),
		DiscountValue:   dmn.DiscountValue,
		PerUserLimit:    dmn.PerUserLimit,
		UsedCount:       dmn.UsedCount,
		IsActive:        dmn.IsActive,
		EligibilityRule: dmn.EligibilityRule,
	}
	if dmn.MaxDiscount != nil {
		model.MaxDiscount = sql.NullFloat64{Float64: *dmn.MaxDiscount, Valid: true}
	}
	if dmn.MinPurchase != nil {
		model.MinPurchase = sql.NullFloat64{Float64: *dmn.MinPurchase, Valid: true}
	}
	if dmn.UsageLimit != nil {
		model.UsageLimit = sql.NullInt64{Int64: *dmn.UsageLimit, Valid: true}
	}
	if dmn.ValidFrom != nil {
		model.ValidFrom = sql.NullTime{Time: *dmn.ValidFrom, Valid: true}
	}
	if dmn.ValidUntil != nil {
		model.ValidUntil = sql.NullTime{Time: *dmn.ValidUntil, Valid: true}
	}
	for _, courseID := range dmn.CourseIDs {
		model.Courses = append(model.Courses, CouponCourseModel{
			CouponID: uint(dmn.ID),
			CourseID: courseID,
		})
	}
	return model
}
