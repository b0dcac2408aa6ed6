package infrastructure

import (
	"database/sql"

	"academy/internal/service/order/domain"
)

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	o := &domain.Order{
		ID:             model.ID,
		UserID:         model.UserID,
		CourseID:       model.CourseID,
		OriginalPrice:  model.OriginalPrice,
		CouponCode:     model.CouponCode,
		DiscountAmount: model.DiscountAmount,
		FinalPrice:     model.FinalPrice,
		Status:         domain.State(model.Status),
		FailureReason:  model.FailureReason,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
	if model.AppliedCouponID.Valid {
		v := model.AppliedCouponID.Int64
		o.AppliedCouponID = &v
	}
	if model.GatewayOrderRef.Valid {
		o.GatewayOrderRef = model.GatewayOrderRef.String
	}
	return o
}

// FromDomainOrder 将领域模型转换为数据库模型
func FromDomainOrder(o *domain.Order) *OrderModel {
	if o == nil {
		return nil
	}
	model := &OrderModel{
		ID:             o.ID,
		UserID:         o.UserID,
		CourseID:       o.CourseID,
		OriginalPrice:  o.OriginalPrice,
		CouponCode:     o.CouponCode,
		DiscountAmount: o.DiscountAmount,
		FinalPrice:     o.FinalPrice,
		Status:         string(o.Status),
		FailureReason:  o.FailureReason,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.AppliedCouponID != nil {
		model.AppliedCouponID = sql.NullInt64{Int64: *o.AppliedCouponID, Valid: true}
	}
	if o.GatewayOrderRef != "" {
		model.GatewayOrderRef = sql.NullString{String: o.GatewayOrderRef, Valid: true}
	}
	return model
}
