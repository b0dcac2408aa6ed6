// internal/service/order/application/dto.go
package application

import "academy/internal/service/order/domain"

// CreateOrderRequest 是下单用例的输入数据
type CreateOrderRequest struct {
	UserID     int64  `json:"user_id"`
	CourseID   int64  `json:"course_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// CreateOrderResponse 是下单用例的输出数据
type CreateOrderResponse struct {
	OrderID         string       `json:"order_id"`
	GatewayOrderRef string       `json:"gateway_order_ref"`
	OriginalPrice   float64      `json:"original_price"`
	DiscountAmount  float64      `json:"discount_amount"`
	FinalPrice      float64      `json:"final_price"`
	Status          domain.State `json:"status"`
}

// SettleRequest 是支付回调（webhook）的输入数据
type SettleRequest struct {
	GatewayOrderRef   string `json:"gateway_order_ref"`
	GatewayPaymentRef string `json:"gateway_payment_ref"`
	GatewaySignature  string `json:"gateway_signature"`
}

// SettleResponse 是结算用例的输出数据。
// 同一 GatewayOrderRef 的重复回调会原样返回首次结算的结果。
type SettleResponse struct {
	OrderID string       `json:"order_id"`
	Status  domain.State `json:"status"`
	Reason  string       `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
}

// OrderDTO 查询接口返回的订单快照
type OrderDTO struct {
	ID              string       `json:"id"`
	UserID          int64        `json:"user_id"`
	CourseID        int64        `json:"course_id"`
	OriginalPrice   float64      `json:"original_price"`
	DiscountAmount  float64      `json:"discount_amount"`
	FinalPrice      float64      `json:"final_price"`
	GatewayOrderRef string       `json:"gateway_order_ref,omitempty"`
	Status          domain.State `json:"status"`
	FailureReason   string       `json:"failure_reason,omitempty"`
}

func toOrderDTO(o *domain.Order) *OrderDTO {
	return &OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		CourseID:        o.CourseID,
		OriginalPrice:   o.OriginalPrice,
		DiscountAmount:  o.DiscountAmount,
		FinalPrice:      o.FinalPrice,
		GatewayOrderRef: o.GatewayOrderRef,
		Status:          o.Status,
		FailureReason:   o.FailureReason,
	}
}
