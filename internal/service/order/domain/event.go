// internal/service/order/domain/event.go
package domain

import "time"

// 通知事件类型。
const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentFailed    = "PAYMENT_FAILED"
)

// NotificationEvent 是结算完成后发往通知协作方的事件。
// 发送是 fire-and-forget 的：通知失败绝不回滚结算。
type NotificationEvent struct {
	Type     string  `json:"type"`
	UserID   int64   `json:"userId"`
	CourseID int64   `json:"courseId"`
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// OrderTimeoutCheckEvent 是支付超时检查任务的载体，
// 下单时投入延迟主题，到期后由延迟调度器转发回订单服务消费。
type OrderTimeoutCheckEvent struct {
	TraceID      string    `json:"traceId,omitempty"`
	OrderID      string    `json:"orderId"`
	UserID       int64     `json:"userId"`
	CreationTime time.Time `json:"creationTime"`
}
