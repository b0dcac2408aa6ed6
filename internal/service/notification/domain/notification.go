package domain

import (
	"fmt"
	"time"
)

// 通知事件类型，与 order 服务结算后发出的事件保持一致。
const (
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventPaymentFailed    = "PAYMENT_FAILED"
)

// PaymentEvent 是从 Kafka 消费的结算事件载体。
type PaymentEvent struct {
	Type     string  `json:"type"`
	UserID   int64   `json:"userId"`
	CourseID int64   `json:"courseId"`
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Notification 是持久化的站内通知。
// 用户离线时消息不会丢失，上线后可通过查询接口拉取历史通知。
type Notification struct {
	ID        int64
	UserID    int64
	OrderID   string
	CourseID  int64
	Type      string
	Message   string
	Delivered bool
	CreatedAt time.Time
}

// FromEvent 根据结算事件构造通知，事件未携带文案时生成默认文案。
func FromEvent(event *PaymentEvent) *Notification {
	message := event.Message
	if message == "" {
		switch event.Type {
		case EventPaymentConfirmed:
			message = fmt.Sprintf("Payment of %.2f confirmed, you are now enrolled. Order %s.", event.Amount, event.OrderID)
		case EventPaymentFailed:
			message = fmt.Sprintf("Payment for order %s failed.", event.OrderID)
		default:
			message = fmt.Sprintf("Update for order %s.", event.OrderID)
		}
	}
	return &Notification{
		UserID:   event.UserID,
		OrderID:  event.OrderID,
		CourseID: event.CourseID,
		Type:     event.Type,
		Message:  message,
	}
}
