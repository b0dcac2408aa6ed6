package port

import (
	"context"

	"academy/internal/service/order/domain"
)

// NotificationProducer 是通知协作方的出站端口。
// 语义为 fire-and-forget：调用失败只记录日志，绝不影响结算结果。
type NotificationProducer interface {
	Emit(ctx context.Context, event *domain.NotificationEvent) error
}
