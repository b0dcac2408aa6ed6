package port

import (
	"context"
	"time"
)

// DelayScheduler 调度支付超时检查任务。
// 下单成功后投递一条延迟消息，到期后回到订单服务检查支付状态。
type DelayScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderID string, userID int64, creationTime time.Time) error
}
