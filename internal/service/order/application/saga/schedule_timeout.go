package saga

import (
	"time"

	"academy/internal/pkg/logger"
)

// ScheduleTimeoutHandler 投递支付超时检查任务。
// 投递失败不应让下单失败：订单已创建成功，超时兜底可以靠对账补偿。
type ScheduleTimeoutHandler struct {
	NextHandler
}

func NewScheduleTimeoutHandler() *ScheduleTimeoutHandler {
	return &ScheduleTimeoutHandler{}
}

func (h *ScheduleTimeoutHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ScheduleTimeout")
	defer span.End()

	err := orderCtx.Scheduler.SchedulePaymentTimeout(ctx, orderCtx.Order.ID, orderCtx.Order.UserID, time.Now())
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", orderCtx.Order.ID).
			Msg("Failed to schedule payment timeout check")
	}

	return h.executeNext(orderCtx)
}
