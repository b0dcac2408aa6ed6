package saga

import (
	"context"

	"github.com/pkg/errors"

	"academy/internal/pkg/logger"
	"academy/internal/service/order/domain"
)

// CreateOrderHandler 负责创建并持久化 PENDING 订单。
// 订单落库后，后续环节失败时由补偿函数把它置为 FAILED。
type CreateOrderHandler struct {
	NextHandler
}

func NewCreateOrderHandler() *CreateOrderHandler {
	return &CreateOrderHandler{}
}

func (h *CreateOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CreateOrder")
	defer span.End()

	order, err := domain.NewOrder(orderCtx.UserID, orderCtx.CourseID, orderCtx.Course.Price)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if orderCtx.Verdict != nil {
		order.ApplyCoupon(
			orderCtx.Verdict.CouponID,
			orderCtx.Verdict.Code,
			orderCtx.Verdict.DiscountAmount,
			orderCtx.Verdict.FinalPrice,
		)
	}

	if err := orderCtx.Repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to save pending order")
	}
	span.AddEvent("Pending order saved to DB")
	orderCtx.Order = order

	orderCtx.AddCompensation(func(ctx context.Context) {
		if err := orderCtx.Repo.MarkFailed(ctx, order.ID, "CheckoutAborted"); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", order.ID).
				Msg("CRITICAL: failed to mark order FAILED during compensation")
		}
	})

	return h.executeNext(orderCtx)
}
