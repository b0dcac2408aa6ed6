package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"academy/internal/service/order/domain"
)

// CouponCheckHandler 在服务端复核优惠券。
// 即使客户端已经展示过折扣，这里也必须重新校验并重新计算金额。
// 校验通过不会占用券的余量，余量只在结算事务里条件扣减。
type CouponCheckHandler struct {
	NextHandler
}

func NewCouponCheckHandler() *CouponCheckHandler {
	return &CouponCheckHandler{}
}

func (h *CouponCheckHandler) Handle(orderCtx *OrderContext) error {
	if orderCtx.CouponCode == "" {
		return h.executeNext(orderCtx)
	}

	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CouponCheck")
	defer span.End()

	verdict, err := orderCtx.CouponService.Validate(ctx, orderCtx.CouponCode, orderCtx.CourseID, orderCtx.UserID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "coupon validation call failed")
	}
	if !verdict.Valid {
		span.SetAttributes(attribute.String("coupon.reject_reason", verdict.Reason))
		return errors.Wrapf(domain.ErrCouponRejected, "%s: %s", verdict.Reason, verdict.Message)
	}

	span.SetAttributes(
		attribute.Int64("coupon.id", verdict.CouponID),
		attribute.Float64("coupon.discount", verdict.DiscountAmount),
	)
	orderCtx.Verdict = verdict
	return h.executeNext(orderCtx)
}
