package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// GatewayOrderHandler 向支付网关申请订单句柄并回填到订单上。
// 网关按最终金额建单，金额由服务端计算，绝不采用客户端的数字。
type GatewayOrderHandler struct {
	NextHandler
}

func NewGatewayOrderHandler() *GatewayOrderHandler {
	return &GatewayOrderHandler{}
}

func (h *GatewayOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.GatewayOrder")
	defer span.End()

	ref, err := orderCtx.Gateway.CreateGatewayOrder(ctx, orderCtx.Order.FinalPrice, orderCtx.Order.ID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to create gateway order")
	}

	if err := orderCtx.Repo.UpdateGatewayRef(ctx, orderCtx.Order.ID, ref); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to persist gateway order ref")
	}
	orderCtx.Order.GatewayOrderRef = ref

	span.SetAttributes(attribute.String("gateway.order_ref", ref))
	return h.executeNext(orderCtx)
}
