package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/logger"
	"academy/internal/service/order/domain"
	"academy/internal/service/order/domain/port"
)

// OrderContext 在下单编排链中传递上下文数据。
// 所有外部依赖都是抽象的出站端口，便于在测试中替换。
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Tracer trace.Tracer

	// 请求参数
	UserID     int64
	CourseID   int64
	CouponCode string

	// 链上各环节的中间产物
	Course  *port.CourseInfo
	Verdict *port.CouponVerdict

	// 依赖出站端口
	CouponService port.CouponService
	Catalog       port.CourseCatalog
	Gateway       port.PaymentGateway
	Scheduler     port.DelayScheduler
	Repo          domain.OrderRepository

	// Saga 补偿函数，逆序执行
	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿函数，后注册的先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 逆序执行所有已注册的补偿函数。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Int("compensations", len(c.compensations)).
		Msg("Executing saga compensation functions")
	for _, comp := range c.compensations {
		comp(ctx)
	}
}

// Handler 是编排链上一个环节的接口。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
