// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/logger"
	"academy/internal/pkg/metrics"
	"academy/internal/service/order/application/saga"
	"academy/internal/service/order/domain"
	"academy/internal/service/order/domain/port"
)

// OrderApplicationService 负责下单流程的编排。
// 结算由 SettlementService 单独承担，两者共享仓储但职责不同。
type OrderApplicationService struct {
	orderRepo         domain.OrderRepository
	processingTimeout time.Duration
	tracer            trace.Tracer

	couponService port.CouponService
	catalog       port.CourseCatalog
	gateway       port.PaymentGateway
	scheduler     port.DelayScheduler
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	processingTimeout time.Duration,
	tracer trace.Tracer,
	couponService port.CouponService,
	catalog port.CourseCatalog,
	gateway port.PaymentGateway,
	scheduler port.DelayScheduler,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:         orderRepo,
		processingTimeout: processingTimeout,
		tracer:            tracer,
		couponService:     couponService,
		catalog:           catalog,
		gateway:           gateway,
		scheduler:         scheduler,
	}
}

// CreateOrder 是下单用例的入口：
// 服务端复核课程价格与优惠券，创建 PENDING 订单并向网关申请订单句柄。
// 此处绝不占用券的余量，核销只发生在结算事务里。
func (s *OrderApplicationService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int64("course.id", req.CourseID),
		attribute.String("coupon.code", req.CouponCode),
	)

	// 为每次下单设置独立的处理超时
	processingCtx, cancel := context.WithTimeout(ctx, s.processingTimeout)
	defer cancel()

	orderContext := &saga.OrderContext{
		Ctx:           processingCtx,
		Tracer:        s.tracer,
		UserID:        req.UserID,
		CourseID:      req.CourseID,
		CouponCode:    req.CouponCode,
		CouponService: s.couponService,
		Catalog:       s.catalog,
		Gateway:       s.gateway,
		Scheduler:     s.scheduler,
		Repo:          s.orderRepo,
	}

	chain := s.buildChain()
	if err := chain.Handle(orderContext); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Checkout chain failed")
		logger.Ctx(ctx).Warn().Err(err).
			Int64("user_id", req.UserID).
			Msg("Checkout failed, triggering compensation")
		metrics.CheckoutTotal.WithLabelValues("rejected").Inc()

		orderContext.TriggerCompensation(processingCtx)
		return nil, err
	}

	order := orderContext.Order
	metrics.CheckoutTotal.WithLabelValues("created").Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("gateway_ref", order.GatewayOrderRef).
		Float64("final_price", order.FinalPrice).
		Msg("Order created, awaiting payment")

	return &CreateOrderResponse{
		OrderID:         order.ID,
		GatewayOrderRef: order.GatewayOrderRef,
		OriginalPrice:   order.OriginalPrice,
		DiscountAmount:  order.DiscountAmount,
		FinalPrice:      order.FinalPrice,
		Status:          order.Status,
	}, nil
}

// GetOrder 查询订单快照。
func (s *OrderApplicationService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderDTO(order), nil
}

// ProcessTimeoutCheck 处理到期的支付超时检查任务。
// 订单仍在 PENDING 时将其置为 FAILED（条件更新，与并发结算安全共存）。
func (s *OrderApplicationService) ProcessTimeoutCheck(ctx context.Context, event *domain.OrderTimeoutCheckEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.ProcessTimeoutCheck", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.Int64("user.id", event.UserID),
	)

	order, err := s.orderRepo.FindByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// 订单不存在的超时任务直接丢弃
			return nil
		}
		span.RecordError(err)
		return err
	}
	if order.Status.Terminal() {
		return nil
	}

	logger.Ctx(ctx).Warn().
		Str("order_id", event.OrderID).
		Msg("Order not paid within the time limit, marking as FAILED")

	// MarkFailed 仅在订单仍为 PENDING 时生效，
	// 与同一时刻到达的结算回调竞争时以数据库为准
	if err := s.orderRepo.MarkFailed(ctx, event.OrderID, "PaymentTimeout"); err != nil {
		span.RecordError(err)
		return err
	}
	span.AddEvent("Order expired and marked FAILED")
	return nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := saga.NewEnrollmentGuardHandler()
	chain.
		SetNext(saga.NewCoursePriceHandler()).
		SetNext(saga.NewCouponCheckHandler()).
		SetNext(saga.NewCreateOrderHandler()).
		SetNext(saga.NewGatewayOrderHandler()).
		SetNext(saga.NewScheduleTimeoutHandler())

	return chain
}
