// internal/service/order/application/settlement.go
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
	"academy/internal/service/order/domain"
	"academy/internal/service/order/domain/port"
)

const (
	settlementMaxAttempts = 3
	settlementBackoffBase = 100 * time.Millisecond
)

// SettlementService 是支付回调的结算引擎，订单状态机的唯一推进者。
// 每个网关订单号只会被结算一次：重复回调返回首次结算的结果。
type SettlementService struct {
	store    domain.SettlementStore
	gateway  port.PaymentGateway
	notifier port.NotificationProducer
	tracer   trace.Tracer
}

func NewSettlementService(store domain.SettlementStore, gateway port.PaymentGateway, notifier port.NotificationProducer, tracer trace.Tracer) *SettlementService {
	return &SettlementService{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		tracer:   tracer,
	}
}

// Settle 处理一次支付确认回调。
// 流程：查单 → 幂等重放 → 验签 → 单事务提交（条件核销 + 报名 + 置 PAID）。
// 事务内的瞬时错误做有限次退避重试；业务性失败把订单置为 FAILED 终态。
func (s *SettlementService) Settle(ctx context.Context, req *SettleRequest) (*SettleResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.SettlePayment")
	defer span.End()

	span.SetAttributes(attribute.String("gateway.order_ref", req.GatewayOrderRef))

	order, err := s.store.FindOrderByGatewayRef(ctx, req.GatewayOrderRef)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	// 幂等重放：网关会重试 webhook，终态订单直接返回已存储的结果
	if order.Status.Terminal() {
		metrics.SettlementTotal.WithLabelValues("replayed").Inc()
		span.AddEvent("Idempotent replay, returning stored result")
		return s.storedResult(order), nil
	}

	// 验签先于一切写操作，签名不可信时不会提交任何核销或报名
	if !s.gateway.VerifySignature(req.GatewayOrderRef, req.GatewayPaymentRef, req.GatewaySignature) {
		logger.Ctx(ctx).Error().
			Str("order_id", order.ID).
			Str("gateway_ref", req.GatewayOrderRef).
			Msg("AUDIT: payment signature verification failed")
		span.SetStatus(codes.Error, "signature verification failed")
		return s.failOrder(ctx, order, domain.ErrPaymentVerificationFailed,
			"Payment could not be verified. Please contact support if you were charged.")
	}

	start := time.Now()
	err = s.commitWithRetry(ctx, order)
	metrics.SettlementDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		// 提交成功后通知协作方，失败只记录，绝不回滚结算
		metrics.SettlementTotal.WithLabelValues("paid").Inc()
		s.emitNotification(ctx, &domain.NotificationEvent{
			Type:     domain.EventPaymentConfirmed,
			UserID:   order.UserID,
			CourseID: order.CourseID,
			OrderID:  order.ID,
			Amount:   order.FinalPrice,
		})
		logger.Ctx(ctx).Info().
			Str("order_id", order.ID).
			Msg("Settlement committed, order PAID")
		return &SettleResponse{OrderID: order.ID, Status: domain.StatePaid}, nil

	case errors.Is(err, domain.ErrCouponLimitRaceLost):
		metrics.SettlementTotal.WithLabelValues("race_lost").Inc()
		// 不允许悄悄去掉折扣按原价收款：明确失败并让用户重新下单
		return s.failOrder(ctx, order, err,
			"The coupon ran out while your payment was processing. Please retry without the coupon.")

	case errors.Is(err, domain.ErrOrderNotPending):
		// 两个回调同时越过了终态检查，另一个已经提交：按重放处理
		metrics.SettlementTotal.WithLabelValues("replayed").Inc()
		settled, ferr := s.store.FindOrderByGatewayRef(ctx, req.GatewayOrderRef)
		if ferr != nil {
			return nil, ferr
		}
		return s.storedResult(settled), nil

	case errors.Is(err, domain.ErrPerUserLimitExceeded),
		errors.Is(err, domain.ErrAlreadyEnrolled):
		metrics.SettlementTotal.WithLabelValues("failed").Inc()
		return s.failOrder(ctx, order, err,
			"Payment could not be settled. Please contact support for a refund.")

	default:
		// 瞬时错误重试耗尽：订单保持 PENDING 交给人工对账
		metrics.SettlementTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement transaction failed")
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("Settlement failed after retries, order left PENDING for reconciliation")
		return nil, errors.Wrap(err, "settlement failed, please contact support")
	}
}

// commitWithRetry 对结算事务做有限次退避重试。
// 业务性失败（限量竞争、重复报名）立即返回，不参与重试。
func (s *SettlementService) commitWithRetry(ctx context.Context, order *domain.Order) error {
	var lastErr error
	for attempt := 0; attempt < settlementMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := settlementBackoffBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			logger.Ctx(ctx).Warn().
				Str("order_id", order.ID).
				Int("attempt", attempt+1).
				Msg("Retrying settlement transaction")
		}

		lastErr = s.store.CommitPaid(ctx, order)
		if lastErr == nil || !isTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// failOrder 把订单推进到 FAILED 终态并返回结构化结果。
// 并发回调抢先提交了终态时，按重放返回已存储的结果。
func (s *SettlementService) failOrder(ctx context.Context, order *domain.Order, cause error, message string) (*SettleResponse, error) {
	reason := domain.FailureReasonOf(cause)
	if err := s.store.MarkFailed(ctx, order.ID, reason); err != nil {
		if errors.Is(err, domain.ErrOrderNotPending) {
			// 另一个回调已经把订单推到了终态（通常是 PAID），
			// 此时不能对外报告 FAILED，返回数据库里的真实结果
			metrics.SettlementTotal.WithLabelValues("replayed").Inc()
			settled, ferr := s.store.FindOrderByGatewayRef(ctx, order.GatewayOrderRef)
			if ferr != nil {
				return nil, ferr
			}
			return s.storedResult(settled), nil
		}
		// 置失败本身失败时订单仍是 PENDING，只能上抛让网关稍后重试回调
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("CRITICAL: failed to mark order FAILED")
		return nil, err
	}

	s.emitNotification(ctx, &domain.NotificationEvent{
		Type:     domain.EventPaymentFailed,
		UserID:   order.UserID,
		CourseID: order.CourseID,
		OrderID:  order.ID,
		Message:  message,
	})

	return &SettleResponse{
		OrderID: order.ID,
		Status:  domain.StateFailed,
		Reason:  reason,
		Message: message,
	}, nil
}

// storedResult 从终态订单还原首次结算的结果。
func (s *SettlementService) storedResult(order *domain.Order) *SettleResponse {
	resp := &SettleResponse{OrderID: order.ID, Status: order.Status}
	if order.Status == domain.StateFailed {
		resp.Reason = order.FailureReason
	}
	return resp
}

func (s *SettlementService) emitNotification(ctx context.Context, event *domain.NotificationEvent) {
	if err := s.notifier.Emit(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_id", event.OrderID).
			Msg("Failed to emit settlement notification")
	}
}

// isTransient 判断错误是否值得重试。
// 所有业务语义的 sentinel 错误与上下文取消都不是瞬时错误。
func isTransient(err error) bool {
	switch {
	case errors.Is(err, domain.ErrCouponLimitRaceLost),
		errors.Is(err, domain.ErrPerUserLimitExceeded),
		errors.Is(err, domain.ErrAlreadyEnrolled),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrOrderNotPending),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
