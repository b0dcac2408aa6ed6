package application

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/logger"
	"academy/internal/service/notification/domain"
	"academy/internal/service/notification/domain/port"
)

// NotificationService 负责通知的落库与实时路由。
// 落库是必须成功的步骤；实时推送尽力而为，用户离线时只留下未送达的记录。
type NotificationService struct {
	repo   domain.NotificationRepository
	router port.PushRouter
	tracer trace.Tracer
}

func NewNotificationService(repo domain.NotificationRepository, router port.PushRouter, tracer trace.Tracer) *NotificationService {
	return &NotificationService{repo: repo, router: router, tracer: tracer}
}

// ProcessEvent 处理一条结算事件：持久化通知并尝试实时推送。
func (s *NotificationService) ProcessEvent(ctx context.Context, event *domain.PaymentEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.ProcessNotificationEvent", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("event.type", event.Type),
		attribute.Int64("user.id", event.UserID),
		attribute.String("order.id", event.OrderID),
	)

	notification := domain.FromEvent(event)
	if err := s.repo.Save(ctx, notification); err != nil {
		span.RecordError(err)
		return err
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		span.RecordError(err)
		return err
	}

	delivered, err := s.router.RouteToUser(ctx, notification.UserID, payload)
	if err != nil {
		// 推送失败不算消费失败，通知已落库
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).
			Int64("user_id", notification.UserID).
			Msg("Failed to route notification to push gateway")
		return nil
	}
	if !delivered {
		logger.Ctx(ctx).Debug().
			Int64("user_id", notification.UserID).
			Msg("User offline, notification stored for later retrieval")
		return nil
	}

	if err := s.repo.MarkDelivered(ctx, notification.ID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Int64("notification_id", notification.ID).
			Msg("Failed to mark notification delivered")
	}
	span.AddEvent("Notification routed to push gateway")
	return nil
}

// ListNotifications 返回用户最近的通知。
func (s *NotificationService) ListNotifications(ctx context.Context, userID int64, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
