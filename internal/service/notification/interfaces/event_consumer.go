package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
	"academy/internal/service/notification/application"
	"academy/internal/service/notification/domain"
)

// EventConsumerAdapter 消费结算事件并驱动通知服务。
type EventConsumerAdapter struct {
	reader         *kafka.Reader
	appSvc         *application.NotificationService
	failureHandler *mq.FailureHandler
	wg             sync.WaitGroup
	stopped        bool
}

func NewEventConsumerAdapter(reader *kafka.Reader, appSvc *application.NotificationService, failureHandler *mq.FailureHandler) *EventConsumerAdapter {
	return &EventConsumerAdapter{
		reader:         reader,
		appSvc:         appSvc,
		failureHandler: failureHandler,
	}
}

func (a *EventConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().
			Str("topic", a.reader.Config().Topic).
			Msg("Notification event consumer started")
		for {
			if a.stopped {
				return
			}
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Notification consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Could not read message, retrying")
				time.Sleep(1 * time.Second)
				continue
			}

			newCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			a.processMessage(newCtx, msg)

			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit messages")
			}
		}
	}()
	return nil
}

func (a *EventConsumerAdapter) Stop(ctx context.Context) {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Msg("Notification event consumer stopped")
}

func (a *EventConsumerAdapter) processMessage(ctx context.Context, msg kafka.Message) {
	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "consumer.PaymentEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", msg.Topic),
		attribute.String("messaging.kafka.message.key", string(msg.Key)),
	)

	var event domain.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		a.failureHandler.Handle(ctx, msg, err)
		return
	}

	if err := a.appSvc.ProcessEvent(ctx, &event); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", event.OrderID).
			Msg("Failed to process notification event")
		a.failureHandler.Handle(ctx, msg, err)
	}
}
