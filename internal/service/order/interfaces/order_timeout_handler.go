package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
	"academy/internal/service/order/application"
	"academy/internal/service/order/domain"
)

// OrderTimeOutConsumerAdapter 是一个驱动适配器：
// 监听到期的支付超时检查消息并驱动应用服务。
type OrderTimeOutConsumerAdapter struct {
	reader         *kafka.Reader
	appSvc         *application.OrderApplicationService
	failureHandler *mq.FailureHandler
	wg             sync.WaitGroup
	stopped        bool
}

// NewOrderTimeOutConsumerAdapter 创建一个新的 Kafka 消费者适配器。
func NewOrderTimeOutConsumerAdapter(reader *kafka.Reader, appSvc *application.OrderApplicationService, failureHandler *mq.FailureHandler) *OrderTimeOutConsumerAdapter {
	return &OrderTimeOutConsumerAdapter{
		reader:         reader,
		appSvc:         appSvc,
		failureHandler: failureHandler,
	}
}

// Start 开始监听 Kafka 主题。这是一个长期运行的方法。
func (a *OrderTimeOutConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().
			Str("topic", a.reader.Config().Topic).
			Msg("Order timeout consumer started")
		for {
			if a.stopped {
				return
			}
			// 使用 FetchMessage 而不是 ReadMessage，以便手动控制提交
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Order timeout consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Could not read message, retrying")
				time.Sleep(1 * time.Second) // 避免快速失败循环
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

// Stop 优雅地停止消费者。
func (a *OrderTimeOutConsumerAdapter) Stop(ctx context.Context) {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Msg("Order timeout consumer stopped")
}

// processMessage 反序列化消息并调用应用服务，失败的消息转入死信主题。
func (a *OrderTimeOutConsumerAdapter) processMessage(ctx context.Context, msg kafka.Message) {
	tracer := otel.Tracer("order-service")
	ctx, span := tracer.Start(ctx, "consumer.OrderTimeoutCheck")
	defer span.End()

	var event domain.OrderTimeoutCheckEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		span.RecordError(err)
		a.failureHandler.Handle(ctx, msg, err)
		return
	}

	if err := a.appSvc.ProcessTimeoutCheck(ctx, &event); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", event.OrderID).
			Msg("Failed to handle timeout check event")
		a.failureHandler.Handle(ctx, msg, err)
	}
}
