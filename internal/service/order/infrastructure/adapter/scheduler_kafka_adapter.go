package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/constants"
	"academy/internal/pkg/mq"
	"academy/internal/service/order/domain"
)

const (
	// 支付等待窗口与延迟主题的等级匹配
	paymentDeadline = 10 * time.Minute
	delayTopic      = constants.DelayTopic10m
)

// SchedulerKafkaAdapter 实现了 port.DelayScheduler 接口。
// 超时检查任务先进入延迟主题，由延迟调度器在到期后
// 按消息头里的真实主题转发回订单服务。
type SchedulerKafkaAdapter struct {
	delayWriter *kafka.Writer
}

// NewSchedulerKafkaAdapter 创建一个新的延迟任务调度器适配器。
func NewSchedulerKafkaAdapter(brokers []string) *SchedulerKafkaAdapter {
	return &SchedulerKafkaAdapter{
		delayWriter: mq.NewKafkaWriter(brokers, delayTopic),
	}
}

// SchedulePaymentTimeout 投递一条到期后回流的支付超时检查消息。
func (a *SchedulerKafkaAdapter) SchedulePaymentTimeout(ctx context.Context, orderID string, userID int64, creationTime time.Time) error {
	taskEvent := domain.OrderTimeoutCheckEvent{
		TraceID:      trace.SpanFromContext(ctx).SpanContext().TraceID().String(),
		OrderID:      orderID,
		UserID:       userID,
		CreationTime: creationTime,
	}
	taskBytes, err := json.Marshal(taskEvent)
	if err != nil {
		return err
	}

	delayTimestamp := creationTime.Add(paymentDeadline).Format(time.RFC3339)

	msg := kafka.Message{
		Key:   []byte(orderID),
		Value: taskBytes,
		Headers: []kafka.Header{
			{Key: constants.HeaderRealTopic, Value: []byte(constants.OrderTimeoutCheckTopic)},
			{Key: constants.HeaderDelayTimestamp, Value: []byte(delayTimestamp)},
		},
	}
	mq.InjectTraceContext(ctx, &msg.Headers)

	return a.delayWriter.WriteMessages(ctx, msg)
}

// Close 关闭底层的 Kafka writer。
func (a *SchedulerKafkaAdapter) Close() error {
	return a.delayWriter.Close()
}
