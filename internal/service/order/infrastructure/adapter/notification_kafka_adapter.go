package adapter

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"academy/internal/pkg/constants"
	"academy/internal/pkg/mq"
	"academy/internal/service/order/domain"
)

// NotificationKafkaAdapter 实现了 port.NotificationProducer 接口。
// 按 UserID 作为消息 Key，同一用户的通知进入同一分区保持有序。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

// NewNotificationKafkaAdapter 创建一个新的通知生产者适配器。
func NewNotificationKafkaAdapter(brokers []string) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{
		writer: mq.NewKafkaWriter(brokers, constants.NotificationTopic),
	}
}

// Emit 发送一条结算通知事件，追踪上下文自动注入消息头。
func (a *NotificationKafkaAdapter) Emit(ctx context.Context, event *domain.NotificationEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification event")
	}
	key := []byte(strconv.FormatInt(event.UserID, 10))
	return mq.ProduceMessage(ctx, a.writer, key, eventBytes)
}

// Close 关闭底层的 Kafka writer。
func (a *NotificationKafkaAdapter) Close() error {
	return a.writer.Close()
}
