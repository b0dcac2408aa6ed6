package mq

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"academy/internal/pkg/logger"
)

// 死信消息头，记录失败现场，便于后续人工分析与重放。
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionFqcn     = "x-exception-fqcn"
	HeaderExceptionMessage  = "x-exception-message"
)

// FailureHandler 负责将处理失败的消息转移到死信主题（DLT）。
// 消费者在业务处理失败后调用 Handle，随后正常提交 offset，
// 保证失败消息不会阻塞分区，也不会丢失。
type FailureHandler struct {
	dltWriter *kafka.Writer
}

// NewFailureHandler 创建一个失败处理器，dltTopic 通常为 "<topic>.DLT"。
func NewFailureHandler(brokers []string, dltTopic string) *FailureHandler {
	return &FailureHandler{
		dltWriter: NewKafkaWriter(brokers, dltTopic),
	}
}

// Handle 把失败消息连同失败原因一起写入死信主题。
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	dltMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", cause))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		),
	}
	InjectTraceContext(ctx, &dltMsg.Headers)

	if err := h.dltWriter.WriteMessages(ctx, dltMsg); err != nil {
		// 写 DLT 失败只能记录日志，不能再抛出，否则会造成消费循环卡死
		logger.Ctx(ctx).Error().Err(err).
			Str("original_topic", msg.Topic).
			Msg("CRITICAL: failed to move message to DLT")
		return
	}
	logger.Ctx(ctx).Warn().
		Str("original_topic", msg.Topic).
		Str("cause", cause.Error()).
		Msg("Message moved to DLT")
}

// Close 关闭底层 writer。
func (h *FailureHandler) Close() error {
	return h.dltWriter.Close()
}
