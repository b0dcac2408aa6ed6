package interfaces

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
)

// DltConsumerAdapter 监听通知死信队列并记录日志
type DltConsumerAdapter struct {
	reader  *kafka.Reader
	wg      sync.WaitGroup
	stopped bool
}

func NewDltConsumerAdapter(reader *kafka.Reader) *DltConsumerAdapter {
	return &DltConsumerAdapter{reader: reader}
}

func (a *DltConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("DLT consumer started")
		for {
			if a.stopped {
				return
			}
			msg, err := a.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("DLT consumer shutting down")
					return
				}
				continue
			}

			headers := make(map[string]string)
			for _, h := range msg.Headers {
				headers[h.Key] = string(h.Value)
			}
			logger.Ctx(ctx).Error().
				Str("reason", "dead_letter_message_received").
				Str("original_topic", headers[mq.HeaderOriginalTopic]).
				Str("original_partition", headers[mq.HeaderOriginalPartition]).
				Str("original_offset", headers[mq.HeaderOriginalOffset]).
				Str("exception_message", headers[mq.HeaderExceptionMessage]).
				Str("key", string(msg.Key)).
				Str("value", string(msg.Value)).
				Msg("CRITICAL: Dead letter notification received")

			a.reader.CommitMessages(ctx, msg)
		}
	}()
	return nil
}

func (a *DltConsumerAdapter) Stop(ctx context.Context) {
	a.stopped = true
	a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("DLT consumer stopped")
}
