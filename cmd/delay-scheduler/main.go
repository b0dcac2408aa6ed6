// cmd/delay-scheduler/main.go
package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
	"academy/internal/pkg/zookeeper"
)

const (
	serviceName  = "delay-scheduler"
	servicePort  = 8085
	pollInterval = 1 * time.Second
)

// 支持的延迟级别，头部未携带投递时间戳时按级别兜底计算。
var delayLevels = map[string]time.Duration{
	constants.DelayTopic5s:  5 * time.Second,
	constants.DelayTopic1m:  1 * time.Minute,
	constants.DelayTopic10m: 10 * time.Minute,
}

// Scheduler 轮询一个延迟主题，把到期的消息转发到真实业务主题。
// 同一延迟级别在集群中只有一个活跃实例，由 ZooKeeper 锁保证。
type Scheduler struct {
	level   string
	delay   time.Duration
	brokers []string
	reader  *kafka.Reader
	tracer  trace.Tracer

	writerLock sync.Mutex
	writers    map[string]*kafka.Writer // key: realTopic
}

func NewScheduler(brokers []string, level string, delay time.Duration) *Scheduler {
	return &Scheduler{
		level:   level,
		delay:   delay,
		brokers: brokers,
		reader:  mq.NewKafkaReader(brokers, level, serviceName+"-group-"+level),
		tracer:  otel.Tracer(serviceName),
	}
}

// Run 先竞争该延迟级别的 leader 锁，拿到后开始轮询。
// 锁是临时节点，实例崩溃后其他实例会自动接管。
func (s *Scheduler) Run(ctx context.Context, zkConn *zk.Conn) {
	defer s.reader.Close()
	defer s.closeWriters()

	lock, err := zookeeper.NewDistributedLock(zkConn, serviceName+"-"+s.level)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("level", s.level).Msg("Failed to create leader lock")
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := lock.Lock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("level", s.level).Msg("Leader election attempt failed, retrying")
			continue
		}
		break
	}
	defer lock.Unlock()
	logger.Ctx(ctx).Info().Str("level", s.level).Msg("Became leader for delay level, polling started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.checkAndPublish(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Str("level", s.level).Msg("Shutting down delay level polling")
			return
		}
	}
}

// checkAndPublish 从队头开始消费，到期的消息转发并提交，
// 遇到未到期的队头消息即停止，等待下一次 tick。
func (s *Scheduler) checkAndPublish(parentCtx context.Context) {
	for {
		fetchCtx, cancel := context.WithTimeout(parentCtx, pollInterval)
		msg, err := s.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			// 没有新消息或正在关停，等待下一次 tick
			return
		}

		ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)
		ctx, span := s.tracer.Start(ctx, "scheduler.CheckAndPublish", trace.WithAttributes(
			attribute.String("delay.level", s.level),
		))

		if due := s.deliveryTime(msg); time.Now().UTC().Before(due) {
			// 队头消息未到期，后续消息一定更晚
			span.AddEvent("HeadMessageNotDue")
			span.End()
			return
		}

		realTopic := headerValue(msg.Headers, constants.HeaderRealTopic)
		if realTopic == "" {
			logger.Ctx(ctx).Error().
				Str("level", s.level).
				Msg("Delay message missing real-topic header, skipping")
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit skipped message")
			}
			span.End()
			continue
		}

		if err := s.publish(ctx, realTopic, msg); err != nil {
			// 投递失败不提交 offset，等待下次轮询重试
			logger.Ctx(ctx).Error().Err(err).
				Str("real_topic", realTopic).
				Msg("Failed to publish due message")
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to publish to real topic")
			span.End()
			return
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("level", s.level).Msg("Failed to commit after publish")
			span.RecordError(err)
			span.End()
			return
		}
		span.AddEvent("MessagePublishedAndCommitted", trace.WithAttributes(attribute.String("real.topic", realTopic)))
		span.End()
	}
}

// deliveryTime 优先使用消息头中的精确投递时间戳，缺失时按级别延迟兜底。
func (s *Scheduler) deliveryTime(msg kafka.Message) time.Time {
	if raw := headerValue(msg.Headers, constants.HeaderDelayTimestamp); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC()
		}
	}
	return msg.Time.Add(s.delay).UTC()
}

func (s *Scheduler) publish(ctx context.Context, realTopic string, msg kafka.Message) error {
	s.writerLock.Lock()
	writer, exists := s.writers[realTopic]
	if !exists {
		if s.writers == nil {
			s.writers = make(map[string]*kafka.Writer)
		}
		writer = mq.NewKafkaWriter(s.brokers, realTopic)
		s.writers[realTopic] = writer
	}
	s.writerLock.Unlock()

	publishMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	}
	mq.InjectTraceContext(ctx, &publishMsg.Headers)
	return writer.WriteMessages(ctx, publishMsg)
}

func (s *Scheduler) closeWriters() {
	s.writerLock.Lock()
	defer s.writerLock.Unlock()
	for topic, writer := range s.writers {
		if err := writer.Close(); err != nil {
			log.Printf("ERROR: Failed to close writer for topic %s: %v", topic, err)
		}
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func main() {
	var (
		cancel context.CancelFunc
		eg     errgroup.Group
		zkConn *zk.Conn
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()

			var err error
			zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
			if err != nil {
				log.Fatalf("failed to connect to zookeeper: %v", err)
			}

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			// 每个延迟级别一个独立的调度器 goroutine
			for level, delay := range delayLevels {
				scheduler := NewScheduler(cfg.Infra.Kafka.Brokers, level, delay)
				eg.Go(func() error {
					scheduler.Run(ctx, zkConn)
					return nil
				})
			}
		},
		OnShutdown: func(ctx context.Context) {
			if cancel != nil {
				cancel()
			}
			eg.Wait()
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
