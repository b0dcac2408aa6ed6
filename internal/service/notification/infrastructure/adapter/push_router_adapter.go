package adapter

import (
	"context"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"

	"academy/internal/pkg/constants"
	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
	"academy/internal/pkg/session"
)

// KafkaPushRouterAdapter 实现 port.PushRouter。
// 先查 Redis 会话拿到用户所在的推送网关节点，
// 再把消息写入该节点专属的 Kafka 主题（prefix + nodeID）。
type KafkaPushRouterAdapter struct {
	brokers    []string
	sessionMgr *session.Manager

	mu      sync.RWMutex
	writers map[string]*kafka.Writer // nodeID -> writer
}

func NewKafkaPushRouterAdapter(brokers []string, sessionMgr *session.Manager) *KafkaPushRouterAdapter {
	return &KafkaPushRouterAdapter{
		brokers:    brokers,
		sessionMgr: sessionMgr,
		writers:    make(map[string]*kafka.Writer),
	}
}

func (a *KafkaPushRouterAdapter) RouteToUser(ctx context.Context, userID int64, payload []byte) (bool, error) {
	uid := strconv.FormatInt(userID, 10)

	nodeID, err := a.sessionMgr.GetUserGateway(ctx, uid)
	if err != nil {
		return false, err
	}
	if nodeID == "" {
		// 用户不在线
		return false, nil
	}

	writer := a.writerFor(nodeID)
	if err := mq.ProduceMessage(ctx, writer, []byte(uid), payload); err != nil {
		return false, err
	}

	logger.Ctx(ctx).Debug().
		Str("user_id", uid).
		Str("node_id", nodeID).
		Msg("Notification routed to push gateway node")
	return true, nil
}

func (a *KafkaPushRouterAdapter) writerFor(nodeID string) *kafka.Writer {
	a.mu.RLock()
	writer, ok := a.writers[nodeID]
	a.mu.RUnlock()
	if ok {
		return writer
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if writer, ok = a.writers[nodeID]; ok {
		return writer
	}
	writer = mq.NewKafkaWriter(a.brokers, constants.PushTopicPrefix+nodeID)
	a.writers[nodeID] = writer
	return writer
}

func (a *KafkaPushRouterAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, w := range a.writers {
		w.Close()
	}
	a.writers = make(map[string]*kafka.Writer)
	return nil
}
