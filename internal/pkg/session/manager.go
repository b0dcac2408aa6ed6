package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "push:session:"
	sessionTTL       = 24 * time.Hour
)

// Manager 维护 "用户 -> 推送网关节点" 的会话映射。
// 用户的 WebSocket 连到哪个 push-gateway 节点，消息就要路由到哪个节点，
// 该映射存放在 Redis 中供 notification-service 查询。
type Manager struct {
	rdb redis.UniversalClient
}

// NewManager 创建一个会话管理器。
func NewManager(rdb redis.UniversalClient) *Manager {
	return &Manager{rdb: rdb}
}

// SetUserGateway 记录用户连接到的网关节点。
func (m *Manager) SetUserGateway(ctx context.Context, userID, nodeID string) error {
	return m.rdb.Set(ctx, sessionKeyPrefix+userID, nodeID, sessionTTL).Err()
}

// GetUserGateway 查询用户所在的网关节点，用户不在线时返回空串。
func (m *Manager) GetUserGateway(ctx context.Context, userID string) (string, error) {
	nodeID, err := m.rdb.Get(ctx, sessionKeyPrefix+userID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query session for user %s: %w", userID, err)
	}
	return nodeID, nil
}

// RemoveUserGateway 在连接断开时清理会话。
func (m *Manager) RemoveUserGateway(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, sessionKeyPrefix+userID).Err()
}
