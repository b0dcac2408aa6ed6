package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client 封装了 go-redis 的 UniversalClient，并提供 Lua 脚本管理。
// addrs 为单地址时退化为普通客户端，多地址时使用集群客户端。
type Client struct {
	rdb redis.UniversalClient

	scriptLock sync.RWMutex
	scripts    map[string]*redis.Script
}

// NewClient 创建一个 Redis 客户端，addrs 格式为 "host1:port1,host2:port2"。
func NewClient(addrs string) (*Client, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addrs, err)
	}

	return &Client{
		rdb:     rdb,
		scripts: make(map[string]*redis.Script),
	}, nil
}

// GetClient 返回底层客户端，供需要 pipeline 等高级操作的调用方使用。
func (c *Client) GetClient() redis.UniversalClient {
	return c.rdb
}

// LoadScriptFromContent 注册一段 Lua 脚本，之后可通过 RunScript 按名字执行。
func (c *Client) LoadScriptFromContent(name, content string) error {
	c.scriptLock.Lock()
	defer c.scriptLock.Unlock()
	if _, exists := c.scripts[name]; exists {
		return fmt.Errorf("script %q already registered", name)
	}
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行已注册的 Lua 脚本（优先 EVALSHA，未加载时自动回退 EVAL）。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.scriptLock.RLock()
	script, ok := c.scripts[name]
	c.scriptLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q not registered", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.rdb.Close()
}
