// cmd/push-gateway/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/logger"
	"academy/internal/pkg/mq"
	pkgredis "academy/internal/pkg/redis"
	"academy/internal/pkg/session"
)

const (
	servicePort = 8088

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	nodeID   = "push-gateway-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
			return true
		},
	}
)

// Hub 维护本节点所有活跃的连接
type Hub struct {
	clients    map[string]*Client // 使用UserID作为Key
	register   chan *Client
	unregister chan *Client
	lock       sync.RWMutex
	sessionMgr *session.Manager
}

func newHub(sessionMgr *session.Manager) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessionMgr: sessionMgr,
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			// 同一用户重复连接时顶掉旧连接
			if old, ok := h.clients[client.userID]; ok {
				close(old.send)
			}
			h.clients[client.userID] = client
			h.lock.Unlock()
			log.Printf("Client %s registered on node %s", client.userID, nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
				h.sessionMgr.RemoveUserGateway(ctx, client.userID)
			}
			h.lock.Unlock()
			log.Printf("Client %s unregistered.", client.userID)
		case <-ctx.Done():
			return
		}
	}
}

// deliver 把消息投给在线用户，用户不在本节点时返回 false。
func (h *Hub) deliver(userID string, payload []byte) bool {
	h.lock.RLock()
	client, ok := h.clients[userID]
	h.lock.RUnlock()
	if !ok {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		// 发送缓冲已满，视为连接不健康
		return false
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// writePump 把 send channel 中的消息写入 websocket，并周期性发送 ping。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消费心跳等入站消息，连接断开时触发注销。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userID is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), userID: userID}
	client.hub.register <- client

	// 在 Redis 中登记会话，notification-service 据此路由消息到本节点
	if err := hub.sessionMgr.SetUserGateway(r.Context(), userID, nodeID); err != nil {
		log.Printf("Failed to set session for user %s: %v", userID, err)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// consumeNodeTopic 消费本节点专属的 Kafka 主题并推送给对应用户。
func consumeNodeTopic(ctx context.Context, hub *Hub, reader *kafka.Reader) {
	logger.Ctx(ctx).Info().Str("topic", reader.Config().Topic).Msg("Push consumer started")
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("Could not read push message, retrying")
			time.Sleep(1 * time.Second)
			continue
		}

		userID := string(msg.Key)
		if !hub.deliver(userID, msg.Value) {
			// 会话指向本节点但连接已断，留给存量通知拉取兜底
			logger.Ctx(ctx).Debug().Str("user_id", userID).Msg("User not connected on this node, push dropped")
		}
	}
}

func main() {
	var (
		cancel      context.CancelFunc
		redisClient *pkgredis.Client
		reader      *kafka.Reader
	)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PushGatewayServiceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := bootstrap.GetCurrentConfig()

			var err error
			redisClient, err = pkgredis.NewClient(cfg.Infra.Redis.Addr)
			if err != nil {
				log.Fatalf("failed to connect to redis: %v", err)
			}
			sessionMgr := session.NewManager(redisClient.GetClient())

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			hub := newHub(sessionMgr)
			go hub.run(ctx)

			// 每个网关节点订阅自己专属的主题，消息由 notification-service 路由过来
			reader = mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, constants.PushTopicPrefix+nodeID, nodeID)
			go consumeNodeTopic(ctx, hub, reader)

			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
			log.Printf("Push Gateway node %s ready", nodeID)
		},
		OnShutdown: func(ctx context.Context) {
			if cancel != nil {
				cancel()
			}
			if reader != nil {
				reader.Close()
			}
			if redisClient != nil {
				redisClient.Close()
			}
		},
	})
}
