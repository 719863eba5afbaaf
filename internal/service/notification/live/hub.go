package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Snack-JPG/nft-pulse/internal/service/notification"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub websocket 实时推送, 所有连接都会收到每条告警
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]struct{}
	count      atomic.Int64
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Name() string {
	return "live"
}

// ClientCount 当前在线连接数
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Run 主循环, ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.count.Store(0)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// 消费太慢直接断开, 不阻塞主循环
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Publish 序列化为 JSON 后入队
func (h *Hub) Publish(ctx context.Context, msg notification.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal live message: %w", err)
	}
	return h.enqueue(ctx, data)
}

func (h *Hub) enqueue(ctx context.Context, data []byte) error {
	select {
	case h.broadcast <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS 升级连接并注册到 hub
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return
	}
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
