// internal/service/product/interfaces/ws_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/product/domain"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 内部运维面板用，允许所有来源
	CheckOrigin: func(r *http.Request) bool { return true },
}

// movementFrame 是推送给客户端的消息格式。
type movementFrame struct {
	Kind     string                `json:"kind"` // "movement" 或 "alert"
	Rule     string                `json:"rule,omitempty"`
	Movement *domain.StockMovement `json:"movement"`
}

// Hub 维护所有活跃的库存监控连接，并负责消息广播。
// 实现了 port.MovementBroadcaster。
type Hub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	lock       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
	}
}

// Run 驱动注册/注销/广播循环，应在独立的 goroutine 中启动。
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = true
			h.lock.Unlock()
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
		case message := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写不进去说明客户端已经跟不上，丢弃这一帧
				}
			}
			h.lock.RUnlock()
		}
	}
}

func (h *Hub) BroadcastMovement(movement *domain.StockMovement) {
	h.push(&movementFrame{Kind: "movement", Movement: movement})
}

func (h *Hub) BroadcastAlert(movement *domain.StockMovement, rule string) {
	h.push(&movementFrame{Kind: "alert", Rule: rule, Movement: movement})
}

func (h *Hub) push(frame *movementFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Logger().Warn().Err(err).Msg("failed to marshal movement frame")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// 广播队列已满，推送是尽力而为的旁路，直接丢弃
	}
}

// ServeWS 把 HTTP 连接升级为 WebSocket 并注册到 Hub。
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// wsClient 是一个 WebSocket 连接的代表。
type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump() {
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

// readPump 只负责消费心跳并感知连接关闭。
func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
