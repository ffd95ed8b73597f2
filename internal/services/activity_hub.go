package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"socialpilot/pkg/utils"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// 仪表盘活动消息类型
const (
	ActivityRuleCreated   = "automation.created"
	ActivityRuleUpdated   = "automation.updated"
	ActivityRuleDeleted   = "automation.deleted"
	ActivityRuleToggled   = "automation.toggled"
	ActivityRuleTriggered = "automation.triggered"
	ActivityRuleFailed    = "automation.failed"
	ActivityRuleSkipped   = "automation.skipped"
)

const (
	activityWriteWait  = 10 * time.Second
	activityPongWait   = 60 * time.Second
	activityPingPeriod = 54 * time.Second
	activitySendBuffer = 64
)

type ActivityMessage struct {
	Type      string      `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type ActivityClient struct {
	ID        string
	AccountID string // 为空时接收所有账号的消息
	Conn      *websocket.Conn
	Send      chan ActivityMessage
	Hub       *ActivityHub
}

func (c *ActivityClient) wants(msg ActivityMessage) bool {
	return c.AccountID == "" || msg.AccountID == "" || c.AccountID == msg.AccountID
}

// ActivityHub 向仪表盘推送规则变更与执行结果
type ActivityHub struct {
	clients    map[string]*ActivityClient
	broadcast  chan ActivityMessage
	register   chan *ActivityClient
	unregister chan *ActivityClient
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logrus.Logger
	upgrader   websocket.Upgrader
}

func NewActivityHub(logger *logrus.Logger) *ActivityHub {
	if logger == nil {
		logger = logrus.New()
	}
	return &ActivityHub{
		clients:    make(map[string]*ActivityClient),
		broadcast:  make(chan ActivityMessage, 256),
		register:   make(chan *ActivityClient),
		unregister: make(chan *ActivityClient),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run 处理注册、注销与广播，ctx 取消后关闭所有客户端
func (h *ActivityHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			h.mutex.Unlock()
			h.logger.Infof("Activity client %s connected (account=%q)", client.ID, client.AccountID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Infof("Activity client %s disconnected", client.ID)
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for id, client := range h.clients {
				if !client.wants(msg) {
					continue
				}
				select {
				case client.Send <- msg:
				default:
					// 慢客户端直接断开
					close(client.Send)
					delete(h.clients, id)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish 投递一条活动消息，队列已满或 hub 已停止时丢弃
func (h *ActivityHub) Publish(msgType, accountID string, data interface{}) {
	msg := ActivityMessage{Type: msgType, AccountID: accountID, Data: data, Timestamp: time.Now()}
	select {
	case <-h.done:
	case h.broadcast <- msg:
	default:
		h.logger.Warnf("activity broadcast queue full, dropping %s", msgType)
	}
}

// Register 注册客户端，hub 已停止时返回 false
func (h *ActivityHub) Register(c *ActivityClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端
func (h *ActivityHub) Unregister(c *ActivityClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *ActivityHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeWS 升级连接并按 account_id 查询参数订阅
func (h *ActivityHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("activity websocket upgrade failed: %v", err)
		return
	}

	client := &ActivityClient{
		ID:        utils.GenerateClientID(),
		AccountID: r.URL.Query().Get("account_id"),
		Conn:      conn,
		Send:      make(chan ActivityMessage, activitySendBuffer),
		Hub:       h,
	}
	if !h.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump 只处理心跳与关闭，仪表盘不会上行消息
func (c *ActivityClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(activityPongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(activityPongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warnf("activity websocket error: %v", err)
			}
			return
		}
	}
}

func (c *ActivityClient) writePump() {
	ticker := time.NewTicker(activityPingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(activityWriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				c.Hub.logger.Warnf("activity write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(activityWriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
