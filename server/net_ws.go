package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20 // 1MB
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws    *websocket.Conn
	codec Codec
	send  chan Frame

	done      chan struct{}
	closeOnce sync.Once
}

func NewClientConn(ws *websocket.Conn, codec Codec, queue int) *ClientConn {
	return &ClientConn{
		ws:    ws,
		codec: codec,
		send:  make(chan Frame, queue),
		done:  make(chan struct{}),
	}
}

func (c *ClientConn) Codec() Codec { return c.codec }

// Send 将要发送的消息压入队列（非阻塞）；失败时由 Hub 按断开处理
func (c *ClientConn) Send(f Frame) error {
	select {
	case <-c.done:
		return ErrPeerClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close 关闭底层连接，写协程随之退出；可重复调用
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期发送 ping
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.MessageType, f.Data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取客户端消息，解码信封后交给 Hub 路由
func (c *ClientConn) readPump(hub *Hub, id string, log *zap.SugaredLogger) {
	// 读泵退出时执行完整的断开流程
	defer hub.Disconnect(id)
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("read loop for %s panicked: %v", id, r)
		}
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Infof("read from %s: %v", id, err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		kind, raw, err := c.codec.Decode(payload)
		if err != nil {
			hub.Metrics().IncMalformed()
			log.Infof("discarding malformed frame from %s: %v", id, err)
			continue
		}
		if err := hub.Dispatch(id, c.codec, kind, raw); err != nil && !errors.Is(err, ErrMalformed) {
			log.Debugf("dispatch %s from %s: %v", kind, id, err)
		}
	}
}

// WSHandler WebSocket 接入：/ws?codec=json|msgpack
type WSHandler struct {
	hub      *Hub
	log      *zap.SugaredLogger
	queue    int
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, log *zap.SugaredLogger, queue int) *WSHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if queue <= 0 {
		queue = DefaultConfig().SendQueue
	}
	return &WSHandler{
		hub:   hub,
		log:   log,
		queue: queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// 客户端来自任意域（编辑器预览、本地页面等）
				return true
			},
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	codec, ok := CodecByName(r.URL.Query().Get("codec"))
	if !ok {
		http.Error(w, "unsupported codec", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, codec, h.queue)
	id, err := h.hub.Connect(client)
	if err != nil {
		// 注册失败只影响这一个连接
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = client.Close()
		return
	}

	go client.writePump()
	go client.readPump(h.hub, id, h.log)
}
