package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRegistryFull      = errors.New("connection registry full")
	ErrIDCollision       = errors.New("could not allocate a free connection id")
	ErrUnknownConnection = errors.New("unknown connection")

	ErrSendQueueFull = errors.New("outbound queue saturated")
	ErrPeerClosed    = errors.New("transport closed")
)

// 生成 ID 的最大重试次数，超过视为冲突
const maxIDAttempts = 8

// Peer 连接的发送端。Send 不阻塞，队列满返回 ErrSendQueueFull，已关闭返回 ErrPeerClosed
type Peer interface {
	Send(f Frame) error
	Codec() Codec
	Close() error
}

// SessionState 每个连接的加入状态机
type SessionState int

const (
	StateConnected SessionState = iota
	StateRegistered
	StateActive
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Joined 已完成加入（收到过 register 快照）
func (s SessionState) Joined() bool {
	return s == StateRegistered || s == StateActive
}

// Connection 注册表中的一条连接记录
type Connection struct {
	ID          string
	Peer        Peer
	State       SessionState
	ConnectedAt time.Time

	stalled bool // 出站队列已满，等待按断开处理
}

// Registry 连接注册表，只管理连接生命周期，不负责广播
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	max   int
	newID func() string
}

// NewRegistry limit 为 0 表示不限制连接数
func NewRegistry(limit int) *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		max:   limit,
		newID: uuid.NewString,
	}
}

// Register 分配一个与现存连接不冲突的 ID 并保存映射
func (r *Registry) Register(peer Peer, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.conns) >= r.max {
		return "", ErrRegistryFull
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.newID()
		if id == "" {
			continue
		}
		if _, taken := r.conns[id]; taken {
			continue
		}
		r.conns[id] = &Connection{ID: id, Peer: peer, State: StateConnected, ConnectedAt: now}
		return id, nil
	}
	return "", ErrIDCollision
}

// Unregister 删除映射；重复调用是空操作
func (r *Registry) Unregister(id string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	c.State = StateDisconnected
	delete(r.conns, id)
	return *c, true
}

func (r *Registry) IsLive(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

// Advance 状态只能向前推进；返回推进前的状态
func (r *Registry) Advance(id string, to SessionState) (SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return StateDisconnected, false
	}
	prev := c.State
	if to > prev {
		c.State = to
	}
	return prev, true
}

// MarkStalled 标记出站阻塞的连接；只有第一次标记返回 true
func (r *Registry) MarkStalled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok || c.stalled {
		return false
	}
	c.stalled = true
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Live 当前活跃连接的快照，已标记阻塞的连接不在其中
func (r *Registry) Live() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		if c.stalled {
			continue
		}
		out = append(out, *c)
	}
	return out
}
