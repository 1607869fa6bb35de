package server

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Rules 可在运行时调整的中继规则
type Rules struct {
	AttackCooldown time.Duration
	ProjectileTTL  time.Duration
}

// Hub 权威世界：连接注册表 + 实体存储 + 广播。
// mu 是唯一的串行化点：加入、变更、断开、清扫都在同一把锁下完成，
// 广播只做非阻塞入队，所以持锁期间不会等待任何对端。
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	store    *Store
	metrics  *RelayMetrics
	log      *zap.SugaredLogger

	cfg     Config
	rules   Rules
	rng     *rand.Rand
	now     func() time.Time
	joinSeq int

	startedAt time.Time
	stalled   []stalledPeer // 本次临界区内发送失败的连接，解锁后按断开处理
}

// HubOption 构造选项
type HubOption func(*Hub)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) { h.now = now }
}

// WithRand 替换出生点随机源
func WithRand(rng *rand.Rand) HubOption {
	return func(h *Hub) { h.rng = rng }
}

// WithIDGenerator 替换连接 ID 生成器
func WithIDGenerator(gen func() string) HubOption {
	return func(h *Hub) { h.registry.newID = gen }
}

func NewHub(cfg Config, log *zap.SugaredLogger, opts ...HubOption) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	h := &Hub{
		registry: NewRegistry(cfg.MaxConnections),
		store:    NewStore(),
		metrics:  &RelayMetrics{},
		log:      log,
		cfg:      cfg,
		rules: Rules{
			AttackCooldown: cfg.AttackCooldown,
			ProjectileTTL:  cfg.ProjectileTTL,
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.startedAt = h.now()
	return h
}

// withLock 执行临界区，解锁后再处理临界区内发现的慢连接
func (h *Hub) withLock(fn func()) {
	h.mu.Lock()
	fn()
	drops := h.stalled
	h.stalled = nil
	h.mu.Unlock()

	for _, p := range drops {
		h.dropPeer(p)
	}
}

// Connect 接受一个新连接（状态 Connected），尚未加入世界
func (h *Hub) Connect(peer Peer) (string, error) {
	id, err := h.registry.Register(peer, h.now())
	if err != nil {
		h.log.Warnf("connect rejected: %v (live=%d)", err, h.registry.Len())
		return "", err
	}
	h.log.Infof("connection opened: %s codec=%s", id, peer.Codec().Name())
	return id, nil
}

// IsLive 连接是否仍在注册表中
func (h *Hub) IsLive(id string) bool {
	return h.registry.IsLive(id)
}

// Rules 当前规则
func (h *Hub) Rules() Rules {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rules
}

// SetRules 热更新冷却与 TTL
func (h *Hub) SetRules(r Rules) {
	h.mu.Lock()
	h.rules = r
	h.mu.Unlock()
}

// Count 当前玩家数
func (h *Hub) Count() int {
	return h.store.PlayerCount()
}

// Players 当前玩家列表（只读）
func (h *Hub) Players() []PlayerState {
	players := h.store.ListPlayers()
	out := make([]PlayerState, 0, len(players))
	for _, p := range players {
		out = append(out, p.State())
	}
	return out
}

// Projectiles 当前弹道列表（只读）
func (h *Hub) Projectiles() []ProjectileState {
	projectiles := h.store.ListProjectiles()
	out := make([]ProjectileState, 0, len(projectiles))
	for _, p := range projectiles {
		out = append(out, p.State())
	}
	return out
}

// Status 状态查询接口
type Status struct {
	Players     int           `json:"players"`
	Projectiles int           `json:"projectiles"`
	Connections int           `json:"connections"`
	Uptime      time.Duration `json:"uptime"`
}

func (h *Hub) Status() Status {
	return Status{
		Players:     h.store.PlayerCount(),
		Projectiles: h.store.ProjectileCount(),
		Connections: h.registry.Len(),
		Uptime:      h.now().Sub(h.startedAt),
	}
}

// Metrics 运行指标
func (h *Hub) Metrics() *RelayMetrics {
	return h.metrics
}

// Shutdown 关闭所有连接，逐个执行完整的断开流程
func (h *Hub) Shutdown() {
	conns := h.registry.Live()
	for _, c := range conns {
		h.Disconnect(c.ID)
	}
	h.log.Infof("hub shut down, closed %d connections", len(conns))
}
