package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Admin 状态查询与管理接口，只使用 Hub 的只读访问器（kick 除外）
type Admin struct {
	hub *Hub
	log *zap.SugaredLogger
}

func NewAdmin(hub *Hub, log *zap.SugaredLogger) *Admin {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Admin{hub: hub, log: log}
}

// Register 挂载到 mux
func (a *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.HandleHealth)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.HandleMetrics)
	mux.HandleFunc("/admin/config", a.HandleAdminConfig)
	mux.HandleFunc("/admin/kick", a.HandleKick)
}

type connectedPlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// HandleHealth GET /health 返回人数、运行时间与在线玩家
func (a *Admin) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := a.hub.Status()
	players := a.hub.Players()
	connected := make([]connectedPlayer, 0, len(players))
	for _, p := range players {
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		connected = append(connected, connectedPlayer{ID: id, Username: p.DisplayName})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"players":          st.Players,
		"projectiles":      st.Projectiles,
		"connections":      st.Connections,
		"uptime":           st.Uptime.Seconds(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"connectedPlayers": connected,
	})
}

// HandleMetrics GET /metrics 输出中继运行指标
func (a *Admin) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"players":     a.hub.Count(),
		"projectiles": a.hub.Status().Projectiles,
		"metrics":     a.hub.Metrics().Snapshot(),
	})
}

// HandleAdminConfig 规则的读取与热更新
// GET  /admin/config  返回当前规则
// POST /admin/config  以 JSON 载荷更新部分字段（毫秒）
func (a *Admin) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		AttackCooldownMs *int64 `json:"attackCooldownMs,omitempty"`
		ProjectileTTLMs  *int64 `json:"projectileTtlMs,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		rules := a.hub.Rules()
		cooldown := rules.AttackCooldown.Milliseconds()
		ttl := rules.ProjectileTTL.Milliseconds()
		writeJSON(w, http.StatusOK, cfg{AttackCooldownMs: &cooldown, ProjectileTTLMs: &ttl})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		rules := a.hub.Rules()
		if body.AttackCooldownMs != nil {
			if *body.AttackCooldownMs < 0 {
				http.Error(w, "attackCooldownMs must be >= 0", http.StatusBadRequest)
				return
			}
			rules.AttackCooldown = time.Duration(*body.AttackCooldownMs) * time.Millisecond
		}
		if body.ProjectileTTLMs != nil {
			if *body.ProjectileTTLMs <= 0 {
				http.Error(w, "projectileTtlMs must be > 0", http.StatusBadRequest)
				return
			}
			rules.ProjectileTTL = time.Duration(*body.ProjectileTTLMs) * time.Millisecond
		}
		a.hub.SetRules(rules)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		a.log.Infof("config updated from %s: attackCooldown=%s projectileTTL=%s",
			r.RemoteAddr, rules.AttackCooldown, rules.ProjectileTTL)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleKick POST /admin/kick?id=... 强制断开
func (a *Admin) HandleKick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	if !a.hub.Kick(id) {
		http.Error(w, "unknown connection", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
