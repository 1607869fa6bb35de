package server

import (
	"sort"
	"sync"
	"time"
)

// Store 实体存储：玩家与弹道两类实体。
// 所有读写都在 mu 下进行，外部拿到的都是值拷贝，不会看到半更新的实体。
type Store struct {
	mu          sync.RWMutex
	players     map[string]*Player
	projectiles map[string]*Projectile
}

func NewStore() *Store {
	return &Store{
		players:     make(map[string]*Player),
		projectiles: make(map[string]*Projectile),
	}
}

// UpsertPlayer 插入或覆盖玩家记录
func (s *Store) UpsertPlayer(p Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.players[p.ID] = &cp
}

// UpdatePlayer 在锁内修改已存在的玩家；玩家不存在返回 false（过期引用）
func (s *Store) UpdatePlayer(id string, fn func(p *Player)) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	fn(p)
	return *p, true
}

// RemovePlayer 删除玩家，返回被删除的记录
func (s *Store) RemovePlayer(id string) (Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	delete(s.players, id)
	return *p, true
}

func (s *Store) GetPlayer(id string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// ListPlayers 按加入时间排序的玩家列表
func (s *Store) ListPlayers() []Player {
	s.mu.RLock()
	out := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (s *Store) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// UpsertProjectile 插入或覆盖弹道
func (s *Store) UpsertProjectile(p Projectile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.projectiles[p.ID] = &cp
}

// InsertProjectile 仅当 ID 未被占用时插入；重复 ID 返回 false，原记录保持不变
func (s *Store) InsertProjectile(p Projectile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projectiles[p.ID]; exists {
		return false
	}
	cp := p
	s.projectiles[p.ID] = &cp
	return true
}

// RemoveProjectile 删除弹道；不存在返回 false，因此重复删除不会产生第二次广播
func (s *Store) RemoveProjectile(id string) (Projectile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projectiles[id]
	if !ok {
		return Projectile{}, false
	}
	delete(s.projectiles, id)
	return *p, true
}

func (s *Store) GetProjectile(id string) (Projectile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projectiles[id]
	if !ok {
		return Projectile{}, false
	}
	return *p, true
}

// HasProjectiles 所有 id 都存在时返回 true
func (s *Store) HasProjectiles(ids ...string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if _, ok := s.projectiles[id]; !ok {
			return false
		}
	}
	return true
}

// ListProjectiles 按创建时间排序
func (s *Store) ListProjectiles() []Projectile {
	s.mu.RLock()
	out := make([]Projectile, 0, len(s.projectiles))
	for _, p := range s.projectiles {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sortProjectiles(out)
	return out
}

func (s *Store) ProjectileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projectiles)
}

// RemoveOwnedBy 删除某玩家拥有的全部弹道
func (s *Store) RemoveOwnedBy(ownerID string) []Projectile {
	s.mu.Lock()
	var out []Projectile
	for id, p := range s.projectiles {
		if p.OwnerID == ownerID {
			out = append(out, *p)
			delete(s.projectiles, id)
		}
	}
	s.mu.Unlock()
	sortProjectiles(out)
	return out
}

// RemoveExpired 扫描并删除超过 ttl 的弹道
func (s *Store) RemoveExpired(now time.Time, ttl time.Duration) []Projectile {
	s.mu.Lock()
	var out []Projectile
	for id, p := range s.projectiles {
		if p.Expired(now, ttl) {
			out = append(out, *p)
			delete(s.projectiles, id)
		}
	}
	s.mu.Unlock()
	sortProjectiles(out)
	return out
}

// Snapshot 加入时发送的完整世界视图
func (s *Store) Snapshot() (map[string]PlayerState, map[string]ProjectileState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make(map[string]PlayerState, len(s.players))
	for id, p := range s.players {
		players[id] = p.State()
	}
	projectiles := make(map[string]ProjectileState, len(s.projectiles))
	for id, p := range s.projectiles {
		projectiles[id] = p.State()
	}
	return players, projectiles
}

func sortProjectiles(ps []Projectile) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}
