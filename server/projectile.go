package server

import "time"

// Projectile 短生命周期实体，归属于创建它的玩家
type Projectile struct {
	ID        string
	OwnerID   string
	Kind      string
	Position  Vec3
	Velocity  Vec3
	Rotation  Quat
	CreatedAt time.Time
}

// ProjectileState 为广播给客户端的弹道状态
type ProjectileState struct {
	ID        string `json:"id" msgpack:"id"`
	OwnerID   string `json:"ownerId" msgpack:"ownerId"`
	Kind      string `json:"kind" msgpack:"kind"`
	Position  Vec3   `json:"pos" msgpack:"pos"`
	Velocity  Vec3   `json:"vel" msgpack:"vel"`
	Rotation  Quat   `json:"rot" msgpack:"rot"`
	CreatedAt int64  `json:"createdAt" msgpack:"createdAt"` // unix ms
}

func (p Projectile) State() ProjectileState {
	return ProjectileState{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Kind:      p.Kind,
		Position:  p.Position,
		Velocity:  p.Velocity,
		Rotation:  p.Rotation,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

// Expired 存活时间超过 ttl
func (p Projectile) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(p.CreatedAt) > ttl
}
