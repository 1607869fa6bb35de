package server

import (
	"math/rand"
	"time"
)

// Vec3 三维坐标
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Quat 朝向，服务端不解释，只做透传
type Quat struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
	W float64 `json:"w" msgpack:"w"`
}

// Player 已加入的参与者（ID 与连接 ID 相同）
type Player struct {
	ID          string
	DisplayName string
	Position    Vec3
	Rotation    Quat
	Direction   string // 动画方向，透传

	Attacking  bool
	LastAttack time.Time // 最近一次被接受的攻击开始时间，用于冷却判断

	Connected bool
	JoinedAt  time.Time
}

// PlayerState 为广播给客户端的玩家公开状态
type PlayerState struct {
	ID          string `json:"id" msgpack:"id"`
	DisplayName string `json:"displayName" msgpack:"displayName"`
	Position    Vec3   `json:"pos" msgpack:"pos"`
	Rotation    Quat   `json:"rot" msgpack:"rot"`
	Direction   string `json:"direction,omitempty" msgpack:"direction,omitempty"`
	Attacking   bool   `json:"attacking,omitempty" msgpack:"attacking,omitempty"`
}

// State 导出公开字段
func (p Player) State() PlayerState {
	return PlayerState{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Position:    p.Position,
		Rotation:    p.Rotation,
		Direction:   p.Direction,
		Attacking:   p.Attacking,
	}
}

// canStartAttack 冷却窗口内的重复开始攻击会被拒绝
func (p Player) canStartAttack(now time.Time, cooldown time.Duration) bool {
	if p.LastAttack.IsZero() {
		return true
	}
	return now.Sub(p.LastAttack) >= cooldown
}

// spawnPoint 在 [-half, half) 的正方形内随机出生，y 固定为地面高度
func spawnPoint(rng *rand.Rand, half, groundY float64) Vec3 {
	return Vec3{
		X: rng.Float64()*2*half - half,
		Y: groundY,
		Z: rng.Float64()*2*half - half,
	}
}
