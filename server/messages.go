package server

// 入站消息类型（客户端 → 服务端）
const (
	MsgCreate              = "create"
	MsgSpawn               = "spawn"
	MsgTransform           = "transform"
	MsgAnim                = "anim"
	MsgAttack              = "attack"
	MsgProjectileCreate    = "projectileCreate"
	MsgProjectileDestroy   = "projectileDestroy"
	MsgProjectileCollision = "projectileCollision"
	MsgChat                = "onsendmsg"
	MsgPing                = "ping"
)

// 出站消息类型（服务端 → 客户端）。transform/anim/attack/projectile* 与入站同名
const (
	MsgRegister      = "register"
	MsgPlayerJoined  = "playerJoined"
	MsgPlayerRenamed = "playerRenamed"
	MsgChatRelay     = "recmsg"
	MsgKillPlayer    = "killPlayer"
	MsgPlayerCount   = "playerCountUpdate"
	MsgPong          = "pong"
)

// SpawnMessage 客户端确认出生并可覆盖显示名；name 与 username 任一即可
type SpawnMessage struct {
	Name     string `json:"name,omitempty" msgpack:"name,omitempty"`
	Username string `json:"username,omitempty" msgpack:"username,omitempty"`
}

// TransformMessage 位置 + 朝向，双向同构
type TransformMessage struct {
	ID  string `json:"id" msgpack:"id"`
	Pos Vec3   `json:"pos" msgpack:"pos"`
	Rot Quat   `json:"rot" msgpack:"rot"`
}

type AnimMessage struct {
	ID        string `json:"id" msgpack:"id"`
	Direction string `json:"direction" msgpack:"direction"`
}

// AttackMessage timestamp 为客户端时间，原样透传；冷却按服务端时钟计算
type AttackMessage struct {
	ID        string `json:"id" msgpack:"id"`
	Attacking bool   `json:"attacking" msgpack:"attacking"`
	Direction string `json:"direction,omitempty" msgpack:"direction,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
}

type ProjectileCreateMessage struct {
	ID      string `json:"id" msgpack:"id"`
	OwnerID string `json:"ownerId" msgpack:"ownerId"`
	Kind    string `json:"kind" msgpack:"kind"`
	Pos     Vec3   `json:"pos" msgpack:"pos"`
	Vel     Vec3   `json:"vel" msgpack:"vel"`
	Rot     Quat   `json:"rot" msgpack:"rot"`
}

type ProjectileDestroyMessage struct {
	ID string `json:"id" msgpack:"id"`
}

type ProjectileCollisionMessage struct {
	IDA string `json:"idA" msgpack:"idA"`
	IDB string `json:"idB" msgpack:"idB"`
}

// ChatMessage 入站聊天；text 与 chatText、displayName 与 username 均兼容
type ChatMessage struct {
	DisplayName string `json:"displayName,omitempty" msgpack:"displayName,omitempty"`
	Username    string `json:"username,omitempty" msgpack:"username,omitempty"`
	Text        string `json:"text,omitempty" msgpack:"text,omitempty"`
	ChatText    string `json:"chatText,omitempty" msgpack:"chatText,omitempty"`
}

// RegisterMessage 仅发给新加入的连接：自身 ID + 加入前一刻的完整实体表
type RegisterMessage struct {
	ID          string                     `json:"id" msgpack:"id"`
	Players     map[string]PlayerState     `json:"players" msgpack:"players"`
	Projectiles map[string]ProjectileState `json:"projectiles" msgpack:"projectiles"`
}

type PlayerJoinedMessage struct {
	ID          string `json:"id" msgpack:"id"`
	DisplayName string `json:"displayName" msgpack:"displayName"`
	Pos         Vec3   `json:"pos" msgpack:"pos"`
}

type PlayerRenamedMessage struct {
	ID          string `json:"id" msgpack:"id"`
	DisplayName string `json:"displayName" msgpack:"displayName"`
}

type ChatRelayMessage struct {
	DisplayName string `json:"displayName" msgpack:"displayName"`
	Text        string `json:"text" msgpack:"text"`
	Timestamp   int64  `json:"timestamp" msgpack:"timestamp"` // unix ms
}

type KillPlayerMessage struct {
	ID string `json:"id" msgpack:"id"`
}

// WireMessages 每种消息类型对应的载荷零值；count 更新的载荷是整数
func WireMessages() map[string]any {
	return map[string]any{
		MsgSpawn:               SpawnMessage{},
		MsgTransform:           TransformMessage{},
		MsgAnim:                AnimMessage{},
		MsgAttack:              AttackMessage{},
		MsgProjectileCreate:    ProjectileCreateMessage{},
		MsgProjectileDestroy:   ProjectileDestroyMessage{},
		MsgProjectileCollision: ProjectileCollisionMessage{},
		MsgChat:                ChatMessage{},
		MsgRegister:            RegisterMessage{},
		MsgPlayerJoined:        PlayerJoinedMessage{},
		MsgPlayerRenamed:       PlayerRenamedMessage{},
		MsgChatRelay:           ChatRelayMessage{},
		MsgKillPlayer:          KillPlayerMessage{},
		MsgPlayerCount:         0,
	}
}
