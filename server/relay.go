package server

import (
	"errors"
	"fmt"
)

var ErrUnknownKind = errors.New("unknown message type")

// Dispatch 按消息类型路由入站消息。
// 解码失败只丢弃这一条消息，连接保持打开；过期引用、重复 ID、冷却拒绝都是静默丢弃。
func (h *Hub) Dispatch(id string, codec Codec, kind string, raw []byte) error {
	switch kind {
	case MsgCreate:
		if err := h.Join(id); err != nil && !errors.Is(err, ErrAlreadyJoined) {
			return err
		}
		return nil
	case MsgSpawn:
		var m SpawnMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Spawn(id, m)
	case MsgTransform:
		var m TransformMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Transform(id, m)
	case MsgAnim:
		var m AnimMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Anim(id, m)
	case MsgAttack:
		var m AttackMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Attack(id, m)
	case MsgProjectileCreate:
		var m ProjectileCreateMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.CreateProjectile(id, m)
	case MsgProjectileDestroy:
		var m ProjectileDestroyMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.DestroyProjectile(id, m)
	case MsgProjectileCollision:
		var m ProjectileCollisionMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Collide(id, m)
	case MsgChat:
		var m ChatMessage
		if err := h.decode(id, codec, kind, raw, &m); err != nil {
			return err
		}
		h.Chat(id, m)
	case MsgPing:
		h.Ping(id)
	default:
		h.log.Debugf("unknown message type %q from %s", kind, id)
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// decode 除 create/ping 外的消息都必须带载荷，缺失按格式错误丢弃
func (h *Hub) decode(id string, codec Codec, kind string, raw []byte, v any) error {
	if emptyPayload(raw) {
		h.metrics.IncMalformed()
		h.log.Infof("discarding %s from %s: missing payload", kind, id)
		return fmt.Errorf("%s: %w: missing payload", kind, ErrMalformed)
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		h.metrics.IncMalformed()
		h.log.Infof("discarding malformed %s from %s: %v", kind, id, err)
		return err
	}
	return nil
}

// dropStale 目标不存在或不属于发送者
func (h *Hub) dropStale(kind, from, target string) {
	h.metrics.IncStaleDropped()
	h.log.Debugf("%s from %s ignored: stale or foreign target %q", kind, from, target)
}

// ownTarget 消息里的 id 为空或等于发送者时才允许修改；任何连接都不能改别人的玩家
func ownTarget(sender, claimed string) bool {
	return claimed == "" || claimed == sender
}

// Spawn 客户端确认出生并可覆盖显示名
func (h *Hub) Spawn(id string, m SpawnMessage) {
	name := m.Name
	if name == "" {
		name = m.Username
	}
	name = cleanText(name, h.cfg.MaxNameLen)

	h.withLock(func() {
		p, ok := h.store.UpdatePlayer(id, func(p *Player) {
			if name != "" {
				p.DisplayName = name
			}
		})
		if !ok {
			h.dropStale(MsgSpawn, id, id)
			return
		}
		h.activateLocked(id)
		if name == "" {
			return
		}
		h.publishLocked(MsgPlayerRenamed, PlayerRenamedMessage{ID: id, DisplayName: p.DisplayName}, id, audienceJoined)
		h.metrics.IncRelayed()
		h.log.Infof("player %s renamed to %s", id, p.DisplayName)
	})
}

// Transform 覆盖位置与朝向，转发给除发送者外的所有人
func (h *Hub) Transform(id string, m TransformMessage) {
	if !ownTarget(id, m.ID) {
		h.dropStale(MsgTransform, id, m.ID)
		return
	}
	h.withLock(func() {
		_, ok := h.store.UpdatePlayer(id, func(p *Player) {
			p.Position = m.Pos
			p.Rotation = m.Rot
		})
		if !ok {
			h.dropStale(MsgTransform, id, id)
			return
		}
		h.activateLocked(id)
		h.publishLocked(MsgTransform, TransformMessage{ID: id, Pos: m.Pos, Rot: m.Rot}, id, audienceJoined)
		h.metrics.IncRelayed()
	})
}

// Anim 覆盖动画方向
func (h *Hub) Anim(id string, m AnimMessage) {
	if !ownTarget(id, m.ID) {
		h.dropStale(MsgAnim, id, m.ID)
		return
	}
	h.withLock(func() {
		_, ok := h.store.UpdatePlayer(id, func(p *Player) {
			p.Direction = m.Direction
		})
		if !ok {
			h.dropStale(MsgAnim, id, id)
			return
		}
		h.publishLocked(MsgAnim, AnimMessage{ID: id, Direction: m.Direction}, id, audienceJoined)
		h.metrics.IncRelayed()
	})
}

// Attack 攻击状态。冷却窗口内的开始攻击被静默拒绝，状态与时间戳都不变
func (h *Hub) Attack(id string, m AttackMessage) {
	if !ownTarget(id, m.ID) {
		h.dropStale(MsgAttack, id, m.ID)
		return
	}
	h.withLock(func() {
		now := h.now()
		cooldown := h.rules.AttackCooldown
		accepted := false
		_, ok := h.store.UpdatePlayer(id, func(p *Player) {
			if !m.Attacking {
				p.Attacking = false
				accepted = true
				return
			}
			if !p.canStartAttack(now, cooldown) {
				return
			}
			p.Attacking = true
			p.LastAttack = now
			accepted = true
		})
		if !ok {
			h.dropStale(MsgAttack, id, id)
			return
		}
		if !accepted {
			h.metrics.IncCooldownRejected()
			h.log.Debugf("attack from %s rejected: cooldown %s not elapsed", id, cooldown)
			return
		}
		h.publishLocked(MsgAttack, AttackMessage{
			ID:        id,
			Attacking: m.Attacking,
			Direction: m.Direction,
			Timestamp: m.Timestamp,
		}, id, audienceJoined)
		h.metrics.IncRelayed()
	})
}

// CreateProjectile 创建弹道：拥有者必须是发送者且已加入，ID 不可重复
func (h *Hub) CreateProjectile(id string, m ProjectileCreateMessage) {
	owner := m.OwnerID
	if owner == "" {
		owner = id
	}
	if m.ID == "" {
		h.metrics.IncMalformed()
		h.log.Infof("projectile from %s ignored: empty id", id)
		return
	}
	if owner != id {
		h.dropStale(MsgProjectileCreate, id, owner)
		return
	}
	h.withLock(func() {
		if _, ok := h.store.GetPlayer(owner); !ok {
			h.dropStale(MsgProjectileCreate, id, owner)
			return
		}
		p := Projectile{
			ID:        m.ID,
			OwnerID:   owner,
			Kind:      m.Kind,
			Position:  m.Pos,
			Velocity:  m.Vel,
			Rotation:  m.Rot,
			CreatedAt: h.now(),
		}
		if !h.store.InsertProjectile(p) {
			h.metrics.IncDuplicateRejected()
			h.log.Infof("projectile %s from %s rejected: duplicate id", m.ID, id)
			return
		}
		h.publishLocked(MsgProjectileCreate, ProjectileCreateMessage{
			ID:      p.ID,
			OwnerID: p.OwnerID,
			Kind:    p.Kind,
			Pos:     p.Position,
			Vel:     p.Velocity,
			Rot:     p.Rotation,
		}, id, audienceJoined)
		h.metrics.IncRelayed()
	})
}

// DestroyProjectile 显式销毁；任何已加入的连接都可以销毁，重复销毁只有第一次生效
func (h *Hub) DestroyProjectile(id string, m ProjectileDestroyMessage) {
	h.withLock(func() {
		if _, ok := h.store.RemoveProjectile(m.ID); !ok {
			h.dropStale(MsgProjectileDestroy, id, m.ID)
			return
		}
		h.publishLocked(MsgProjectileDestroy, ProjectileDestroyMessage{ID: m.ID}, id, audienceJoined)
		h.metrics.IncRelayed()
	})
}

// Collide 碰撞只做通知，不删除实体；包括发送者在内全部转发
func (h *Hub) Collide(id string, m ProjectileCollisionMessage) {
	h.withLock(func() {
		if m.IDA == "" || m.IDB == "" || !h.store.HasProjectiles(m.IDA, m.IDB) {
			h.dropStale(MsgProjectileCollision, id, m.IDA+","+m.IDB)
			return
		}
		h.publishLocked(MsgProjectileCollision, m, "", audienceJoined)
		h.metrics.IncRelayed()
	})
}

// Chat 聊天不做校验，允许匿名，发给包括发送者在内的所有连接
func (h *Hub) Chat(id string, m ChatMessage) {
	name := m.DisplayName
	if name == "" {
		name = m.Username
	}
	name = cleanText(name, h.cfg.MaxNameLen)
	text := m.Text
	if text == "" {
		text = m.ChatText
	}
	text = cleanText(text, h.cfg.MaxChatLen)

	h.withLock(func() {
		if name == "" {
			if p, ok := h.store.GetPlayer(id); ok {
				name = p.DisplayName
			} else {
				name = "Anonymous"
			}
		}
		h.publishLocked(MsgChatRelay, ChatRelayMessage{
			DisplayName: name,
			Text:        text,
			Timestamp:   h.now().UnixMilli(),
		}, "", audienceAll)
	})
	h.log.Debugf("chat %s: %s", name, text)
}

// Ping 保活，只回给发送者
func (h *Hub) Ping(id string) {
	h.withLock(func() {
		h.sendToLocked(id, MsgPong, nil)
	})
}
