package server

import (
	"errors"
	"fmt"
)

var ErrAlreadyJoined = errors.New("connection already joined")

// Join 处理初始加入请求（Connected → Registered）。
// 顺序固定：确认 ID → 建玩家 → 向新人发快照 → 向其他人宣布 → 广播人数。
// 全程在同一临界区内，快照与宣布之间不会插入其他变更。
func (h *Hub) Join(id string) error {
	var err error
	h.withLock(func() {
		err = h.joinLocked(id)
	})
	return err
}

func (h *Hub) joinLocked(id string) error {
	conn, ok := h.registry.Get(id)
	if !ok {
		return fmt.Errorf("join %s: %w", id, ErrUnknownConnection)
	}
	if conn.State != StateConnected {
		h.log.Infof("duplicate join from %s ignored (state=%s)", id, conn.State)
		return fmt.Errorf("join %s: %w", id, ErrAlreadyJoined)
	}
	if _, exists := h.store.GetPlayer(id); exists {
		h.log.Warnf("join %s: player record already present, ignoring", id)
		return fmt.Errorf("join %s: %w", id, ErrAlreadyJoined)
	}

	now := h.now()
	h.joinSeq++
	p := Player{
		ID:          id,
		DisplayName: fmt.Sprintf("Player_%d", h.joinSeq),
		Position:    spawnPoint(h.rng, h.cfg.SpawnHalfExtent, h.cfg.GroundY),
		Rotation:    Quat{W: 1},
		Connected:   true,
		JoinedAt:    now,
	}

	// 快照取自加入前一刻，新人不会在其中看到自己
	players, projectiles := h.store.Snapshot()
	h.store.UpsertPlayer(p)
	h.registry.Advance(id, StateRegistered)

	h.sendToLocked(id, MsgRegister, RegisterMessage{
		ID:          id,
		Players:     players,
		Projectiles: projectiles,
	})
	h.publishLocked(MsgPlayerJoined, PlayerJoinedMessage{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Pos:         p.Position,
	}, id, audienceJoined)
	count := h.store.PlayerCount()
	h.publishLocked(MsgPlayerCount, count, "", audienceAll)

	h.metrics.IncJoins()
	h.log.Infof("player %s joined as %s at (%.1f, %.1f, %.1f) | total=%d",
		id, p.DisplayName, p.Position.X, p.Position.Y, p.Position.Z, count)
	return nil
}

// activateLocked 第一次收到 transform/spawn 时 Registered → Active
func (h *Hub) activateLocked(id string) {
	if prev, ok := h.registry.Advance(id, StateActive); ok && prev == StateRegistered {
		h.log.Debugf("player %s active", id)
	}
}
