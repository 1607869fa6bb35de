package server

// Disconnect 连接关闭（任何原因）后的清理，可重复调用。
// 先删弹道并逐个广播销毁，再广播离开、删除玩家、广播人数，最后注销连接。
// 返回是否真的删除了玩家记录。
func (h *Hub) Disconnect(id string) bool {
	var (
		removed bool
		peer    Peer
	)
	h.withLock(func() {
		removed = h.leaveLocked(id)
		if c, ok := h.registry.Unregister(id); ok {
			peer = c.Peer
		}
	})
	if peer != nil {
		_ = peer.Close()
		h.log.Infof("connection closed: %s", id)
	}
	return removed
}

// Kick 管理端强制断开
func (h *Hub) Kick(id string) bool {
	if !h.registry.IsLive(id) {
		return false
	}
	h.log.Warnf("force disconnect %s", id)
	h.Disconnect(id)
	return true
}

func (h *Hub) leaveLocked(id string) bool {
	p, ok := h.store.GetPlayer(id)
	if !ok {
		// 已清理过：显式离开与传输关闭可能同时触发
		return false
	}

	owned := h.store.RemoveOwnedBy(id)
	for _, pr := range owned {
		h.publishLocked(MsgProjectileDestroy, ProjectileDestroyMessage{ID: pr.ID}, id, audienceJoined)
	}
	h.publishLocked(MsgKillPlayer, KillPlayerMessage{ID: id}, id, audienceJoined)
	h.store.RemovePlayer(id)
	count := h.store.PlayerCount()
	h.publishLocked(MsgPlayerCount, count, id, audienceAll)

	h.metrics.IncLeaves()
	h.log.Infof("player %s (%s) left, removed %d projectiles | remaining=%d",
		id, p.DisplayName, len(owned), count)
	return true
}
