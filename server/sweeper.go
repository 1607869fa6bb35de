package server

import (
	"context"
	"time"
)

// SweepExpired 删除超过 TTL 的弹道，每个广播一次销毁事件，与显式销毁同构。
// 与显式销毁、断开清理在同一临界区内检查并删除，已删除的不会被再次广播。
func (h *Hub) SweepExpired() []string {
	var ids []string
	h.withLock(func() {
		expired := h.store.RemoveExpired(h.now(), h.rules.ProjectileTTL)
		for _, p := range expired {
			ids = append(ids, p.ID)
			h.publishLocked(MsgProjectileDestroy, ProjectileDestroyMessage{ID: p.ID}, "", audienceJoined)
		}
	})
	h.metrics.AddSweep(len(ids))
	if len(ids) > 0 {
		h.log.Debugf("sweep removed %d expired projectiles", len(ids))
	}
	return ids
}

// RunSweeper 按固定周期清扫，ctx 取消时退出；每次清扫完整执行后释放锁
func (h *Hub) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.SweepExpired()
		}
	}
}
