package server

import "errors"

// audience 广播对象范围
type audience int

const (
	// 只发给已加入世界的连接（实体事件）
	audienceJoined audience = iota
	// 发给全部活跃连接（人数、聊天）
	audienceAll
)

// frameCache 同一事件按编解码各编码一次
type frameCache struct {
	kind    string
	payload any
	frames  map[string]Frame
	failed  bool
}

func newFrameCache(kind string, payload any) *frameCache {
	return &frameCache{kind: kind, payload: payload, frames: make(map[string]Frame, 2)}
}

func (c *frameCache) frame(codec Codec) (Frame, error) {
	if f, ok := c.frames[codec.Name()]; ok {
		return f, nil
	}
	f, err := codec.Encode(c.kind, c.payload)
	if err != nil {
		return Frame{}, err
	}
	c.frames[codec.Name()] = f
	return f, nil
}

// sendToLocked 只发给一个连接
func (h *Hub) sendToLocked(id, kind string, payload any) {
	c, ok := h.registry.Get(id)
	if !ok || c.stalled {
		return
	}
	h.deliverLocked(c, newFrameCache(kind, payload))
}

// publishLocked 发给范围内除 except 之外的所有连接；except 为空表示包括发送者。
// 成员快照在锁内获取，与实体变更使用同一串行化点。
func (h *Hub) publishLocked(kind string, payload any, except string, to audience) {
	cache := newFrameCache(kind, payload)
	for _, c := range h.registry.Live() {
		if c.ID == except {
			continue
		}
		if to == audienceJoined && !c.State.Joined() {
			continue
		}
		h.deliverLocked(c, cache)
		if cache.failed {
			return
		}
	}
}

func (h *Hub) deliverLocked(c Connection, cache *frameCache) {
	f, err := cache.frame(c.Peer.Codec())
	if err != nil {
		cache.failed = true
		h.log.Errorf("encode %s for %s failed: %v", cache.kind, c.Peer.Codec().Name(), err)
		return
	}
	if err := c.Peer.Send(f); err != nil {
		h.markStalledLocked(c.ID, err)
	}
}

// stalledPeer 临界区内发送失败的连接及原因
type stalledPeer struct {
	id     string
	reason error
}

// markStalledLocked 发送失败的连接视为断开，解锁后统一处理
func (h *Hub) markStalledLocked(id string, reason error) {
	if h.registry.MarkStalled(id) {
		h.stalled = append(h.stalled, stalledPeer{id: id, reason: reason})
	}
}

// dropPeer 关闭传输并执行完整断开流程；只有队列满才计入慢连接
func (h *Hub) dropPeer(p stalledPeer) {
	if errors.Is(p.reason, ErrSendQueueFull) {
		h.metrics.IncPeersDropped()
		h.log.Warnf("dropping %s: %v", p.id, p.reason)
	} else {
		h.log.Infof("dropping %s: send failed: %v", p.id, p.reason)
	}
	h.Disconnect(p.id)
}
