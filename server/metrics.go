package server

import (
	"sync/atomic"
)

// RelayMetrics 记录中继运行期的关键指标（用于监控与调试）
type RelayMetrics struct {
	Joins             int64 // 完成加入的连接数
	Leaves            int64 // 断开清理次数
	Relayed           int64 // 被接受并转发的实体变更
	StaleDropped      int64 // 目标实体不存在或非本人而被丢弃
	DuplicateRejected int64 // 重复的弹道 ID
	CooldownRejected  int64 // 冷却期内的攻击开始
	Malformed         int64 // 无法解码的消息
	PeersDropped      int64 // 出站队列满而被踢出的连接
	Expired           int64 // 被清扫删除的弹道
	Sweeps            int64 // 清扫次数
}

func (m *RelayMetrics) IncJoins()             { atomic.AddInt64(&m.Joins, 1) }
func (m *RelayMetrics) IncLeaves()            { atomic.AddInt64(&m.Leaves, 1) }
func (m *RelayMetrics) IncRelayed()           { atomic.AddInt64(&m.Relayed, 1) }
func (m *RelayMetrics) IncStaleDropped()      { atomic.AddInt64(&m.StaleDropped, 1) }
func (m *RelayMetrics) IncDuplicateRejected() { atomic.AddInt64(&m.DuplicateRejected, 1) }
func (m *RelayMetrics) IncCooldownRejected()  { atomic.AddInt64(&m.CooldownRejected, 1) }
func (m *RelayMetrics) IncMalformed()         { atomic.AddInt64(&m.Malformed, 1) }
func (m *RelayMetrics) IncPeersDropped()      { atomic.AddInt64(&m.PeersDropped, 1) }
func (m *RelayMetrics) AddSweep(expired int) {
	atomic.AddInt64(&m.Sweeps, 1)
	atomic.AddInt64(&m.Expired, int64(expired))
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RelayMetrics) Snapshot() map[string]any {
	return map[string]any{
		"joins":              atomic.LoadInt64(&m.Joins),
		"leaves":             atomic.LoadInt64(&m.Leaves),
		"relayed":            atomic.LoadInt64(&m.Relayed),
		"stale_dropped":      atomic.LoadInt64(&m.StaleDropped),
		"duplicate_rejected": atomic.LoadInt64(&m.DuplicateRejected),
		"cooldown_rejected":  atomic.LoadInt64(&m.CooldownRejected),
		"malformed":          atomic.LoadInt64(&m.Malformed),
		"peers_dropped":      atomic.LoadInt64(&m.PeersDropped),
		"expired":            atomic.LoadInt64(&m.Expired),
		"sweeps":             atomic.LoadInt64(&m.Sweeps),
	}
}
