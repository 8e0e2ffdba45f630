package server

import (
	"sync/atomic"
)

// SessionMetrics 记录单个房间运行期的关键指标（用于监控与调试）
type SessionMetrics struct {
	TickCount       int64 // 模拟推进次数
	InputsAccepted  int64 // 被 Tick 线程采纳的输入
	InputsDropped   int64 // 因输入通道满被丢弃
	Broadcasts      int64 // 广播次数
	SendsDropped    int64 // 因发送队列满被丢弃的消息
	RejectedActions int64 // 非房主或阶段不符被忽略的操作
	TotalTickNs     int64 // Tick 累计耗时（纳秒）
}

func (m *SessionMetrics) IncAccepted()  { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *SessionMetrics) IncDropped()   { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *SessionMetrics) IncBroadcast() { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *SessionMetrics) IncSendDrop()  { atomic.AddInt64(&m.SendsDropped, 1) }
func (m *SessionMetrics) IncRejected()  { atomic.AddInt64(&m.RejectedActions, 1) }
func (m *SessionMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":       tick,
		"inputs_accepted":  atomic.LoadInt64(&m.InputsAccepted),
		"inputs_dropped":   atomic.LoadInt64(&m.InputsDropped),
		"broadcasts":       atomic.LoadInt64(&m.Broadcasts),
		"sends_dropped":    atomic.LoadInt64(&m.SendsDropped),
		"rejected_actions": atomic.LoadInt64(&m.RejectedActions),
		"avg_tick_ms":      avgMs,
	}
}
