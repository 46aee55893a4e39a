// Package metrics provides runtime metrics collection for the tracking engine.
// Package metrics 提供跟踪引擎的运行时指标采集。
//
// Counters are updated on the engine's scheduler goroutine and read from any
// goroutine (HTTP exporters, tests), so every field is accessed atomically.
//
// 计数器在引擎调度 goroutine 上更新，并可从任意 goroutine（HTTP 导出器、测试）读取，
// 因此所有字段都以原子方式访问。
package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Level defines the metrics collection level.
// Level 定义指标采集级别。
type Level int

const (
	// Disabled means metrics collection is turned off.
	// Disabled 表示禁用指标采集。
	Disabled Level = iota

	// Basic enables counters only.
	// Basic 只启用计数器。
	Basic

	// Detailed additionally records the content fetch latency histogram.
	// Detailed 额外记录内容请求延迟直方图。
	Detailed
)

// ParseLevel maps a configuration string to a Level; unknown values map to Basic.
func ParseLevel(s string) Level {
	switch s {
	case "disabled":
		return Disabled
	case "detailed":
		return Detailed
	default:
		return Basic
	}
}

// EvictReason identifies why an active label slot was evicted.
// EvictReason 标识活动标签槽位被淘汰的原因。
type EvictReason int

const (
	EvictOffScreen EvictReason = iota
	EvictDecayed
	EvictMiss
	EvictReset
	evictReasonCount
)

// String returns the label used in exported metrics.
func (r EvictReason) String() string {
	switch r {
	case EvictOffScreen:
		return "offscreen"
	case EvictDecayed:
		return "decayed"
	case EvictMiss:
		return "miss"
	case EvictReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Metrics is the engine metrics collector.
// Metrics 是引擎指标收集器。
type Metrics struct {
	level int32

	// 采样相关
	ticks     uint64
	resamples uint64
	throttled uint64

	// 槽位相关
	evictions   [evictReasonCount]uint64
	overplotted uint64
	assignments uint64
	coalesced   uint64
	renders     uint64
	hides       uint64
	staleDrops  uint64

	// 内容缓存相关
	hits     uint64
	misses   uint64
	fetches  uint64
	empties  uint64
	failures uint64
	resets   uint64

	activeSlots   int64
	inactiveSlots int64
	cacheEntries  int64

	fetchLatency *Histogram
	started      time.Time
}

// New creates a new metrics collector at the given level.
//
// New 创建一个指定级别的指标收集器。
func New(level Level) *Metrics {
	return &Metrics{
		level:        int32(level),
		fetchLatency: NewHistogram(0),
		started:      time.Now(),
	}
}

// Level returns the current collection level.
func (m *Metrics) Level() Level { return Level(atomic.LoadInt32(&m.level)) }

// SetLevel changes the collection level.
func (m *Metrics) SetLevel(level Level) { atomic.StoreInt32(&m.level, int32(level)) }

func (m *Metrics) on() bool { return m != nil && m.Level() != Disabled }

// inc 调用前必须确认 m.on()，否则 &m.xxx 会在 m 为 nil 时 panic
func inc(counter *uint64, n int) {
	if n > 0 {
		atomic.AddUint64(counter, uint64(n))
	}
}

// RecordTick records one engine tick and whether it resampled the picking buffer.
//
// RecordTick 记录一次 tick 以及是否重新采样了拾取缓冲区。
func (m *Metrics) RecordTick(resampled bool) {
	if !m.on() {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
	if resampled {
		atomic.AddUint64(&m.resamples, 1)
	} else {
		atomic.AddUint64(&m.throttled, 1)
	}
}

// RecordEvictions 记录 n 次指定原因的淘汰
func (m *Metrics) RecordEvictions(reason EvictReason, n int) {
	if reason < 0 || reason >= evictReasonCount {
		return
	}
	if m.on() {
		inc(&m.evictions[reason], n)
	}
}

// RecordOverplotted 记录因遮挡而保留的标签数
func (m *Metrics) RecordOverplotted(n int) {
	if m.on() {
		inc(&m.overplotted, n)
	}
}

// RecordAssignment 记录一次槽位重新绑定
func (m *Metrics) RecordAssignment() {
	if m.on() {
		inc(&m.assignments, 1)
	}
}

// RecordCoalesced 记录一次在去抖窗口内被覆盖的绑定
func (m *Metrics) RecordCoalesced() {
	if m.on() {
		inc(&m.coalesced, 1)
	}
}

// RecordRender 记录一次标签渲染
func (m *Metrics) RecordRender() {
	if m.on() {
		inc(&m.renders, 1)
	}
}

// RecordHide 记录一次因内容为空而隐藏的标签
func (m *Metrics) RecordHide() {
	if m.on() {
		inc(&m.hides, 1)
	}
}

// RecordStaleDrop 记录一次被丢弃的过期响应
func (m *Metrics) RecordStaleDrop() {
	if m.on() {
		inc(&m.staleDrops, 1)
	}
}

// RecordHit 记录内容缓存命中（包括挂起中的条目）
func (m *Metrics) RecordHit() {
	if m.on() {
		inc(&m.hits, 1)
	}
}

// RecordMiss 记录内容缓存未命中
func (m *Metrics) RecordMiss() {
	if m.on() {
		inc(&m.misses, 1)
	}
}

// RecordFetch 记录一次完成的内容请求及其耗时
func (m *Metrics) RecordFetch(latency time.Duration) {
	if !m.on() {
		return
	}
	atomic.AddUint64(&m.fetches, 1)
	if m.Level() == Detailed {
		m.fetchLatency.Observe(latency)
	}
}

// RecordEmpty 记录一次确定为空的内容
func (m *Metrics) RecordEmpty() {
	if m.on() {
		inc(&m.empties, 1)
	}
}

// RecordFailure 记录一次传输失败
func (m *Metrics) RecordFailure() {
	if m.on() {
		inc(&m.failures, 1)
	}
}

// RecordReset 记录一次缓存重置
func (m *Metrics) RecordReset() {
	if m.on() {
		inc(&m.resets, 1)
	}
}

// UpdatePool 更新槽位池和缓存的容量指标
func (m *Metrics) UpdatePool(active, inactive, entries int) {
	if m == nil {
		return
	}
	atomic.StoreInt64(&m.activeSlots, int64(active))
	atomic.StoreInt64(&m.inactiveSlots, int64(inactive))
	atomic.StoreInt64(&m.cacheEntries, int64(entries))
}

// Snapshot is a point-in-time copy of all metrics.
//
// Snapshot 是所有指标的时间点副本。
type Snapshot struct {
	Ticks       uint64            `json:"ticks"`
	Resamples   uint64            `json:"resamples"`
	Throttled   uint64            `json:"throttled"`
	Evictions   map[string]uint64 `json:"evictions"`
	Overplotted uint64            `json:"overplotted"`
	Assignments uint64            `json:"assignments"`
	Coalesced   uint64            `json:"coalesced"`
	Renders     uint64            `json:"renders"`
	Hides       uint64            `json:"hides"`
	StaleDrops  uint64            `json:"stale_drops"`

	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
	Fetches  uint64  `json:"fetches"`
	Empties  uint64  `json:"empties"`
	Failures uint64  `json:"failures"`
	Resets   uint64  `json:"resets"`

	ActiveSlots   int64 `json:"active_slots"`
	InactiveSlots int64 `json:"inactive_slots"`
	CacheEntries  int64 `json:"cache_entries"`

	FetchLatency *HistogramSnapshot `json:"fetch_latency,omitempty"`
	Uptime       time.Duration      `json:"uptime"`
}

// GetSnapshot returns a snapshot of the current metrics.
//
// GetSnapshot 返回当前指标的快照。
func (m *Metrics) GetSnapshot() *Snapshot {
	s := &Snapshot{
		Ticks:         atomic.LoadUint64(&m.ticks),
		Resamples:     atomic.LoadUint64(&m.resamples),
		Throttled:     atomic.LoadUint64(&m.throttled),
		Evictions:     make(map[string]uint64, int(evictReasonCount)),
		Overplotted:   atomic.LoadUint64(&m.overplotted),
		Assignments:   atomic.LoadUint64(&m.assignments),
		Coalesced:     atomic.LoadUint64(&m.coalesced),
		Renders:       atomic.LoadUint64(&m.renders),
		Hides:         atomic.LoadUint64(&m.hides),
		StaleDrops:    atomic.LoadUint64(&m.staleDrops),
		Hits:          atomic.LoadUint64(&m.hits),
		Misses:        atomic.LoadUint64(&m.misses),
		Fetches:       atomic.LoadUint64(&m.fetches),
		Empties:       atomic.LoadUint64(&m.empties),
		Failures:      atomic.LoadUint64(&m.failures),
		Resets:        atomic.LoadUint64(&m.resets),
		ActiveSlots:   atomic.LoadInt64(&m.activeSlots),
		InactiveSlots: atomic.LoadInt64(&m.inactiveSlots),
		CacheEntries:  atomic.LoadInt64(&m.cacheEntries),
		Uptime:        time.Since(m.started),
	}
	for r := EvictReason(0); r < evictReasonCount; r++ {
		s.Evictions[r.String()] = atomic.LoadUint64(&m.evictions[r])
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	if m.Level() == Detailed {
		s.FetchLatency = m.fetchLatency.Snapshot()
	}
	return s
}

// String returns the snapshot as JSON.
func (s *Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
