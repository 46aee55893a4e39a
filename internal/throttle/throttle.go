// Package throttle 限制重新采样的频率。
// 在一个采样窗口内重复请求时返回上一次结果的副本，而不是重新解码和排序。
package throttle

import (
	"time"

	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// DefaultInterval 是两次采样之间的默认最短间隔
const DefaultInterval = 300 * time.Millisecond

// Throttle 保存 lastRunTimestamp 和 lastCandidateSnapshot，由单个引擎实例独占
type Throttle struct {
	clock    utils.Clock
	interval time.Duration

	hasRun   bool
	lastRun  time.Time
	snapshot entity.CandidateSet
}

// New 创建一个 Throttle；interval <= 0 表示每次都重新采样
func New(clock utils.Clock, interval time.Duration) *Throttle {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Throttle{clock: clock, interval: interval}
}

// SetInterval 调整采样间隔，用于配置热更新
func (t *Throttle) SetInterval(interval time.Duration) {
	t.interval = interval
}

// Interval 返回当前采样间隔
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Sample 返回本次 tick 的候选集合。
// 若 force 为 false 且距离上次运行不足 interval，返回上次快照的独立副本，
// 并报告 resampled=false；否则调用 run，保存其结果并返回。
// 返回值始终可以被调用方自由修改。
func (t *Throttle) Sample(force bool, run func() entity.CandidateSet) (set entity.CandidateSet, resampled bool) {
	now := t.clock.Now()
	if !force && t.hasRun && now.Sub(t.lastRun) < t.interval {
		return t.snapshot.Clone(), false
	}

	res := run()
	t.snapshot = res.Clone()
	t.lastRun = now
	t.hasRun = true
	return res, true
}

// Invalidate 丢弃快照，下一次 Sample 必然重新采样
func (t *Throttle) Invalidate() {
	t.hasRun = false
	t.snapshot = nil
}
