// Package metrics 提供跟踪引擎运行时指标采集、统计和输出功能
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Histogram 内容请求延迟直方图，桶边界按对数分布，从 100 微秒到 30 秒。
// 只使用原子操作，可以在任意 goroutine 上记录和读取。
type Histogram struct {
	bucketBounds []int64 // 纳秒
	bucketCounts []uint64
	count        uint64
	max          int64
	sum          int64
}

// HistogramSnapshot 直方图快照
type HistogramSnapshot struct {
	BucketBounds []int64  `json:"bucket_bounds"`
	BucketCounts []uint64 `json:"bucket_counts"`
	Count        uint64   `json:"count"`
	Max          int64    `json:"max"`
	Sum          int64    `json:"sum"`
	Mean         float64  `json:"mean"`
	P50          int64    `json:"p50"`
	P99          int64    `json:"p99"`
}

// NewHistogram 创建一个有 bucketCount 个对数桶的直方图
func NewHistogram(bucketCount int) *Histogram {
	if bucketCount <= 0 {
		bucketCount = 12
	}

	lo := float64(100 * time.Microsecond)
	hi := float64(30 * time.Second)

	bounds := make([]int64, bucketCount+1)
	for i := range bounds {
		power := float64(i) / float64(bucketCount)
		bounds[i] = int64(lo * math.Pow(hi/lo, power))
	}

	return &Histogram{
		bucketBounds: bounds,
		bucketCounts: make([]uint64, bucketCount+1),
	}
}

// Observe 记录一次耗时
func (h *Histogram) Observe(d time.Duration) {
	ns := int64(d)
	for {
		cur := atomic.LoadInt64(&h.max)
		if ns <= cur || atomic.CompareAndSwapInt64(&h.max, cur, ns) {
			break
		}
	}
	atomic.AddInt64(&h.sum, ns)
	atomic.AddUint64(&h.bucketCounts[h.findBucket(ns)], 1)
	atomic.AddUint64(&h.count, 1)
}

// findBucket 二分查找第一个上界不小于 ns 的桶
func (h *Histogram) findBucket(ns int64) int {
	i, j := 0, len(h.bucketBounds)-1
	for i < j {
		mid := (i + j) / 2
		if ns > h.bucketBounds[mid] {
			i = mid + 1
		} else {
			j = mid
		}
	}
	return i
}

// Snapshot 返回直方图快照
func (h *Histogram) Snapshot() *HistogramSnapshot {
	counts := make([]uint64, len(h.bucketCounts))
	var total uint64
	for i := range h.bucketCounts {
		counts[i] = atomic.LoadUint64(&h.bucketCounts[i])
		total += counts[i]
	}

	s := &HistogramSnapshot{
		BucketBounds: h.bucketBounds,
		BucketCounts: counts,
		Count:        total,
		Max:          atomic.LoadInt64(&h.max),
		Sum:          atomic.LoadInt64(&h.sum),
	}
	if total == 0 {
		return s
	}
	s.Mean = float64(s.Sum) / float64(total)
	s.P50 = h.percentile(counts, total, 0.5)
	s.P99 = h.percentile(counts, total, 0.99)
	return s
}

// percentile 返回累计计数首次达到目标的桶上界
func (h *Histogram) percentile(counts []uint64, total uint64, p float64) int64 {
	target := uint64(math.Ceil(float64(total) * p))
	var cum uint64
	for i, c := range counts {
		cum += c
		if cum >= target {
			return h.bucketBounds[i]
		}
	}
	return h.bucketBounds[len(h.bucketBounds)-1]
}
