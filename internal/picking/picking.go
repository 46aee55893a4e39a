// Package picking 将 GPU 拾取缓冲区中的采样解码为实体命中计数，并按命中次数排序候选实体。
//
// Package picking decodes GPU picking samples into per-entity hit counts and
// ranks the hit entities for labelling.
package picking

import (
	"cmp"
	"slices"

	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// Sentinel 是"未命中任何实体"的解码值
const Sentinel = -1

// DecodeFunc 将一个原始采样解码为实体索引，未命中时返回 Sentinel
type DecodeFunc func(sample uint32) int

// indexMask 选取 RGBA 采样中的 RGB 通道
const indexMask = 0x00FFFFFF

// DecodeGpuIndex 是默认解码函数。
// 拾取着色器把 index+1 写入 RGB 通道，清屏颜色 0 表示未命中。
func DecodeGpuIndex(sample uint32) int {
	return int(sample&indexMask) - 1
}

// EncodeGpuIndex 是 DecodeGpuIndex 的逆运算，主要用于测试和回放
func EncodeGpuIndex(index int) uint32 {
	if index < 0 {
		return 0
	}
	return uint32(index+1)&indexMask | 0xFF000000
}

// Hit 是一个实体索引及其命中次数
type Hit struct {
	Index int
	Count int
}

// Histogram 是按索引升序排列的命中计数，不包含 Sentinel
type Histogram []Hit

// Count 返回 index 的命中次数
func (h Histogram) Count(index int) int {
	i, ok := slices.BinarySearchFunc(h, index, func(hit Hit, target int) int {
		return cmp.Compare(hit.Index, target)
	})
	if !ok {
		return 0
	}
	return h[i].Count
}

// Total 返回所有命中次数之和
func (h Histogram) Total() int {
	n := 0
	for _, hit := range h {
		n += hit.Count
	}
	return n
}

// MarkHits 统计每个解码索引出现的次数。
//
// 先对采样排序再做一次游程计数：O(NlogN) 时间，但只需要一份采样副本，
// 不会为每个索引分配哈希表项。调用方的缓冲区不会被修改。
// 解码不严格单调时，同一索引可能出现在多个游程中，结果会累加。
func MarkHits(samples []uint32, decode DecodeFunc) Histogram {
	if len(samples) == 0 {
		return Histogram{}
	}
	if decode == nil {
		decode = DecodeGpuIndex
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	counts := make(map[int]int)
	left := decode(sorted[0])
	run := 1
	for _, s := range sorted[1:] {
		right := decode(s)
		if right == left {
			run++
			continue
		}
		counts[left] += run
		left, run = right, 1
	}
	counts[left] += run

	delete(counts, Sentinel)

	hist := make(Histogram, 0, len(counts))
	for idx, n := range counts {
		hist = append(hist, Hit{Index: idx, Count: n})
	}
	slices.SortFunc(hist, func(a, b Hit) int { return cmp.Compare(a.Index, b.Index) })
	return hist
}

// Rank 按命中次数降序返回最多 limit 个实体，次数相同时索引小的优先，
// 相同输入总是得到相同结果。
func Rank(h Histogram, dim entity.Dimension, limit int) entity.CandidateSet {
	if limit <= 0 || len(h) == 0 {
		return entity.CandidateSet{}
	}

	top := utils.TopK(h, limit, func(a, b Hit) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Index < b.Index
	})

	out := make(entity.CandidateSet, len(top))
	for i, hit := range top {
		out[i] = entity.Ref{Index: hit.Index, Dim: dim}
	}
	return out
}

// Sample 是解码、统计、排序的完整流程
func Sample(samples []uint32, decode DecodeFunc, dim entity.Dimension, limit int) entity.CandidateSet {
	return Rank(MarkHits(samples, decode), dim, limit)
}
