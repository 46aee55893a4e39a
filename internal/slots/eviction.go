package slots

import (
	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// DefaultApprox 是未命中的活动标签在一次 tick 中衰减的概率。
// 越接近 1，未被采样到的标签消失得越快。
const DefaultApprox = 0.5

// Point 是屏幕坐标
type Point struct {
	X, Y float64
}

// Size 是画布尺寸（像素）
type Size struct {
	Width, Height float64
}

// Projector 把世界坐标投影到屏幕坐标，由相机提供，视为纯函数
type Projector func(x, y float32, canvas Size) Point

// View 是淘汰策略本次 tick 需要的只读几何输入
type View struct {
	Project Projector
	Canvas  Size
	// Positions 是按实体索引排列的 (x, y) 世界坐标
	Positions []float32
}

// OffScreen 报告实体 index 的投影是否落在 [0,W]x[0,H] 之外。
// 没有坐标的实体视为不在屏幕上；没有相机时无法判断，视为在屏幕上。
func (v View) OffScreen(index int) bool {
	if v.Project == nil {
		return false
	}
	if index < 0 || 2*index+1 >= len(v.Positions) {
		return true
	}
	pos := v.Project(v.Positions[2*index], v.Positions[2*index+1], v.Canvas)
	return pos.X < 0 || pos.Y < 0 || pos.X > v.Canvas.Width || pos.Y > v.Canvas.Height
}

// Rand 是衰减判定使用的随机源，*rand.Rand 满足该接口
type Rand interface {
	Float64() float64
}

// Result 汇总一次淘汰过程
type Result[S Bound] struct {
	// Cleared 是被移入 inactive 的槽位，调用方需要隐藏它们的渲染句柄
	Cleared []S

	OffScreen   int
	Decayed     int
	Overplotted int
}

// EvictApprox 对每个不在 hits 中的活动槽位执行概率淘汰：
// 投影在屏幕外、或随机衰减、或活动数超过 maxLabels 时淘汰；
// 否则视为被遮挡（overplotted），把它加回 hits，避免标签闪烁。
func (p *Pool[S]) EvictApprox(hits entity.HitSet, view View, rnd Rand, approx float64, maxLabels int) Result[S] {
	var res Result[S]
	for _, key := range p.activeKeys() {
		if hits.Has(key) {
			continue
		}

		if view.OffScreen(key.Index) {
			res.Cleared = append(res.Cleared, p.evict(key))
			res.OffScreen++
			continue
		}

		decayed := len(p.active) > maxLabels || (rnd != nil && rnd.Float64() < approx)
		if decayed {
			res.Cleared = append(res.Cleared, p.evict(key))
			res.Decayed++
			continue
		}

		hits.Add(key)
		res.Overplotted++
	}
	return res
}

// EvictMisses 无条件淘汰所有不在 hits 中的活动槽位，用于重置或切换维度
func (p *Pool[S]) EvictMisses(hits entity.HitSet) []S {
	var cleared []S
	for _, key := range p.activeKeys() {
		if !hits.Has(key) {
			cleared = append(cleared, p.evict(key))
		}
	}
	return cleared
}

// EvictAll 把所有活动槽位移入 inactive
func (p *Pool[S]) EvictAll() []S {
	var cleared []S
	for _, key := range p.activeKeys() {
		cleared = append(cleared, p.evict(key))
	}
	return cleared
}
