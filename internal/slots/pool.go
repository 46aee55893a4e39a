// Package slots 实现标签槽位池以及活动槽位的保留/淘汰策略。
//
// 槽位在任意时刻恰好属于 active（以实体键索引）或 inactive（可复用集合）之一。
// 池本身不创建槽位，只负责在两个分组之间移动它们。
package slots

import (
	"slices"

	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// Bound 是池中可管理的槽位类型，Ref 返回槽位当前绑定的实体
type Bound interface {
	Ref() entity.Ref
}

// Pool 是按实体键索引的活动槽位与空闲槽位的集合，不是并发安全的
type Pool[S Bound] struct {
	active   map[entity.Ref]S
	inactive []S
}

// NewPool 创建一个空池
func NewPool[S Bound]() *Pool[S] {
	return &Pool[S]{active: make(map[entity.Ref]S)}
}

// ActiveLen 返回活动槽位数
func (p *Pool[S]) ActiveLen() int { return len(p.active) }

// InactiveLen 返回空闲槽位数
func (p *Pool[S]) InactiveLen() int { return len(p.inactive) }

// Get 返回绑定到 ref 的活动槽位
func (p *Pool[S]) Get(ref entity.Ref) (S, bool) {
	s, ok := p.active[ref]
	return s, ok
}

// Activate 以 s.Ref() 为键把槽位放入 active。
// 若该键已有其他槽位，旧槽位被移入 inactive 并返回。
func (p *Pool[S]) Activate(s S) (displaced S, ok bool) {
	key := s.Ref()
	if old, exists := p.active[key]; exists {
		p.inactive = append(p.inactive, old)
		displaced, ok = old, true
	}
	p.active[key] = s
	return displaced, ok
}

// Acquire 从 inactive 取出一个槽位；调用方必须随后 Activate 或 Release 它
func (p *Pool[S]) Acquire() (S, bool) {
	var zero S
	n := len(p.inactive)
	if n == 0 {
		return zero, false
	}
	s := p.inactive[n-1]
	p.inactive[n-1] = zero
	p.inactive = p.inactive[:n-1]
	return s, true
}

// Release 把一个不在 active 中的槽位放回 inactive
func (p *Pool[S]) Release(s S) {
	p.inactive = append(p.inactive, s)
}

// Rebind 在槽位绑定的实体从 old 变为 s.Ref() 后更新索引，
// 返回值与 Activate 相同
func (p *Pool[S]) Rebind(old entity.Ref, s S) (displaced S, ok bool) {
	delete(p.active, old)
	return p.Activate(s)
}

// Active 按实体顺序返回活动槽位的快照
func (p *Pool[S]) Active() []S {
	keys := p.activeKeys()
	out := make([]S, len(keys))
	for i, k := range keys {
		out[i] = p.active[k]
	}
	return out
}

// Inactive 返回空闲槽位的快照
func (p *Pool[S]) Inactive() []S {
	return slices.Clone(p.inactive)
}

func (p *Pool[S]) activeKeys() []entity.Ref {
	keys := make([]entity.Ref, 0, len(p.active))
	for k := range p.active {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, entity.Compare)
	return keys
}

// evict 把 key 对应的槽位从 active 移到 inactive
func (p *Pool[S]) evict(key entity.Ref) S {
	s := p.active[key]
	delete(p.active, key)
	p.inactive = append(p.inactive, s)
	return s
}
