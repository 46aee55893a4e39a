// Package entity defines the identity of trackable graph entities.
// A Ref is the universal cache key shared by the slot pool and the content cache.
//
// Package entity 定义可跟踪图实体的标识。
// Ref 是槽位池和内容缓存共享的通用缓存键。
package entity

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Dimension identifies the kind of entity a Ref points at.
// The numeric values are the wire codes used by the label transport.
//
// Dimension 标识 Ref 指向的实体类型。
// 数值即标签传输协议使用的编码。
type Dimension uint8

const (
	// Point is a graph node.
	// Point 表示图节点。
	Point Dimension = 1

	// Edge is a graph edge.
	// Edge 表示图的边。
	Edge Dimension = 2
)

// String returns the lower case name of the dimension.
func (d Dimension) String() string {
	switch d {
	case Point:
		return "point"
	case Edge:
		return "edge"
	default:
		return "dim(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDimension accepts either the name ("point", "edge") or the wire code ("1", "2").
//
// ParseDimension 接受名称（"point"、"edge"）或编码（"1"、"2"）。
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "1":
		return Point, nil
	case "edge", "2":
		return Edge, nil
	}
	return 0, fmt.Errorf("unknown dimension %q", s)
}

// Ref is the identity of a trackable entity.
// Two refs with the same Index and Dim are equal and map to the same cache key.
//
// Ref 是可跟踪实体的标识。
// Index 和 Dim 相同的两个 Ref 相等，并映射到同一个缓存键。
type Ref struct {
	Index int
	Dim   Dimension
}

// String renders the composite key as "index,dim".
func (r Ref) String() string {
	return strconv.Itoa(r.Index) + "," + strconv.Itoa(int(r.Dim))
}

// Compare orders refs by dimension, then by index.
func Compare(a, b Ref) int {
	if c := cmp.Compare(a.Dim, b.Dim); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// CandidateSet is the ranked list of entities hit by the current sampling pass.
// The first element has the highest hit count.
//
// CandidateSet 是当前采样轮次命中实体的排序列表，第一个元素命中次数最高。
type CandidateSet []Ref

// Clone returns an independent copy that callers may mutate freely.
func (c CandidateSet) Clone() CandidateSet {
	if c == nil {
		return nil
	}
	out := make(CandidateSet, len(c))
	copy(out, c)
	return out
}

// Set converts the ranked list into a membership set.
func (c CandidateSet) Set() HitSet {
	s := make(HitSet, len(c))
	for _, r := range c {
		s[r] = struct{}{}
	}
	return s
}

// HitSet is the effective set of entities considered hit during one tick.
// The eviction policy adds overplotted entities to it.
//
// HitSet 是一次 tick 中被视为命中的实体集合，淘汰策略会把被遮挡的实体加入其中。
type HitSet map[Ref]struct{}

// Has reports whether r is in the set.
func (s HitSet) Has(r Ref) bool {
	_, ok := s[r]
	return ok
}

// Add inserts r.
func (s HitSet) Add(r Ref) {
	s[r] = struct{}{}
}
