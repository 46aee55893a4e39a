package utils

import (
	"container/heap"
)

// MinHeap 是一个通用的最小堆实现，less 决定堆顶元素。
// 不是并发安全的。
type MinHeap[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewMinHeap 创建一个新的最小堆
// less 是比较函数，当a应该排在b前面时返回true
func NewMinHeap[T any](less func(a, b T) bool) *MinHeap[T] {
	return &MinHeap[T]{less: less}
}

// Len 返回堆的长度
func (h *MinHeap[T]) Len() int { return len(h.items) }

// Less 比较两个元素的顺序
func (h *MinHeap[T]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }

// Swap 交换两个元素
func (h *MinHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

// Push 实现 heap.Interface，请使用 Add
func (h *MinHeap[T]) Push(x any) { h.items = append(h.items, x.(T)) }

// Pop 实现 heap.Interface，请使用 RemoveTop
func (h *MinHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	var zero T
	old[n-1] = zero
	h.items = old[:n-1]
	return x
}

// Add 添加一个元素到堆中
func (h *MinHeap[T]) Add(item T) { heap.Push(h, item) }

// Peek 查看堆顶元素但不移除
func (h *MinHeap[T]) Peek() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

// RemoveTop 移除并返回堆顶元素
func (h *MinHeap[T]) RemoveTop() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(h).(T), true
}

// ReplaceTop 用 item 替换堆顶元素并恢复堆序，堆为空时等同于 Add
func (h *MinHeap[T]) ReplaceTop(item T) {
	if len(h.items) == 0 {
		h.Add(item)
		return
	}
	h.items[0] = item
	heap.Fix(h, 0)
}

// TopK 返回 items 中最靠前的至多 k 个元素，按从好到差排列。
// better 必须是严格全序，否则相等元素之间的顺序不确定。
// 时间复杂度 O(N log k)，items 不会被修改。
func TopK[T any](items []T, k int, better func(a, b T) bool) []T {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	// 堆顶是已保留元素中最差的一个
	h := NewMinHeap(func(a, b T) bool { return better(b, a) })
	h.items = make([]T, 0, min(k, len(items)))
	for _, it := range items {
		if h.Len() < k {
			h.Add(it)
			continue
		}
		if worst, _ := h.Peek(); better(it, worst) {
			h.ReplaceTop(it)
		}
	}

	out := make([]T, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = h.RemoveTop()
	}
	return out
}
