// Package loader defines the label records served for graph entities and the
// transport interface the content cache uses to resolve them on a miss.
//
// Package loader 定义图实体的标签记录，以及内容缓存在未命中时用于解析它们的传输接口。
package loader

import (
	"context"
	"strings"

	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// Label is one label record as returned by the transport.
// A record with neither Title nor Formatted is the transport's "empty" signal.
//
// Label 是传输返回的一条标签记录。
// 既没有 Title 也没有 Formatted 的记录表示"空"。
type Label struct {
	Title     *string  `json:"title,omitempty" yaml:"title,omitempty"`
	Formatted *string  `json:"formatted,omitempty" yaml:"formatted,omitempty"`
	Columns   []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Empty reports whether the record carries no usable content.
//
// Empty 报告记录是否不包含可用内容。
func (l Label) Empty() bool {
	return l.Title == nil && l.Formatted == nil
}

// VisibleColumns returns the columns whose key does not start with "_".
// Keys with a leading underscore are internal attributes and never displayed.
//
// VisibleColumns 返回键不以 "_" 开头的列。以下划线开头的键是内部属性，不会显示。
func (l Label) VisibleColumns() []Column {
	out := make([]Column, 0, len(l.Columns))
	for _, c := range l.Columns {
		if c.Key == "" || strings.HasPrefix(c.Key, "_") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NewTitled returns a label with the given title and columns.
func NewTitled(title string, columns ...Column) Label {
	return Label{Title: &title, Columns: columns}
}

// NewFormatted returns a preset label carrying pre-rendered markup.
func NewFormatted(formatted string) Label {
	return Label{Formatted: &formatted}
}

// Transport resolves label records for a batch of entity indices of one dimension.
// Implementations return one record per requested index, in request order.
//
// Transport 为同一维度的一批实体索引解析标签记录。
// 实现必须按请求顺序为每个索引返回一条记录。
type Transport interface {
	Fetch(ctx context.Context, dim entity.Dimension, indices []int) ([]Label, error)
}

// TransportFunc is a function type that implements the Transport interface.
//
// TransportFunc 是实现 Transport 接口的函数类型。
type TransportFunc func(ctx context.Context, dim entity.Dimension, indices []int) ([]Label, error)

// Fetch calls the function itself.
func (f TransportFunc) Fetch(ctx context.Context, dim entity.Dimension, indices []int) ([]Label, error) {
	return f(ctx, dim, indices)
}

// FallbackTransport provides a fallback mechanism when the primary transport fails.
//
// FallbackTransport 提供当主传输失败时的后备机制。
type FallbackTransport struct {
	Primary   Transport
	Secondary Transport
}

// Fetch attempts the primary transport and falls back to the secondary one on error.
//
// Fetch 尝试使用主传输，出错时回退到次要传输。
func (f *FallbackTransport) Fetch(ctx context.Context, dim entity.Dimension, indices []int) ([]Label, error) {
	labels, err := f.Primary.Fetch(ctx, dim, indices)
	if err != nil && f.Secondary != nil {
		return f.Secondary.Fetch(ctx, dim, indices)
	}
	return labels, err
}

// NewFallbackTransport creates a new FallbackTransport with the given primary and secondary transports.
//
// NewFallbackTransport 使用给定的主传输和次要传输创建一个新的 FallbackTransport。
func NewFallbackTransport(primary, secondary Transport) *FallbackTransport {
	return &FallbackTransport{
		Primary:   primary,
		Secondary: secondary,
	}
}
