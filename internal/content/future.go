package content

import (
	"context"

	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// Result 是一次内容解析的结果。
// Empty 为 true 时 Label 无意义：可能是确定的空内容（Err 为 nil），
// 也可能是本次尝试失败或被重置（Err 非 nil）。
type Result struct {
	Ref   entity.Ref
	Label loader.Label
	Empty bool
	Err   error
}

// Future 是一个只解析一次的内容结果。
// Then/Done/Result 只能在调度器 goroutine 上调用；Wait 可在任意 goroutine 上调用。
type Future struct {
	ref       entity.Ref
	done      chan struct{}
	resolved  bool
	res       Result
	callbacks []func(Result)
}

func newFuture(ref entity.Ref) *Future {
	return &Future{ref: ref, done: make(chan struct{})}
}

// Resolved 返回一个已解析的 Future
func Resolved(res Result) *Future {
	f := newFuture(res.Ref)
	f.resolve(res)
	return f
}

// Ref 返回 Future 对应的实体
func (f *Future) Ref() entity.Ref { return f.ref }

// Done 报告是否已解析
func (f *Future) Done() bool { return f.resolved }

// Result 返回解析结果；尚未解析时 ok 为 false
func (f *Future) Result() (res Result, ok bool) {
	return f.res, f.resolved
}

// Then 注册解析后的回调。已解析时立即调用。
func (f *Future) Then(cb func(Result)) {
	if f.resolved {
		cb(f.res)
		return
	}
	f.callbacks = append(f.callbacks, cb)
}

// Wait 阻塞直到解析或 ctx 结束。空内容返回 ErrEmptyLabel。
func (f *Future) Wait(ctx context.Context) (loader.Label, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return loader.Label{}, ctx.Err()
	}
	switch {
	case f.res.Err != nil:
		return loader.Label{}, f.res.Err
	case f.res.Empty:
		return loader.Label{}, poierrors.NewRefError(f.ref, poierrors.ErrEmptyLabel)
	}
	return f.res.Label, nil
}

func (f *Future) resolve(res Result) bool {
	if f.resolved {
		return false
	}
	f.res = res
	f.resolved = true
	close(f.done)

	cbs := f.callbacks
	f.callbacks = nil
	for _, cb := range cbs {
		cb(res)
	}
	return true
}
