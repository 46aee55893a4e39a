// Package sched 提供协作式单线程调度器。
// 引擎的全部状态只在 Loop 的 goroutine 上读写；异步任务（内容请求、去抖定时器）
// 完成后通过 Post 回到同一个 Loop。
//
// Package sched provides the cooperative scheduler the tracking engine runs on.
package sched

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped 在 Loop 关闭后提交任务时返回
var ErrStopped = errors.New("sched: loop stopped")

// Executor 接受在调度器 goroutine 上执行的任务
type Executor interface {
	Post(task func()) error
}

// Loop 是按提交顺序串行执行任务的 FIFO 调度器。
// 队列无界，Post 永远不会阻塞提交方。
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

// NewLoop 创建一个空的 Loop
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post 把任务加入队列，可以从任意 goroutine 调用
func (l *Loop) Post(task func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len 返回排队中的任务数
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

// RunPending 在调用方 goroutine 上执行当前已排队的全部任务（包括执行过程中新提交的任务），
// 返回执行的任务数。
func (l *Loop) RunPending() int {
	n := 0
	for {
		task, ok := l.pop()
		if !ok {
			return n
		}
		task()
		n++
	}
}

// Step 阻塞直到有任务可执行或 ctx 结束，然后执行一个任务
func (l *Loop) Step(ctx context.Context) error {
	for {
		if task, ok := l.pop(); ok {
			task()
			return nil
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run 持续执行任务直到 ctx 结束，随后拒绝新的任务
func (l *Loop) Run(ctx context.Context) error {
	defer l.Stop()
	for {
		if err := l.Step(ctx); err != nil {
			return err
		}
	}
}

// Do 提交任务并等待其在 Loop 上执行完毕，供其他 goroutine 同步访问引擎
func (l *Loop) Do(ctx context.Context, task func()) error {
	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 关闭 Loop，丢弃尚未执行的任务
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	l.queue = nil
}
