// Package content 实现单飞（single-flight）标签内容缓存。
//
// 每个实体键至多有一个进行中的请求；同一实体的并发查找共享同一个 Future。
// 传输在独立的 goroutine 中执行，完成结果通过调度器回到引擎 goroutine 后
// 才会修改缓存状态。
//
// 条目状态：
//   - Pending：请求进行中
//   - Resolved：已解析出内容
//   - ResolvedEmpty：传输明确返回空内容，不会重新请求
//
// 传输失败时，等待者以空结果解除阻塞，条目被删除，下一次访问会重新请求。
// Reset 清空所有条目，重置之前发出的请求在返回后被丢弃。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Humphrey-He/poitrack/internal/logging"
	"github.com/Humphrey-He/poitrack/internal/metrics"
	"github.com/Humphrey-He/poitrack/internal/sched"
	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// Options 配置 Cache
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   utils.Clock
}

type entry struct {
	future *Future
	gen    uint64
}

// Cache 是单飞内容缓存，所有方法只能在调度器 goroutine 上调用
type Cache struct {
	transport loader.Transport
	exec      sched.Executor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     utils.Clock

	entries map[entity.Ref]*entry
	gen     uint64
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建一个 Cache，exec 是完成回调投递的调度器
func New(transport loader.Transport, exec sched.Executor, opts Options) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	clock := opts.Clock
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Cache{
		transport: transport,
		exec:      exec,
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
		clock:     clock,
		entries:   make(map[entity.Ref]*entry),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Len 返回缓存条目数（包括进行中的条目）
func (c *Cache) Len() int { return len(c.entries) }

// Generation 返回 Reset 的次数
func (c *Cache) Generation() uint64 { return c.gen }

// Get 返回 ref 的内容 Future。已有条目时直接共享；否则创建条目并发出恰好一个请求。
func (c *Cache) Get(ref entity.Ref) *Future {
	if c.closed {
		return Resolved(Result{Ref: ref, Empty: true, Err: poierrors.NewRefError(ref, poierrors.ErrClosed)})
	}
	if e, ok := c.entries[ref]; ok {
		c.metrics.RecordHit()
		return e.future
	}

	c.metrics.RecordMiss()
	e := &entry{future: newFuture(ref), gen: c.gen}
	c.entries[ref] = e
	c.fetch(ref, e)
	return e.future
}

// Peek 返回 ref 的已有条目，不会发出请求
func (c *Cache) Peek(ref entity.Ref) (*Future, bool) {
	e, ok := c.entries[ref]
	if !ok {
		return nil, false
	}
	return e.future, true
}

func (c *Cache) fetch(ref entity.Ref, e *entry) {
	ctx := c.ctx
	start := c.clock.Now()
	c.logger.Debug("fetching label content", "ref", ref.String())

	go func() {
		labels, err := c.transport.Fetch(ctx, ref.Dim, []int{ref.Index})
		c.metrics.RecordFetch(c.clock.Now().Sub(start))
		if perr := c.exec.Post(func() { c.complete(ref, e, labels, err) }); perr != nil {
			// 调度器已停止，结果无人接收
			c.logger.Debug("dropping label content after scheduler stop", "ref", ref.String())
		}
	}()
}

// complete 在调度器 goroutine 上处理请求结果
func (c *Cache) complete(ref entity.Ref, e *entry, labels []loader.Label, err error) {
	if cur, ok := c.entries[ref]; !ok || cur != e {
		c.metrics.RecordStaleDrop()
		c.logger.Debug("discarding stale label content", "ref", ref.String(), "generation", e.gen)
		return
	}

	if err == nil && len(labels) == 0 {
		err = poierrors.ErrShortResponse
	}
	if err != nil {
		delete(c.entries, ref)
		c.metrics.RecordFailure()
		c.logger.Warn("label content request failed", "ref", ref.String(), "error", err)
		e.future.resolve(Result{
			Ref:   ref,
			Empty: true,
			Err:   poierrors.NewRefError(ref, fmt.Errorf("%w: %w", poierrors.ErrTransportFailed, err)),
		})
		return
	}

	label := labels[0]
	if label.Empty() {
		c.metrics.RecordEmpty()
		e.future.resolve(Result{Ref: ref, Empty: true})
		return
	}
	e.future.resolve(Result{Ref: ref, Label: label})
}

// Reset 丢弃全部条目。进行中的 Future 以 ErrReset 解析，其请求结果返回后被忽略。
func (c *Cache) Reset() int {
	n := len(c.entries)
	pending := make([]*entry, 0, n)
	for _, e := range c.entries {
		if !e.future.Done() {
			pending = append(pending, e)
		}
	}
	slices.SortFunc(pending, func(a, b *entry) int {
		return entity.Compare(a.future.ref, b.future.ref)
	})
	c.entries = make(map[entity.Ref]*entry)
	c.gen++
	c.metrics.RecordReset()

	for _, e := range pending {
		e.future.resolve(Result{
			Ref:   e.future.ref,
			Empty: true,
			Err:   poierrors.NewRefError(e.future.ref, poierrors.ErrReset),
		})
	}
	c.logger.Debug("content cache reset", "entries", n, "pending", len(pending), "generation", c.gen)
	return n
}

// Close 取消所有进行中的请求，丢弃全部条目并拒绝后续查找
func (c *Cache) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.Reset()
}
