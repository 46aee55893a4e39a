// Package poi tracks which rendered graph entities currently merit an
// on-screen label and manages the lifecycle of a bounded set of label slots.
//
// Every tick the engine decodes the GPU picking buffer into per-entity hit
// counts (throttled to one decode per sample interval), ranks the hits, evicts
// active slots that are off screen or have decayed, binds free slots to newly
// hit entities and resolves their content through a single-flight cache.
//
// The engine is not safe for concurrent use. All methods must run on the
// goroutine draining the sched.Loop passed to New; other goroutines use
// Loop.Do or Loop.Post to reach it.
//
// Package poi 跟踪哪些已渲染的图实体当前值得显示标签，并管理有界的标签槽位集合。
//
// 每次 tick，引擎把 GPU 拾取缓冲区解码为实体命中次数（每个采样间隔至多解码一次），
// 对命中排序，淘汰离开屏幕或已衰减的活动槽位，把空闲槽位绑定到新命中的实体，
// 并通过单飞缓存解析其内容。
//
// 引擎不是并发安全的，所有方法都必须在执行 sched.Loop 的 goroutine 上调用。
package poi

import (
	"log/slog"
	"math/rand/v2"

	"github.com/Humphrey-He/poitrack/internal/content"
	"github.com/Humphrey-He/poitrack/internal/logging"
	"github.com/Humphrey-He/poitrack/internal/metrics"
	"github.com/Humphrey-He/poitrack/internal/picking"
	"github.com/Humphrey-He/poitrack/internal/sched"
	"github.com/Humphrey-He/poitrack/internal/slots"
	"github.com/Humphrey-He/poitrack/internal/throttle"
	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// Geometry inputs consumed by the eviction policy.
type (
	Point     = slots.Point
	Size      = slots.Size
	Projector = slots.Projector
)

// Future is a content lookup result resolved on the scheduler goroutine.
type Future = content.Future

// Result is the resolution of a Future.
type Result = content.Result

// RenderHandle is the opaque, caller owned resource a slot draws into
// (a DOM node, a texture region, a terminal cell...).
//
// RenderHandle 是槽位绘制的不透明资源，由调用方拥有。
type RenderHandle = any

// HandleFactory creates a render handle when a candidate needs a slot and
// none is free.
//
// HandleFactory 在候选实体需要槽位而没有空闲槽位时创建渲染句柄。
type HandleFactory func(ref entity.Ref) (RenderHandle, error)

// Renderer draws resolved label content into slots.
//
// Renderer 把解析出的标签内容绘制到槽位中。
type Renderer interface {
	// Clear removes any content from the slot; called on every reassignment.
	Clear(s *Slot)
	// Render shows label in the slot. Hidden columns are already removed.
	Render(s *Slot, label loader.Label)
	// Hide hides the slot because its entity has no content.
	Hide(s *Slot)
}

// NopRenderer ignores every call.
type NopRenderer struct{}

func (NopRenderer) Clear(*Slot)                {}
func (NopRenderer) Render(*Slot, loader.Label) {}
func (NopRenderer) Hide(*Slot)                 {}

// Frame is the per tick input supplied by the rendering subsystem.
//
// Frame 是渲染子系统每次 tick 提供的输入。
type Frame struct {
	// Samples is the raw picking buffer, one encoded sample per probe.
	Samples []uint32
	// Project maps world coordinates to canvas coordinates.
	Project Projector
	// Canvas is the current canvas size.
	Canvas Size
	// Positions holds (x, y) world coordinates indexed by entity index.
	Positions []float32
	// EvictAllMisses evicts every unhit label without the off-screen and decay tests.
	EvictAllMisses bool
}

// Stats describes the engine's pools.
type Stats struct {
	ActiveSlots   int
	InactiveSlots int
	CacheEntries  int
	Generation    uint64
}

// Engine is the label tracking engine.
//
// Engine 是标签跟踪引擎。
type Engine struct {
	cfg      Config
	exec     sched.Executor
	clock    utils.Clock
	rnd      slots.Rand
	logger   *slog.Logger
	metrics  *metrics.Metrics
	renderer Renderer

	throttle *throttle.Throttle
	pool     *slots.Pool[*Slot]
	cache    *content.Cache
}

// New creates an engine resolving label content through transport.
// Completions and debounce timers are posted to exec.
//
// New 创建一个通过 transport 解析标签内容的引擎，完成回调和去抖定时器投递到 exec。
func New(transport loader.Transport, exec sched.Executor, renderer Renderer, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = utils.RealClock{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Decode == nil {
		cfg.Decode = picking.DecodeGpuIndex
	}
	if renderer == nil {
		renderer = NopRenderer{}
	}
	logger := logging.OrNop(cfg.Logger)

	e := &Engine{
		cfg:      cfg,
		exec:     exec,
		clock:    cfg.Clock,
		rnd:      cfg.Rand,
		logger:   logger,
		metrics:  cfg.Metrics,
		renderer: renderer,
		throttle: throttle.New(cfg.Clock, cfg.SampleInterval),
		pool:     slots.NewPool[*Slot](),
		cache: content.New(transport, exec, content.Options{
			Logger:  logger,
			Metrics: cfg.Metrics,
			Clock:   cfg.Clock,
		}),
	}
	return e, nil
}

// Tick runs one tracking step and returns the slots evicted this tick. The
// caller must hide their render handles. A returned slot may already be
// rebound to a new entity in the same tick; its content follows after the
// debounce window.
//
// Tick 执行一次跟踪，返回本次被淘汰的槽位，调用方需要隐藏它们的渲染句柄。
// 返回的槽位可能在同一次 tick 中被重新绑定，其内容在去抖窗口之后到来。
func (e *Engine) Tick(frame Frame, force bool) []*Slot {
	candidates, resampled := e.throttle.Sample(force, func() entity.CandidateSet {
		return picking.Sample(frame.Samples, e.cfg.Decode, e.cfg.Dimension, e.cfg.MaxLabels)
	})
	e.metrics.RecordTick(resampled)

	hits := candidates.Set()
	var cleared []*Slot
	if frame.EvictAllMisses {
		cleared = e.pool.EvictMisses(hits)
		e.metrics.RecordEvictions(metrics.EvictMiss, len(cleared))
	} else {
		view := slots.View{Project: frame.Project, Canvas: frame.Canvas, Positions: frame.Positions}
		res := e.pool.EvictApprox(hits, view, e.rnd, e.cfg.Approx, e.cfg.MaxLabels)
		cleared = res.Cleared
		e.metrics.RecordEvictions(metrics.EvictOffScreen, res.OffScreen)
		e.metrics.RecordEvictions(metrics.EvictDecayed, res.Decayed)
		e.metrics.RecordOverplotted(res.Overplotted)
	}
	for _, s := range cleared {
		s.detach()
	}

	// 淘汰完成后才绑定新的候选，内容请求在去抖之后发出
	for _, ref := range candidates {
		if _, ok := e.pool.Get(ref); ok {
			continue
		}
		s, ok := e.pool.Acquire()
		if !ok {
			if s, ok = e.grow(ref); !ok {
				continue
			}
		}
		s.assign(ref)
		e.pool.Activate(s)
	}

	e.updateGauges()
	return cleared
}

// grow 通过 HandleFactory 创建新槽位；没有工厂时候选实体等待空闲槽位
func (e *Engine) grow(ref entity.Ref) (*Slot, bool) {
	if e.cfg.Factory == nil {
		return nil, false
	}
	h, err := e.cfg.Factory(ref)
	if err != nil {
		e.logger.Warn("render handle factory failed", "ref", ref.String(), "error", err)
		return nil, false
	}
	return &Slot{engine: e, handle: h}, true
}

// CreateSlot wraps handle in a new slot bound to ref. A slot already bound
// to ref is displaced to the inactive pool.
//
// CreateSlot 用 handle 创建绑定到 ref 的新槽位，已绑定到 ref 的槽位被移入空闲池。
func (e *Engine) CreateSlot(handle RenderHandle, ref entity.Ref) *Slot {
	s := &Slot{engine: e, handle: handle}
	s.assign(ref)
	if displaced, ok := e.pool.Activate(s); ok {
		displaced.detach()
		e.renderer.Hide(displaced)
	}
	e.updateGauges()
	return s
}

// AddSlots registers free slots for the given handles.
//
// AddSlots 为给定的句柄注册空闲槽位。
func (e *Engine) AddSlots(handles ...RenderHandle) {
	for _, h := range handles {
		e.pool.Release(&Slot{engine: e, handle: h})
	}
	e.updateGauges()
}

// Reassign binds an active slot to another entity. Content requested for the
// previous entity is never rendered into the slot. It reports false when s is
// not an active slot of this engine.
//
// Reassign 把活动槽位绑定到另一个实体，之前实体的内容不会再渲染到该槽位。
func (e *Engine) Reassign(s *Slot, ref entity.Ref) bool {
	if cur, ok := e.pool.Get(s.ref); !ok || cur != s || s.engine != e {
		return false
	}
	if s.ref == ref {
		return true
	}
	old := s.ref
	s.assign(ref)
	if displaced, ok := e.pool.Rebind(old, s); ok {
		displaced.detach()
		e.renderer.Hide(displaced)
	}
	return true
}

// RequestLabelContent returns the content future for ref, issuing at most one
// transport request per entity until the next Reset.
//
// RequestLabelContent 返回 ref 的内容 Future，在下次 Reset 之前每个实体至多发出一个请求。
func (e *Engine) RequestLabelContent(ref entity.Ref) *Future {
	return e.cache.Get(ref)
}

// LabelObject is RequestLabelContent for callers that only want the record,
// e.g. to build a tooltip; it shares the same cache entry.
//
// LabelObject 与 RequestLabelContent 共享缓存条目，供只需要原始记录的调用方使用。
func (e *Engine) LabelObject(ref entity.Ref) *Future {
	return e.cache.Get(ref)
}

// Reset drops all cached content and evicts every active slot. Responses to
// requests issued before the reset are discarded. The returned slots must be
// hidden by the caller.
//
// Reset 丢弃全部缓存内容并淘汰所有活动槽位，重置之前发出的请求的响应会被丢弃。
func (e *Engine) Reset() []*Slot {
	cleared := e.pool.EvictAll()
	for _, s := range cleared {
		s.detach()
	}
	e.metrics.RecordEvictions(metrics.EvictReset, len(cleared))

	n := e.cache.Reset()
	e.throttle.Invalidate()
	e.logger.Info("label engine reset", "cleared", len(cleared), "entries", n)
	e.updateGauges()
	return cleared
}

// SetDimension switches the sampled entity dimension. Changing it resets the
// engine and returns the slots to hide.
//
// SetDimension 切换采样的实体维度，维度变化时重置引擎。
func (e *Engine) SetDimension(dim entity.Dimension) []*Slot {
	if dim == e.cfg.Dimension {
		return nil
	}
	e.cfg.Dimension = dim
	return e.Reset()
}

// ApplyTuning changes the engine tuning in place, typically from a config
// hot reload posted onto the loop. Invalid values are rejected.
//
// ApplyTuning 就地修改引擎调优参数，通常来自投递到调度器的配置热重载。
func (e *Engine) ApplyTuning(t Tuning) error {
	next := e.cfg
	next.MaxLabels = t.MaxLabels
	next.Approx = t.Approx
	next.SampleInterval = t.SampleInterval
	next.Debounce = t.Debounce
	if err := next.Validate(); err != nil {
		return err
	}
	e.cfg = next
	e.throttle.SetInterval(t.SampleInterval)
	e.logger.Info("label engine tuning applied",
		"max_labels", t.MaxLabels, "approx", t.Approx,
		"sample_interval", t.SampleInterval, "debounce", t.Debounce)
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() Config { return e.cfg }

// Slots returns the active slots ordered by entity.
func (e *Engine) Slots() []*Slot { return e.pool.Active() }

// Slot returns the active slot bound to ref.
func (e *Engine) Slot(ref entity.Ref) (*Slot, bool) { return e.pool.Get(ref) }

// Stats returns pool and cache sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		ActiveSlots:   e.pool.ActiveLen(),
		InactiveSlots: e.pool.InactiveLen(),
		CacheEntries:  e.cache.Len(),
		Generation:    e.cache.Generation(),
	}
}

// Close cancels outstanding content requests and rejects further lookups.
//
// Close 取消进行中的内容请求并拒绝后续查找。
func (e *Engine) Close() {
	for _, s := range e.pool.Active() {
		s.detach()
	}
	e.cache.Close()
}

func (e *Engine) updateGauges() {
	e.metrics.UpdatePool(e.pool.ActiveLen(), e.pool.InactiveLen(), e.cache.Len())
}
