package poi

import (
	"github.com/google/uuid"

	"github.com/Humphrey-He/poitrack/internal/content"
	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// SlotState is the lifecycle state of a label slot.
//
// SlotState 是标签槽位的生命周期状态。
type SlotState int

const (
	// Idle: the slot is free or its pending work was cancelled.
	// Idle：槽位空闲，或其挂起的工作已被取消。
	Idle SlotState = iota

	// Debouncing: the slot was (re)assigned and waits for the debounce window to close.
	// Debouncing：槽位刚被（重新）绑定，等待去抖窗口结束。
	Debouncing

	// Fetching: content for the bound entity was requested.
	// Fetching：已为绑定的实体请求内容。
	Fetching

	// Rendered: content was rendered or the slot was hidden because it resolved empty.
	// Rendered：内容已渲染，或因内容为空而被隐藏。
	Rendered
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Fetching:
		return "fetching"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Slot is a reusable label display slot. Its render handle is supplied once
// and kept for the lifetime of the slot; only the bound entity changes.
//
// Slot 是可复用的标签显示槽位。渲染句柄只提供一次并在槽位的整个生命周期内保留，
// 改变的只是绑定的实体。
type Slot struct {
	engine *Engine
	handle RenderHandle

	ref   entity.Ref
	state SlotState

	// requestID identifies the current assignment; responses carrying another id are stale
	requestID uuid.UUID

	timer       utils.Timer
	debounceSeq uint64

	label    loader.Label
	hasLabel bool
}

// Ref returns the entity the slot is bound to.
func (s *Slot) Ref() entity.Ref { return s.ref }

// Handle returns the render handle supplied when the slot was created.
func (s *Slot) Handle() RenderHandle { return s.handle }

// State returns the current lifecycle state.
func (s *Slot) State() SlotState { return s.state }

// RequestID returns the id of the current assignment, uuid.Nil when idle.
func (s *Slot) RequestID() uuid.UUID { return s.requestID }

// Label returns the rendered label, if any.
func (s *Slot) Label() (loader.Label, bool) { return s.label, s.hasLabel }

// assign 绑定到 ref：立即清除旧内容，并在去抖窗口结束后请求内容。
// 窗口从第一次绑定开始计时且不会被后续绑定重置，窗口结束时使用最后一次绑定的实体。
func (s *Slot) assign(ref entity.Ref) {
	e := s.engine
	s.ref = ref
	s.requestID = uuid.New()
	s.label, s.hasLabel = loader.Label{}, false
	e.renderer.Clear(s)
	e.metrics.RecordAssignment()

	if s.state == Debouncing {
		e.metrics.RecordCoalesced()
		return
	}

	s.state = Debouncing
	s.debounceSeq++
	seq := s.debounceSeq
	s.timer = e.clock.AfterFunc(e.cfg.Debounce, func() {
		if err := e.exec.Post(func() { s.settle(seq) }); err != nil {
			e.logger.Debug("debounce fired after scheduler stop", "ref", ref.String())
		}
	})
}

// settle 在去抖窗口结束时请求内容
func (s *Slot) settle(seq uint64) {
	if seq != s.debounceSeq || s.state != Debouncing {
		return
	}
	s.timer = nil
	s.state = Fetching

	id, ref := s.requestID, s.ref
	s.engine.cache.Get(ref).Then(func(res content.Result) {
		s.deliver(id, res)
	})
}

// deliver 只渲染仍属于当前绑定的结果
func (s *Slot) deliver(id uuid.UUID, res content.Result) {
	e := s.engine
	if s.state != Fetching || s.requestID != id || s.ref != res.Ref {
		e.metrics.RecordStaleDrop()
		return
	}
	s.state = Rendered

	if res.Empty {
		if res.Err != nil {
			e.logger.Debug("hiding label after failed lookup", "ref", res.Ref.String(), "error", res.Err)
		}
		e.renderer.Hide(s)
		e.metrics.RecordHide()
		return
	}

	label := res.Label
	label.Columns = label.VisibleColumns()
	s.label, s.hasLabel = label, true
	e.renderer.Render(s, label)
	e.metrics.RecordRender()
}

// detach 取消挂起的去抖和请求，槽位回到 Idle
func (s *Slot) detach() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.debounceSeq++
	s.state = Idle
	s.requestID = uuid.Nil
	s.label, s.hasLabel = loader.Label{}, false
}
