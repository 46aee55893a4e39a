// Package api provides the main entry point for the poitrack API.
// It re-exports the engine types from pkg/poi together with the scheduler,
// clock and metrics types that callers outside this module need to drive it.
//
// Package api 是 poitrack 的主入口，重新导出 pkg/poi 的引擎类型，
// 以及模块外调用方驱动引擎所需的调度器、时钟和指标类型。
package api

import (
	"time"

	"github.com/Humphrey-He/poitrack/internal/metrics"
	"github.com/Humphrey-He/poitrack/internal/sched"
	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
	"github.com/Humphrey-He/poitrack/pkg/poi"
)

// Engine is the label tracking engine.
// It is re-exported from the poi package.
type Engine = poi.Engine

// Slot is a reusable label display slot.
// It is re-exported from the poi package.
type Slot = poi.Slot

// SlotState is the lifecycle state of a slot.
type SlotState = poi.SlotState

// Frame is the per tick input of the engine.
type Frame = poi.Frame

// Renderer draws label content into slot render handles.
type Renderer = poi.Renderer

// Option configures an engine.
type Option = poi.Option

// Tuning holds the settings that can change on a running engine.
type Tuning = poi.Tuning

// Ref identifies a graph entity.
// It is re-exported from the entity package.
type Ref = entity.Ref

// Dimension is the kind of entity a Ref points at.
type Dimension = entity.Dimension

// Label is a label record returned by a Transport.
// It is re-exported from the loader package.
type Label = loader.Label

// Column is one attribute row of a Label.
type Column = loader.Column

// Transport resolves label records for a batch of entity indices.
type Transport = loader.Transport

// Executor accepts tasks to run on the engine goroutine.
// It is re-exported from the sched package.
type Executor = sched.Executor

// Loop is the cooperative scheduler the engine runs on.
type Loop = sched.Loop

// Clock abstracts time for the throttle and the debounce timers.
// It is re-exported from the utils package.
type Clock = utils.Clock

// ManualClock is a Clock advanced explicitly, for tests and replays.
type ManualClock = utils.ManualClock

// Metrics collects engine counters.
// It is re-exported from the metrics package.
type Metrics = metrics.Metrics

// MetricsLevel defines the level of detail for metrics collection.
type MetricsLevel = metrics.Level

// PrometheusExporter renders Metrics in the Prometheus text format.
type PrometheusExporter = metrics.PrometheusExporter

// Re-export constants.
const (
	Point = entity.Point
	Edge  = entity.Edge

	Idle       = poi.Idle
	Debouncing = poi.Debouncing
	Fetching   = poi.Fetching
	Rendered   = poi.Rendered

	MetricsDisabled = metrics.Disabled
	MetricsBasic    = metrics.Basic
	MetricsDetailed = metrics.Detailed
)

// Re-export functions from the poi package.
var (
	// New creates an engine.
	New = poi.New

	// WithMaxLabels sets the maximum number of tracked entities.
	WithMaxLabels = poi.WithMaxLabels

	// WithApprox sets the per tick decay probability of unhit on-screen slots.
	WithApprox = poi.WithApprox

	// WithSampleInterval sets the minimum time between two picking decodes.
	WithSampleInterval = poi.WithSampleInterval

	// WithDebounce sets the delay between slot assignment and the content request.
	WithDebounce = poi.WithDebounce

	// WithDimension sets the tracked dimension.
	WithDimension = poi.WithDimension

	// WithClock sets the engine clock.
	WithClock = poi.WithClock

	// WithLogger sets the engine logger.
	WithLogger = poi.WithLogger

	// WithMetrics attaches a metrics collector.
	WithMetrics = poi.WithMetrics

	// WithHandleFactory lets the engine create render handles on demand.
	WithHandleFactory = poi.WithHandleFactory

	// OptionsFromConfig translates a file configuration into engine options.
	OptionsFromConfig = poi.OptionsFromConfig

	// TuningFromConfig extracts the hot reloadable settings of a configuration.
	TuningFromConfig = poi.TuningFromConfig
)

// Re-export error helpers from the errors package.
var (
	IsTransportFailed = poierrors.IsTransportFailed
	IsEmptyLabel      = poierrors.IsEmptyLabel
	IsReset           = poierrors.IsReset
	IsClosed          = poierrors.IsClosed
	IsInvalidConfig   = poierrors.IsInvalidConfig
)

// NewLoop creates an empty scheduler loop.
func NewLoop() *Loop {
	return sched.NewLoop()
}

// NewManualClock returns a manual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return utils.NewManualClock(start)
}

// NewMetrics creates a metrics collector at the given level.
func NewMetrics(level MetricsLevel) *Metrics {
	return metrics.New(level)
}

// NewPrometheusExporter creates an exporter for m labelled with engine.
func NewPrometheusExporter(m *Metrics, engine string) *PrometheusExporter {
	return metrics.NewPrometheusExporter(m, engine)
}
