package poi

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Humphrey-He/poitrack/configs"
	"github.com/Humphrey-He/poitrack/internal/metrics"
	"github.com/Humphrey-He/poitrack/internal/picking"
	"github.com/Humphrey-He/poitrack/internal/slots"
	"github.com/Humphrey-He/poitrack/internal/throttle"
	"github.com/Humphrey-He/poitrack/internal/utils"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
)

const (
	// DefaultMaxLabels is the number of ranked candidates kept per sampling pass.
	// DefaultMaxLabels 是每轮采样保留的候选数量。
	DefaultMaxLabels = 20

	// DefaultApprox is the decay probability of an unhit on-screen label.
	// DefaultApprox 是未命中但仍在屏幕上的标签的衰减概率。
	DefaultApprox = slots.DefaultApprox

	// DefaultSampleInterval is the minimum time between two decodes.
	// DefaultSampleInterval 是两次解码之间的最短时间。
	DefaultSampleInterval = throttle.DefaultInterval

	// DefaultDebounce coalesces slot reassignments.
	// DefaultDebounce 是合并槽位重新绑定的窗口。
	DefaultDebounce = 3 * time.Millisecond
)

// Config holds the engine settings assembled from Options.
//
// Config 保存由 Option 组装的引擎设置。
type Config struct {
	MaxLabels      int
	Approx         float64
	SampleInterval time.Duration
	Debounce       time.Duration
	Dimension      entity.Dimension

	Clock   utils.Clock
	Rand    slots.Rand
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Decode  picking.DecodeFunc
	Factory HandleFactory
}

func defaultConfig() Config {
	return Config{
		MaxLabels:      DefaultMaxLabels,
		Approx:         DefaultApprox,
		SampleInterval: DefaultSampleInterval,
		Debounce:       DefaultDebounce,
		Dimension:      entity.Point,
	}
}

// Validate reports settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.MaxLabels <= 0 {
		return fmt.Errorf("%w: max labels must be positive, got %d", poierrors.ErrInvalidConfig, c.MaxLabels)
	}
	if c.Approx < 0 || c.Approx > 1 {
		return fmt.Errorf("%w: approx must be in [0, 1], got %v", poierrors.ErrInvalidConfig, c.Approx)
	}
	if c.Debounce < 0 || c.SampleInterval < 0 {
		return fmt.Errorf("%w: durations must be non-negative", poierrors.ErrInvalidConfig)
	}
	return nil
}

// Option is a function that configures an Engine.
//
// Option 是一个配置引擎的函数。
type Option func(*Config)

// WithMaxLabels sets the number of candidates ranked per sampling pass and
// the soft capacity of the active slot set.
//
// WithMaxLabels 设置每轮采样的候选数量以及活动槽位集合的软容量。
func WithMaxLabels(n int) Option {
	return func(c *Config) { c.MaxLabels = n }
}

// WithApprox sets the decay probability; the closer to 1 the faster unhit labels disappear.
//
// WithApprox 设置衰减概率，越接近 1 未命中的标签消失得越快。
func WithApprox(p float64) Option {
	return func(c *Config) { c.Approx = p }
}

// WithSampleInterval sets the throttle window of the decode/rank pass.
func WithSampleInterval(d time.Duration) Option {
	return func(c *Config) { c.SampleInterval = d }
}

// WithDebounce sets the slot reassignment debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) { c.Debounce = d }
}

// WithDimension sets the dimension of entities produced by the sampling pass.
func WithDimension(dim entity.Dimension) Option {
	return func(c *Config) { c.Dimension = dim }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock utils.Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithRand replaces the random source of the decay draw.
func WithRand(r slots.Rand) Option {
	return func(c *Config) { c.Rand = r }
}

// WithLogger sets the logger; the engine is silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithDecoder replaces the picking sample decode function.
func WithDecoder(decode picking.DecodeFunc) Option {
	return func(c *Config) { c.Decode = decode }
}

// WithHandleFactory lets the engine create render handles when every slot is in use.
//
// WithHandleFactory 允许引擎在所有槽位都被占用时创建新的渲染句柄。
func WithHandleFactory(f HandleFactory) Option {
	return func(c *Config) { c.Factory = f }
}

// OptionsFromConfig translates the tracker section of a file configuration.
//
// OptionsFromConfig 把文件配置中的 tracker 部分转换为引擎选项。
func OptionsFromConfig(cfg *configs.Config) ([]Option, error) {
	dim, err := entity.ParseDimension(cfg.Tracker.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poierrors.ErrInvalidConfig, err)
	}
	opts := []Option{
		WithMaxLabels(cfg.Tracker.MaxLabels),
		WithApprox(cfg.Tracker.Approx),
		WithSampleInterval(cfg.Tracker.SampleInterval),
		WithDebounce(cfg.Tracker.Debounce),
		WithDimension(dim),
	}
	if cfg.Tracker.Seed != 0 {
		seed := cfg.Tracker.Seed
		opts = append(opts, WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))))
	}
	return opts, nil
}

// Tuning is the part of the configuration that can change on a running engine.
//
// Tuning 是可以在运行中的引擎上修改的配置部分。
type Tuning struct {
	MaxLabels      int
	Approx         float64
	SampleInterval time.Duration
	Debounce       time.Duration
}

// TuningFromConfig extracts the hot reloadable tracker settings.
func TuningFromConfig(cfg *configs.Config) Tuning {
	return Tuning{
		MaxLabels:      cfg.Tracker.MaxLabels,
		Approx:         cfg.Tracker.Approx,
		SampleInterval: cfg.Tracker.SampleInterval,
		Debounce:       cfg.Tracker.Debounce,
	}
}
