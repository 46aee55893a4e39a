// Package configs provides configuration structures and utilities for poitrack.
// It offers mechanisms for loading, validating, and saving configuration from
// JSON and YAML files. The configuration covers the tracking engine, the label
// content transport, the label server and the ambient logging/metrics stack.
//
// Package configs 提供 poitrack 的配置结构和工具。
// 它提供从 JSON 和 YAML 文件加载、验证和保存配置的机制。
// 配置涵盖跟踪引擎、标签内容传输、标签服务器以及日志和指标。
package configs

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
)

// Config represents the complete configuration for poitrack.
//
// Config 表示 poitrack 的完整配置。
type Config struct {
	// Tracker tunes sampling, ranking and label retention
	// Tracker 调整采样、排序和标签保留
	Tracker TrackerConfig `json:"tracker" yaml:"tracker" mapstructure:"tracker"`

	// Transport configures how label content is requested
	// Transport 配置如何请求标签内容
	Transport TransportConfig `json:"transport" yaml:"transport" mapstructure:"transport"`

	// Server configures the label server
	// Server 配置标签服务器
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Metrics configures runtime statistics
	// Metrics 配置运行时统计
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// Extra allows for custom configuration options
	// Extra 允许自定义配置选项
	Extra map[string]interface{} `json:"extra" yaml:"extra" mapstructure:"extra"`
}

// TrackerConfig contains the tuning of the label tracking engine.
// Every field except Dimension and Seed can be changed on a running engine.
//
// TrackerConfig 包含标签跟踪引擎的调优参数。
// 除 Dimension 和 Seed 外，所有字段都可以在运行中的引擎上修改。
type TrackerConfig struct {
	// MaxLabels is the number of ranked candidates kept per sampling pass
	// MaxLabels 是每轮采样保留的候选数量
	MaxLabels int `json:"max_labels" yaml:"max_labels" mapstructure:"max_labels"`

	// Approx is the probability an unhit on-screen label decays in one tick
	// Approx 是未命中但仍在屏幕上的标签在一次 tick 中衰减的概率
	Approx float64 `json:"approx" yaml:"approx" mapstructure:"approx"`

	// SampleInterval is the minimum time between two decodes of the picking buffer
	// SampleInterval 是两次解码拾取缓冲区之间的最短时间
	SampleInterval time.Duration `json:"sample_interval" yaml:"sample_interval" mapstructure:"sample_interval"`

	// Debounce is the window that coalesces rapid slot reassignments
	// Debounce 是合并快速槽位重新绑定的窗口
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// Dimension is the entity kind produced by the sampling pass ("point" or "edge")
	// Dimension 是采样产生的实体类型（"point" 或 "edge"）
	Dimension string `json:"dimension" yaml:"dimension" mapstructure:"dimension"`

	// EvictAllMisses selects the exact eviction mode instead of the probabilistic one
	// EvictAllMisses 选择精确淘汰模式而不是概率淘汰
	EvictAllMisses bool `json:"evict_all_misses" yaml:"evict_all_misses" mapstructure:"evict_all_misses"`

	// Seed seeds the decay random source; 0 picks a time based seed
	// Seed 是衰减随机源的种子；0 表示使用基于时间的种子
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// TransportConfig contains the settings of the HTTP label transport.
//
// TransportConfig 包含 HTTP 标签传输的设置。
type TransportConfig struct {
	// BaseURL is the label server address
	// BaseURL 是标签服务器地址
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// FallbackURL is queried when BaseURL fails (empty = no fallback)
	// FallbackURL 在 BaseURL 失败时使用（为空表示没有后备）
	FallbackURL string `json:"fallback_url" yaml:"fallback_url" mapstructure:"fallback_url"`

	// Timeout bounds one request (0 = no timeout)
	// Timeout 限制单个请求的时长（0 = 不限制）
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig contains the settings of the label server.
//
// ServerConfig 包含标签服务器的设置。
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Mode is the gin mode ("debug", "release", "test")
	// Mode 是 gin 的运行模式
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Dataset is a YAML or JSON file with the label records to serve
	// Dataset 是包含标签记录的 YAML 或 JSON 文件
	Dataset string `json:"dataset" yaml:"dataset" mapstructure:"dataset"`

	// CacheSize is the number of formatted labels kept in memory
	// CacheSize 是内存中保留的已格式化标签数量
	CacheSize int `json:"cache_size" yaml:"cache_size" mapstructure:"cache_size"`

	// Locale selects number formatting of label values
	// Locale 选择标签值的数字格式
	Locale string `json:"locale" yaml:"locale" mapstructure:"locale"`

	// MaxBatch limits the number of indices in one request
	// MaxBatch 限制单个请求中的索引数量
	MaxBatch int `json:"max_batch" yaml:"max_batch" mapstructure:"max_batch"`
}

// MetricsConfig contains settings for metrics collection.
//
// MetricsConfig 包含指标收集的设置。
type MetricsConfig struct {
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Level controls the detail of metrics collection ("basic", "detailed", "disabled")
	// Level 控制指标收集的详细程度（"basic"、"detailed"、"disabled"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Prefix is prepended to every exported Prometheus metric
	// Prefix 是导出的 Prometheus 指标前缀
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// Path is the HTTP path the exporter is mounted on
	// Path 是导出器挂载的 HTTP 路径
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig contains settings for logging.
//
// LogConfig 包含日志记录的设置。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("text", "json")
	// Format 指定日志格式（"text"、"json"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output determines where logs are written ("stdout", "stderr", "file", "discard")
	// Output 确定日志写入的位置（"stdout"、"stderr"、"file"、"discard"）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当 Output 为 "file" 时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
//
// HotReloadConfig 包含热重载的设置。
type HotReloadConfig struct {
	// Enable determines whether hot reloading is active
	// Enable 确定是否启用热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval is how often to poll for changes when file notifications are unavailable
	// WatchInterval 是文件通知不可用时轮询配置更改的频率
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
//
// DefaultConfig 返回具有默认值的新 Config。
//
// Returns:
//   - *Config: A new configuration instance with default values
//
// 返回：
//   - *Config: 具有默认值的新配置实例
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			MaxLabels:      20,
			Approx:         0.5,
			SampleInterval: 300 * time.Millisecond,
			Debounce:       3 * time.Millisecond,
			Dimension:      "point",
		},
		Transport: TransportConfig{
			BaseURL: "http://127.0.0.1:8080",
		},
		Server: ServerConfig{
			Addr:      ":8080",
			Mode:      "release",
			CacheSize: 1024,
			Locale:    "en",
			MaxBatch:  256,
		},
		Metrics: MetricsConfig{
			Enable: true,
			Level:  "basic",
			Prefix: "poitrack",
			Path:   "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable:        false,
				WatchInterval: 30 * time.Second,
			},
		},
		Extra: make(map[string]interface{}),
	}
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, automatically
// detecting the format based on the file extension.
//
// LoadFromFile 从文件加载配置。
// 它支持 YAML 和 JSON 格式，根据文件扩展名自动检测格式。
//
// Parameters:
//   - filename: Path to the configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return LoadFromReader(file, ext)
}

// LoadFromReader loads configuration from an io.Reader.
//
// LoadFromReader 从 io.Reader 加载配置。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
// The format is selected from the file extension.
//
// SaveToFile 将配置保存到文件，格式由文件扩展名决定。
func (c *Config) SaveToFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	if ext == ".json" {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	} else {
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		err = encoder.Encode(c)
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}

// Validate validates the configuration.
// Every failure wraps errors.ErrInvalidConfig.
//
// Validate 验证配置，所有失败都包装 errors.ErrInvalidConfig。
func (c *Config) Validate() error {
	// 跟踪引擎
	if c.Tracker.MaxLabels <= 0 {
		return invalid("tracker.max_labels must be positive")
	}
	if c.Tracker.Approx < 0 || c.Tracker.Approx > 1 {
		return invalid("tracker.approx must be between 0 and 1")
	}
	if c.Tracker.SampleInterval < 0 {
		return invalid("tracker.sample_interval must be non-negative")
	}
	if c.Tracker.Debounce < 0 {
		return invalid("tracker.debounce must be non-negative")
	}
	switch c.Tracker.Dimension {
	case "point", "edge":
	default:
		return invalid("tracker.dimension must be one of: point, edge")
	}

	// 传输
	if c.Transport.Timeout < 0 {
		return invalid("transport.timeout must be non-negative")
	}

	// 服务器
	if c.Server.CacheSize <= 0 {
		return invalid("server.cache_size must be positive")
	}
	if c.Server.MaxBatch <= 0 {
		return invalid("server.max_batch must be positive")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return invalid("server.mode must be one of: debug, release, test")
	}

	// 指标
	switch c.Metrics.Level {
	case "basic", "detailed", "disabled":
	default:
		return invalid("metrics.level must be one of: basic, detailed, disabled")
	}
	if c.Metrics.Enable && !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with '/'")
	}

	// 日志
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be one of: text, json")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file", "discard":
	default:
		return invalid("log.output must be one of: stdout, stderr, file, discard")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return invalid("log.file_path must be specified when log.output is 'file'")
	}

	if c.Extensions.HotReload.Enable && c.Extensions.HotReload.WatchInterval < time.Second {
		return invalid("extensions.hot_reload.watch_interval must be at least 1 second")
	}

	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", poierrors.ErrInvalidConfig, msg)
}
