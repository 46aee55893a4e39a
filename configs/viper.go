// This file implements Viper-based configuration management with hot reloading support.
//
// 本文件实现基于 Viper 的配置管理，支持热重载。
package configs

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用 Viper 功能包装 Config 以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	config      *Config         // Current configuration / 当前配置
	viper       *viper.Viper    // Viper instance for configuration management / 用于配置管理的 Viper 实例
	configFile  string          // Path to the configuration file / 配置文件路径
	logger      *slog.Logger    // Reload diagnostics / 重载诊断日志
	mu          sync.RWMutex    // Mutex for thread-safe access / 用于线程安全访问的互斥锁
	subscribers []func(*Config) // Notified on config changes / 配置更改时要通知的订阅者
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewViperConfig creates a new ViperConfig.
// It loads configuration from the specified file and validates it.
// Environment variables prefixed with POITRACK_ override file values,
// e.g. POITRACK_TRACKER_MAX_LABELS=30.
//
// NewViperConfig 创建一个新的 ViperConfig。
// 它从指定的文件加载配置并验证它。以 POITRACK_ 为前缀的环境变量会覆盖文件中的值，
// 例如 POITRACK_TRACKER_MAX_LABELS=30。
//
// Parameters:
//   - configFile: Path to the configuration file
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()

	v.SetConfigFile(configFile)
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
	v.SetEnvPrefix("poitrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		config:     config,
		viper:      v,
		configFile: configFile,
		logger:     slog.Default(),
		stop:       make(chan struct{}),
	}, nil
}

// decode unmarshals the viper state over the defaults and validates it.
func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// SetLogger replaces the logger used for reload diagnostics.
//
// SetLogger 替换用于重载诊断的日志器。
func (vc *ViperConfig) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	vc.mu.Lock()
	vc.logger = l
	vc.mu.Unlock()
}

// EnableHotReload enables hot reloading of the configuration file.
// When the configuration file changes, the configuration is automatically
// reloaded and all subscribers are notified. Invalid files are ignored
// and the previous configuration stays active.
//
// EnableHotReload 启用配置文件的热重载。
// 当配置文件更改时，配置会自动重新加载，并通知所有订阅者。
// 无效的文件会被忽略，之前的配置保持生效。
func (vc *ViperConfig) EnableHotReload() {
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.log().Info("config file changed", "file", e.Name, "op", e.Op.String())
		vc.reload(false)
	})
	vc.viper.WatchConfig()
}

// EnableWatcher polls the configuration file every interval.
// This is an alternative to fsnotify-based hot reloading for file systems
// that do not deliver notifications. Call Close to stop polling.
//
// EnableWatcher 每隔 interval 轮询一次配置文件。
// 这是在文件系统不提供通知时对基于 fsnotify 的热重载的替代。调用 Close 停止轮询。
func (vc *ViperConfig) EnableWatcher(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				vc.reload(true)
			case <-vc.stop:
				return
			}
		}
	}()
}

// reload decodes the current file and notifies subscribers when it changed.
func (vc *ViperConfig) reload(readFile bool) {
	if readFile {
		if err := vc.viper.ReadInConfig(); err != nil {
			vc.log().Warn("failed to read config file", "file", vc.configFile, "error", err)
			return
		}
	}

	newConfig, err := decode(vc.viper)
	if err != nil {
		vc.log().Warn("ignoring config change", "file", vc.configFile, "error", err)
		return
	}

	vc.mu.Lock()
	if configsEqual(vc.config, newConfig) {
		vc.mu.Unlock()
		return
	}
	vc.config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
}

func (vc *ViperConfig) log() *slog.Logger {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.logger
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
// Subscribers run on the watcher goroutine and must not block.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
// 订阅者在监视 goroutine 上运行，不能阻塞。
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
//
// Get 返回当前配置。此方法是线程安全的，可以并发调用。
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.config
}

// Close stops the polling watcher started by EnableWatcher.
//
// Close 停止 EnableWatcher 启动的轮询。
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

// LoadViperConfig loads a configuration from a file using Viper and starts
// the reload mechanism requested by extensions.hot_reload. fsnotify is used
// when watch is true; otherwise the file is polled at the configured interval.
//
// LoadViperConfig 使用 Viper 从文件加载配置，并按 extensions.hot_reload 启动重载。
// watch 为 true 时使用 fsnotify，否则按配置的间隔轮询文件。
func LoadViperConfig(configFile string, watch bool) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	hr := vc.Get().Extensions.HotReload
	if hr.Enable {
		if watch {
			vc.EnableHotReload()
		} else {
			vc.EnableWatcher(hr.WatchInterval)
		}
	}
	return vc, nil
}

// configsEqual checks if two configs are equal.
//
// configsEqual 检查两个配置是否相等。
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
