// Package errors provides standardized error types for poitrack.
// It defines the sentinel errors returned by the tracking engine, the content
// cache and the label transport, plus helpers for checking them.
//
// Package errors 提供 poitrack 的标准化错误类型。
// 它定义了跟踪引擎、内容缓存和标签传输返回的哨兵错误，以及用于检查它们的辅助函数。
package errors

import (
	"errors"
	"fmt"

	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// Standard errors returned by poitrack.
//
// poitrack 返回的标准错误。
var (
	// ErrTransportFailed is returned when the label transport could not answer a request.
	// 当标签传输无法响应请求时返回 ErrTransportFailed。
	ErrTransportFailed = errors.New("poitrack: label transport failed")

	// ErrShortResponse is returned when the transport answered with fewer labels than indices requested.
	// 当传输返回的标签数少于请求的索引数时返回 ErrShortResponse。
	ErrShortResponse = errors.New("poitrack: short label response")

	// ErrEmptyLabel marks a definite negative: the entity has no label content.
	// ErrEmptyLabel 表示确定的否定结果：该实体没有标签内容。
	ErrEmptyLabel = errors.New("poitrack: empty label")

	// ErrReset is returned to waiters of content entries dropped by a cache reset.
	// 当内容条目因缓存重置被丢弃时，向等待者返回 ErrReset。
	ErrReset = errors.New("poitrack: content cache reset")

	// ErrClosed is returned when an operation is attempted on a closed engine or cache.
	// 当对已关闭的引擎或缓存执行操作时返回 ErrClosed。
	ErrClosed = errors.New("poitrack: closed")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	// 当配置值超出范围时返回 ErrInvalidConfig。
	ErrInvalidConfig = errors.New("poitrack: invalid configuration")
)

// RefError associates an error with the entity it concerns.
//
// RefError 将错误与相关实体关联起来。
type RefError struct {
	Ref entity.Ref // The entity that caused the error / 导致错误的实体
	Err error      // The underlying error / 底层错误
}

// Error returns the error message including the entity key.
func (e *RefError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Ref)
}

// Unwrap returns the underlying error.
// This allows errors.Is and errors.As to work with wrapped errors.
func (e *RefError) Unwrap() error {
	return e.Err
}

// NewRefError creates a new RefError.
//
// NewRefError 创建一个新的 RefError。
func NewRefError(ref entity.Ref, err error) *RefError {
	return &RefError{Ref: ref, Err: err}
}

// IsTransportFailed returns true if the error is or wraps ErrTransportFailed.
func IsTransportFailed(err error) bool {
	return errors.Is(err, ErrTransportFailed)
}

// IsEmptyLabel returns true if the error is or wraps ErrEmptyLabel.
func IsEmptyLabel(err error) bool {
	return errors.Is(err, ErrEmptyLabel)
}

// IsReset returns true if the error is or wraps ErrReset.
func IsReset(err error) bool {
	return errors.Is(err, ErrReset)
}

// IsClosed returns true if the error is or wraps ErrClosed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsInvalidConfig returns true if the error is or wraps ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
