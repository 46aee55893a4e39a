// Package transport implements the label transport over HTTP.
//
// A request for {dim, indices} is sent as
//
//	GET <base>/labels?dim=<code>&indices=<i1>,<i2>,...
//
// and answered with a loader.Response holding one label per index.
//
// Package transport 通过 HTTP 实现标签传输。
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Humphrey-He/poitrack/configs"
	"github.com/Humphrey-He/poitrack/internal/logging"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// LabelsPath is the endpoint served by the label server.
const LabelsPath = "/labels"

// maxErrorBody bounds how much of a failed response is read into the error.
const maxErrorBody = 4 << 10

// Client is an HTTP loader.Transport. It is safe for concurrent use.
//
// Client 是基于 HTTP 的 loader.Transport，可以并发使用。
type Client struct {
	endpoint *url.URL
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request; 0 disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.OrNop(l) }
}

// New creates a client for the label server at baseURL.
//
// New 为 baseURL 处的标签服务器创建客户端。
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: transport base url: %v", poierrors.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: transport base url %q must be http or https", poierrors.ErrInvalidConfig, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + LabelsPath

	c := &Client{
		endpoint: u,
		http:     &http.Client{},
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch implements loader.Transport.
func (c *Client) Fetch(ctx context.Context, dim entity.Dimension, indices []int) ([]loader.Label, error) {
	u := *c.endpoint
	q := url.Values{}
	q.Set("dim", strconv.Itoa(int(dim)))
	q.Set("indices", joinInts(indices))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poierrors.ErrTransportFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", poierrors.ErrTransportFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var r loader.Response
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &r) == nil && r.Error != "" {
			msg = r.Error
		}
		return nil, fmt.Errorf("%w: %s: %s", poierrors.ErrTransportFailed, resp.Status, msg)
	}

	var r loader.Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", poierrors.ErrTransportFailed, err)
	}
	if len(r.Labels) < len(indices) {
		return nil, fmt.Errorf("%w: %d labels for %d indices", poierrors.ErrShortResponse, len(r.Labels), len(indices))
	}

	c.logger.Debug("labels fetched", "dim", dim.String(), "count", len(indices))
	return r.Labels[:len(indices)], nil
}

// FromConfig builds the transport described by cfg. With a fallback URL the
// result retries failed requests against the fallback server.
//
// FromConfig 按 cfg 构建传输。配置了后备地址时，失败的请求会在后备服务器上重试。
func FromConfig(cfg configs.TransportConfig, logger *slog.Logger) (loader.Transport, error) {
	primary, err := New(cfg.BaseURL, WithTimeout(cfg.Timeout), WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.FallbackURL == "" {
		return primary, nil
	}
	secondary, err := New(cfg.FallbackURL, WithTimeout(cfg.Timeout), WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return loader.NewFallbackTransport(primary, secondary), nil
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
