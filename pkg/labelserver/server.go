// Package labelserver serves label records for graph entities over HTTP.
// It is the server side of pkg/transport: GET /labels?dim=&indices= returns
// one loader.Label per requested index, in request order. Unknown entities
// are answered with an empty label so the client can hide them.
//
// Formatted labels are kept in an LRU cache keyed by entity.Ref. Reloading
// the dataset purges the cache.
//
// Package labelserver 通过 HTTP 提供图实体的标签记录。
// 它是 pkg/transport 的服务端：GET /labels?dim=&indices= 按请求顺序为每个索引返回一条 loader.Label。
// 未知实体返回空标签，客户端据此隐藏标签。
//
// 格式化后的标签保存在以 entity.Ref 为键的 LRU 缓存中，重新加载数据集会清空缓存。
package labelserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Humphrey-He/poitrack/configs"
	"github.com/Humphrey-He/poitrack/internal/logging"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	"github.com/Humphrey-He/poitrack/pkg/loader"
	"github.com/Humphrey-He/poitrack/pkg/transport"
)

// DefaultCacheSize is used when Options.CacheSize is not positive.
const DefaultCacheSize = 1024

// Options configures a Server.
//
// Options 配置 Server。
type Options struct {
	// CacheSize is the number of formatted labels kept in memory.
	// CacheSize 是内存中保留的格式化标签数量。
	CacheSize int

	// Locale selects number formatting for column display names.
	// Locale 决定列显示名称的数字格式。
	Locale string

	// MaxBatch limits the indices of one request; 0 means unlimited.
	// MaxBatch 限制单次请求的索引数量，0 表示不限制。
	MaxBatch int

	Logger *slog.Logger
}

// CacheStats reports the formatted label cache counters.
type CacheStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// Server answers label requests from a Store.
//
// Server 基于 Store 响应标签请求。
type Server struct {
	store     atomic.Pointer[Store]
	cache     *lru.Cache[entity.Ref, loader.Label]
	formatter *Formatter
	maxBatch  int
	logger    *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a server backed by store.
//
// New 创建以 store 为数据源的服务器。
func New(store *Store, opts Options) (*Server, error) {
	if store == nil {
		store = NewStore()
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[entity.Ref, loader.Label](size)
	if err != nil {
		return nil, fmt.Errorf("label cache: %w", err)
	}

	s := &Server{
		cache:     cache,
		formatter: NewFormatter(opts.Locale),
		maxBatch:  opts.MaxBatch,
		logger:    logging.OrNop(opts.Logger),
	}
	s.store.Store(store)
	return s, nil
}

// FromConfig loads cfg.Dataset (when set) and creates a server.
//
// FromConfig 加载 cfg.Dataset（如已设置）并创建服务器。
func FromConfig(cfg configs.ServerConfig, logger *slog.Logger) (*Server, error) {
	store := NewStore()
	if cfg.Dataset != "" {
		var err error
		if store, err = LoadStore(cfg.Dataset); err != nil {
			return nil, err
		}
	}
	return New(store, Options{
		CacheSize: cfg.CacheSize,
		Locale:    cfg.Locale,
		MaxBatch:  cfg.MaxBatch,
		Logger:    logger,
	})
}

// Reload swaps in a new store and purges the label cache.
//
// Reload 替换数据源并清空标签缓存。
func (s *Server) Reload(store *Store) {
	s.store.Store(store)
	s.cache.Purge()
	s.logger.Info("label dataset reloaded", "records", store.Len())
}

// ReloadFile loads path and swaps it in. On error the current store is kept.
func (s *Server) ReloadFile(path string) error {
	store, err := LoadStore(path)
	if err != nil {
		return err
	}
	s.Reload(store)
	return nil
}

// Lookup returns one label per index, in order. Unknown entities yield an empty label.
//
// Lookup 按顺序为每个索引返回一条标签，未知实体返回空标签。
func (s *Server) Lookup(dim entity.Dimension, indices []int) ([]loader.Label, error) {
	if s.maxBatch > 0 && len(indices) > s.maxBatch {
		return nil, fmt.Errorf("too many indices: %d > %d", len(indices), s.maxBatch)
	}
	labels := make([]loader.Label, len(indices))
	for i, idx := range indices {
		if idx < 0 {
			return nil, fmt.Errorf("invalid index %d", idx)
		}
		labels[i] = s.label(entity.Ref{Index: idx, Dim: dim})
	}
	return labels, nil
}

func (s *Server) label(ref entity.Ref) loader.Label {
	if l, ok := s.cache.Get(ref); ok {
		s.hits.Add(1)
		return l
	}
	s.misses.Add(1)

	var l loader.Label
	if rec, ok := s.store.Load().Get(ref); ok {
		l = s.build(rec)
	}
	s.cache.Add(ref, l)
	return l
}

func (s *Server) build(rec Record) loader.Label {
	var l loader.Label
	if rec.Title != "" {
		title := rec.Title
		l.Title = &title
	}
	if rec.Formatted != "" {
		formatted := rec.Formatted
		l.Formatted = &formatted
	}
	if len(rec.Columns) > 0 {
		l.Columns = make([]loader.Column, len(rec.Columns))
		for i, c := range rec.Columns {
			if c.DisplayName == "" {
				c.DisplayName = s.formatter.Format(c.Value, c.DataType)
			}
			l.Columns[i] = c
		}
	}
	return l
}

// Stats returns the label cache counters.
func (s *Server) Stats() CacheStats {
	return CacheStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.cache.Len(),
	}
}

// Register adds the label routes to r.
//
// Register 向 r 注册标签路由。
func (s *Server) Register(r gin.IRouter) {
	r.GET(transport.LabelsPath, s.getLabels)
	r.POST(transport.LabelsPath, s.postLabels)
	r.GET("/healthz", s.healthz)
}

// Router returns a gin engine serving the label routes with request logging.
//
// Router 返回带请求日志的 gin 引擎。
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(s.logger))
	s.Register(r)
	return r
}

func (s *Server) getLabels(c *gin.Context) {
	dim, err := entity.ParseDimension(c.Query("dim"))
	if err != nil {
		c.JSON(http.StatusBadRequest, loader.Response{Error: err.Error()})
		return
	}
	indices, err := parseIndices(c.Query("indices"))
	if err != nil {
		c.JSON(http.StatusBadRequest, loader.Response{Error: err.Error()})
		return
	}
	s.respond(c, dim, indices)
}

func (s *Server) postLabels(c *gin.Context) {
	var req loader.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, loader.Response{Error: err.Error()})
		return
	}
	if req.Dim != entity.Point && req.Dim != entity.Edge {
		c.JSON(http.StatusBadRequest, loader.Response{Error: "unknown dimension " + req.Dim.String()})
		return
	}
	s.respond(c, req.Dim, req.Indices)
}

func (s *Server) respond(c *gin.Context, dim entity.Dimension, indices []int) {
	labels, err := s.Lookup(dim, indices)
	if err != nil {
		c.JSON(http.StatusBadRequest, loader.Response{Error: err.Error()})
		return
	}
	writeCacheHeaders(c, s.Stats())
	c.JSON(http.StatusOK, loader.Response{Labels: labels})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"records": s.store.Load().Len(),
	})
}

func parseIndices(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
