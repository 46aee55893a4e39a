package labelserver

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Humphrey-He/poitrack/pkg/entity"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

// Record is one entity's label as stored in a dataset file.
//
// Record 是数据集文件中一个实体的标签。
type Record struct {
	Index     int             `json:"index" yaml:"index"`
	Title     string          `json:"title,omitempty" yaml:"title,omitempty"`
	Formatted string          `json:"formatted,omitempty" yaml:"formatted,omitempty"`
	Columns   []loader.Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// Dataset is the on-disk layout: records grouped by dimension.
//
// Dataset 是磁盘上的布局：按维度分组的记录。
type Dataset struct {
	Points []Record `json:"points" yaml:"points"`
	Edges  []Record `json:"edges" yaml:"edges"`
}

// Store holds label records keyed by entity. It is safe for concurrent use.
//
// Store 保存按实体索引的标签记录，可以并发使用。
type Store struct {
	mu      sync.RWMutex
	records map[entity.Ref]Record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{records: make(map[entity.Ref]Record)}
}

// LoadStore reads a YAML or JSON dataset file.
//
// LoadStore 读取 YAML 或 JSON 数据集文件。
func LoadStore(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadStore(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ReadStore decodes a dataset in the given format ("yaml", "yml" or "json").
func ReadStore(r io.Reader, format string) (*Store, error) {
	var ds Dataset
	var err error
	switch format {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&ds)
	case "json":
		err = json.NewDecoder(r).Decode(&ds)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", format)
	}
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}

	s := NewStore()
	for _, rec := range ds.Points {
		s.Put(entity.Ref{Index: rec.Index, Dim: entity.Point}, rec)
	}
	for _, rec := range ds.Edges {
		s.Put(entity.Ref{Index: rec.Index, Dim: entity.Edge}, rec)
	}
	return s, nil
}

// Put stores rec for ref, replacing any previous record.
func (s *Store) Put(ref entity.Ref, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ref] = rec
}

// Get returns the record for ref.
func (s *Store) Get(ref entity.Ref) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[ref]
	return rec, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
