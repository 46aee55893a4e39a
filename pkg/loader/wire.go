package loader

import "github.com/Humphrey-He/poitrack/pkg/entity"

// Request is the get_labels request body: one dimension, any number of indices.
//
// Request 是 get_labels 请求体：一个维度，任意数量的索引。
type Request struct {
	Dim     entity.Dimension `json:"dim"`
	Indices []int            `json:"indices"`
}

// Response carries one label per requested index, in request order, or an error message.
//
// Response 按请求顺序为每个索引携带一条标签，或携带错误信息。
type Response struct {
	Labels []Label `json:"labels,omitempty"`
	Error  string  `json:"error,omitempty"`
}
