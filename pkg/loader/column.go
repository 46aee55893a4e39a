package loader

import (
	"encoding/json"
	"fmt"
)

// Column is one attribute row of a label.
//
// Column 是标签的一行属性。
type Column struct {
	Key         string      `json:"key" yaml:"key"`
	Value       interface{} `json:"value" yaml:"value"`
	DataType    string      `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	DisplayName string      `json:"displayName,omitempty" yaml:"displayName,omitempty"`
}

// UnmarshalJSON accepts both the object form and the legacy [key, value] pair
// still produced by older static exports.
//
// UnmarshalJSON 同时接受对象形式和旧版静态导出仍在使用的 [key, value] 数组形式。
func (c *Column) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("legacy label column must have 2 elements, got %d", len(pair))
		}
		var key string
		if err := json.Unmarshal(pair[0], &key); err != nil {
			return fmt.Errorf("legacy label column key: %w", err)
		}
		var value interface{}
		if err := json.Unmarshal(pair[1], &value); err != nil {
			return fmt.Errorf("legacy label column value: %w", err)
		}
		*c = Column{Key: key, Value: value}
		return nil
	}

	type plain Column
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Column(p)
	return nil
}
