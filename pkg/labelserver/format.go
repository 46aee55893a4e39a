package labelserver

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders column values for display according to their data type.
//
// Formatter 按数据类型把列值格式化为显示文本。
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a formatter for the given BCP 47 locale.
// Unknown locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Format returns the display text of value, or "" when it should not be shown.
//
// 支持的数据类型：number、integer、date（Unix 毫秒）、color（0xRRGGBB）、boolean、string。
// 未指定类型时按值的 Go 类型推断。
func (f *Formatter) Format(value interface{}, dataType string) string {
	if value == nil {
		return ""
	}

	switch strings.ToLower(dataType) {
	case "date":
		if ms, ok := toFloat(value); ok {
			return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
		}
	case "color":
		if c, ok := toFloat(value); ok {
			return fmt.Sprintf("#%06x", int64(c)&0xFFFFFF)
		}
	case "integer":
		if n, ok := toFloat(value); ok {
			return f.printer.Sprint(number.Decimal(int64(n)))
		}
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	if n, ok := toFloat(value); ok {
		return f.printer.Sprint(number.Decimal(n, number.MaxFractionDigits(4)))
	}
	return fmt.Sprint(value)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
