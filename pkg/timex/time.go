// Package timex provides a time type shared by gorm models and JSON responses
// Package timex 提供 gorm 模型与 JSON 响应共用的时间类型
package timex

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format of Time (RFC 3339 with milliseconds)
// Layout 是 Time 的传输格式（带毫秒的 RFC 3339）
const Layout = "2006-01-02T15:04:05.000Z07:00"

// Time wraps time.Time for JSON and database round-trips
// Time 封装 time.Time，用于 JSON 与数据库往返
type Time time.Time

// Now returns the current time
// Now 返回当前时间
func Now() Time {
	return Time(time.Now())
}

// Std returns the standard library value
// Std 返回标准库时间
func (t Time) Std() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) Unix() int64 {
	return time.Time(t).Unix()
}

func (t Time) UnixMilli() int64 {
	return time.Time(t).UnixMilli()
}

func (t Time) UnixMicro() int64 {
	return time.Time(t).UnixMicro()
}

func (t Time) UnixNano() int64 {
	return time.Time(t).UnixNano()
}

func (t Time) String() string {
	return time.Time(t).Format(Layout)
}

// MarshalJSON writes the time in Layout; the zero time becomes null
// MarshalJSON 以 Layout 输出；零值输出 null
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + time.Time(t).Format(Layout) + `"`), nil
}

// UnmarshalJSON accepts Layout, RFC 3339 and the SQL datetime forms
// UnmarshalJSON 支持 Layout、RFC 3339 与 SQL 日期时间格式
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*t = Time{}
		return nil
	}
	for _, layout := range parseLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Time(parsed)
			return nil
		}
	}
	return fmt.Errorf("timex: cannot parse %q", s)
}

var parseLayouts = []string{
	Layout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// GormDataType lets every dialect pick its own datetime column type
// GormDataType 让各数据库方言选择各自的时间列类型
func (Time) GormDataType() string {
	return "time"
}

// Value implements driver.Valuer
func (t Time) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return time.Time(t), nil
}

// Scan implements sql.Scanner
func (t *Time) Scan(v interface{}) error {
	switch value := v.(type) {
	case nil:
		*t = Time{}
	case time.Time:
		*t = Time(value)
	case string:
		return t.UnmarshalJSON([]byte(value))
	case []byte:
		return t.UnmarshalJSON(value)
	default:
		return fmt.Errorf("timex: cannot scan %T", v)
	}
	return nil
}
