package dataset

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind classifies a normalized value.
type Kind string

const (
	KindNull     Kind = "null"
	KindInteger  Kind = "integer"
	KindReal     Kind = "real"
	KindBoolean  Kind = "boolean"
	KindText     Kind = "text"
	KindDatetime Kind = "datetime"
	KindBlob     Kind = "blob"
)

// IsNumeric reports whether k is integer or real.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindReal
}

// TimeLayout is the text form of datetime values.
const TimeLayout = "2006-01-02 15:04:05"

// KindOf returns the kind of a normalized value.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case int64:
		return KindInteger
	case float64:
		return KindReal
	case bool:
		return KindBoolean
	case string:
		return KindText
	case time.Time:
		return KindDatetime
	case []byte:
		return KindBlob
	default:
		return KindText
	}
}

// Normalize maps a driver value onto one of the Value scalar types.
// Maps and slices other than []byte become a JSON string.
func Normalize(v any) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case int64, bool, string, time.Time:
		return x
	case float64:
		return floatValue(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uintValue(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintValue(x)
	case float32:
		return floatValue(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []byte:
		// MySQL and SQLite drivers return text as []byte
		if utf8.Valid(x) {
			return string(x)
		}
		b := make([]byte, len(x))
		copy(b, x)
		return b
	case *time.Time:
		if x == nil {
			return nil
		}
		return *x
	case fmt.Stringer:
		return x.String()
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

// floatValue keeps NaN and infinities as text; JSON cannot carry them.
func floatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return f
}

func uintValue(u uint64) Value {
	if u > math.MaxInt64 {
		return strconv.FormatUint(u, 10)
	}
	return int64(u)
}

// FormatValue returns the text form of v: NULL is empty, blobs are 0x-prefixed hex.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(TimeLayout)
	case []byte:
		return "0x" + strings.ToUpper(hex.EncodeToString(x))
	default:
		return fmt.Sprint(x)
	}
}

// timeLayouts are accepted when parsing filter values.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	TimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses s with the first matching layout.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToFloat returns the numeric value of integer and real kinds.
func ToFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
