package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrConversion is wrapped by every conversion failure below
var ErrConversion = errors.New("value cannot be converted")

func conversionError(v any, target string) error {
	return fmt.Errorf("%w: %T(%v) to %s", ErrConversion, v, v, target)
}

// ToInt64 converts integer, float (without fraction), bool and numeric text values.
// Unlike a lenient cast it refuses values that would lose information.
func ToInt64(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, conversionError(v, "int64")
		}
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, conversionError(v, "int64")
		}
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt64 || val < math.MinInt64 {
			return 0, conversionError(v, "int64")
		}
		return int64(val), nil
	case float32:
		return ToInt64(float64(val))
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ToInt64(f)
		}
		return 0, conversionError(v, "int64")
	case []byte:
		return ToInt64(string(val))
	default:
		return 0, conversionError(v, "int64")
	}
}

// ToInt32 is ToInt64 with a range check
func ToInt32(v any) (int32, error) {
	n, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, conversionError(v, "int32")
	}
	return int32(n), nil
}

// ToFloat64 converts numeric, bool and numeric text values
func ToFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, conversionError(v, "float64")
		}
		return f, nil
	case []byte:
		return ToFloat64(string(val))
	default:
		return 0, conversionError(v, "float64")
	}
}

// ToBool converts integers (0 = false), bools and text such as "true"/"1"/"yes"
func ToBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case int:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f != 0, nil
		}
		return false, conversionError(v, "bool")
	case []byte:
		return ToBool(string(val))
	default:
		return false, conversionError(v, "bool")
	}
}

// ToString formats any scalar as text; []byte is taken as UTF-8
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToBytes accepts blobs and text
func ToBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return nil, conversionError(v, "[]byte")
	}
}
