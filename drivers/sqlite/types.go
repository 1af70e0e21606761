package sqlite

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rediwo/redi-ado/connstr"
	"github.com/rediwo/redi-ado/utils"
)

type dbNull struct{}

func (dbNull) String() string { return "DBNull" }

// DBNull is the value of a SQL NULL column
var DBNull = dbNull{}

// FieldType is the Go-side type a column's values are read as
type FieldType int

const (
	FieldAny FieldType = iota
	FieldInt64
	FieldFloat64
	FieldString
	FieldBytes
	FieldDateTime
	FieldGUID
	FieldBool
)

var fieldGoTypes = map[FieldType]reflect.Type{
	FieldAny:      reflect.TypeOf((*any)(nil)).Elem(),
	FieldInt64:    reflect.TypeOf(int64(0)),
	FieldFloat64:  reflect.TypeOf(float64(0)),
	FieldString:   reflect.TypeOf(""),
	FieldBytes:    reflect.TypeOf([]byte(nil)),
	FieldDateTime: reflect.TypeOf(time.Time{}),
	FieldGUID:     reflect.TypeOf(uuid.UUID{}),
	FieldBool:     reflect.TypeOf(false),
}

// GoType returns the reflect.Type values of this field type are returned as
func (f FieldType) GoType() reflect.Type {
	return fieldGoTypes[f]
}

func (f FieldType) String() string {
	switch f {
	case FieldInt64:
		return "INTEGER"
	case FieldFloat64:
		return "REAL"
	case FieldString:
		return "TEXT"
	case FieldBytes:
		return "BLOB"
	case FieldDateTime:
		return "DATETIME"
	case FieldGUID:
		return "GUID"
	case FieldBool:
		return "BOOLEAN"
	default:
		return "NULL"
	}
}

var declaredTypes = map[string]FieldType{
	"DATETIME":         FieldDateTime,
	"DATE":             FieldDateTime,
	"TIMESTAMP":        FieldDateTime,
	"TIME":             FieldDateTime,
	"SMALLDATE":        FieldDateTime,
	"GUID":             FieldGUID,
	"GUIDBLOB":         FieldGUID,
	"UUID":             FieldGUID,
	"UNIQUEIDENTIFIER": FieldGUID,
	"BOOL":             FieldBool,
	"BOOLEAN":          FieldBool,
	"BIT":              FieldBool,
	"YESNO":            FieldBool,
	"LOGICAL":          FieldBool,
	"NUMERIC":          FieldFloat64,
	"DECIMAL":          FieldFloat64,
	"MONEY":            FieldFloat64,
	"CURRENCY":         FieldFloat64,
}

// declaredFieldType maps a declared column type to a field type. Names with
// no special meaning fall back to SQLite's affinity rules; an empty
// declaration (expressions) yields FieldAny.
func declaredFieldType(decl string) FieldType {
	d := strings.ToUpper(strings.TrimSpace(decl))
	if i := strings.IndexByte(d, '('); i >= 0 {
		d = strings.TrimSpace(d[:i])
	}
	if d == "" {
		return FieldAny
	}
	if ft, ok := declaredTypes[d]; ok {
		return ft
	}

	switch {
	case strings.Contains(d, "INT"):
		return FieldInt64
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return FieldString
	case strings.Contains(d, "BLOB"):
		return FieldBytes
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return FieldFloat64
	}
	return FieldAny
}

// storageFieldType derives a field type from a value as the engine returned it
func storageFieldType(v any) FieldType {
	switch v.(type) {
	case int64:
		return FieldInt64
	case float64:
		return FieldFloat64
	case string:
		return FieldString
	case []byte:
		return FieldBytes
	case time.Time:
		return FieldDateTime
	case bool:
		return FieldBool
	default:
		return FieldAny
	}
}

// ticksAtUnixEpoch is 1970-01-01 expressed in 100ns ticks since 0001-01-01
const ticksAtUnixEpoch = 621355968000000000

// julianDayAtUnixEpoch is the Julian day number of 1970-01-01T00:00:00Z
const julianDayAtUnixEpoch = 2440587.5

// isoLayouts are tried in order when reading text timestamps
var isoLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// isoWriteLayout is used to bind time.Time parameters under ISO8601
const isoWriteLayout = "2006-01-02 15:04:05.999999999-07:00"

// coercer converts between engine storage and Go values for one connection.
// It is the only place DateTimeFormat and DateTimeKind are consulted.
type coercer struct {
	format     connstr.DateTimeFormat
	loc        *time.Location
	binaryGUID bool

	// driverTimes is set when the engine parses DATE/DATETIME/TIMESTAMP
	// columns itself and yields the zero time for text it cannot parse
	driverTimes bool
}

func newCoercer(opts connstr.Options) *coercer {
	return &coercer{
		format:     opts.DateTimeFormat,
		loc:        opts.DateTimeKind.Location(),
		binaryGUID: opts.BinaryGUID,
	}
}

func formatError(format string, args ...any) *Error {
	return newError(KindFormat, "failed to convert value", nil, format, args...)
}

func conversionFailure(err error) *Error {
	return newError(KindFormat, "failed to convert value", err, "")
}

// value converts a non-NULL raw value to the column's field type
func (c *coercer) value(raw any, ft FieldType) (any, error) {
	switch ft {
	case FieldInt64:
		n, err := utils.ToInt64(raw)
		if err != nil {
			return nil, conversionFailure(err)
		}
		return n, nil
	case FieldFloat64:
		f, err := utils.ToFloat64(raw)
		if err != nil {
			return nil, conversionFailure(err)
		}
		return f, nil
	case FieldString:
		return c.text(raw), nil
	case FieldBool:
		b, err := utils.ToBool(raw)
		if err != nil {
			return nil, conversionFailure(err)
		}
		return b, nil
	case FieldDateTime:
		return c.toTime(raw)
	case FieldGUID:
		return c.toGUID(raw)
	case FieldBytes:
		if b, err := utils.ToBytes(raw); err == nil {
			return b, nil
		}
		return raw, nil
	default:
		if t, ok := raw.(time.Time); ok {
			return t.In(c.loc), nil
		}
		return raw, nil
	}
}

func (c *coercer) text(raw any) string {
	if t, ok := raw.(time.Time); ok {
		return t.In(c.loc).Format(isoWriteLayout)
	}
	return utils.ToString(raw)
}

func (c *coercer) toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		if c.driverTimes && v.IsZero() {
			return time.Time{}, formatError("stored value is not a valid %s date/time", c.format)
		}
		return v.In(c.loc), nil
	case []byte:
		return c.toTime(string(v))
	case string:
		return c.parseTimeText(v)
	case int64:
		return c.fromNumber(float64(v), v, true)
	case float64:
		return c.fromNumber(v, int64(v), false)
	}
	return time.Time{}, formatError("%T value cannot be read as a date/time", raw)
}

func (c *coercer) parseTimeText(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if c.format != connstr.ISO8601 {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return c.fromNumber(float64(n), n, true)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return c.fromNumber(f, int64(f), false)
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			return t.In(c.loc), nil
		}
	}
	return time.Time{}, formatError("%q is not a valid %s date/time", s, c.format)
}

func (c *coercer) fromNumber(f float64, n int64, integral bool) (time.Time, error) {
	switch c.format {
	case connstr.UnixEpoch:
		if integral {
			return time.Unix(n, 0).In(c.loc), nil
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).In(c.loc), nil
	case connstr.Ticks:
		return time.Unix(0, (n-ticksAtUnixEpoch)*100).In(c.loc), nil
	case connstr.JulianDay:
		nanos := (f - julianDayAtUnixEpoch) * 86400 * 1e9
		return time.Unix(0, int64(math.Round(nanos))).In(c.loc), nil
	}
	if integral {
		return time.Time{}, formatError("integer %d is not an ISO-8601 date/time (DateTimeFormat=%s)", n, c.format)
	}
	return time.Time{}, formatError("real %g is not an ISO-8601 date/time (DateTimeFormat=%s)", f, c.format)
}

func (c *coercer) toGUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return c.toGUID(string(v))
	case string:
		u, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return uuid.Nil, conversionFailure(err)
		}
		return u, nil
	}
	return uuid.Nil, formatError("%T value cannot be read as a GUID", raw)
}

// bindValue prepares a parameter value for the engine
func (c *coercer) bindValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, dbNull:
		return nil, nil
	case time.Time:
		return c.fromTime(val), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return c.fromTime(*val), nil
	case uuid.UUID:
		if c.binaryGUID {
			b := make([]byte, 16)
			copy(b, val[:])
			return b, nil
		}
		return val.String(), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32,
		float32, float64, string, []byte:
		return val, nil
	case uint, uint64:
		n, err := utils.ToInt64(val)
		if err != nil {
			return nil, conversionFailure(err)
		}
		return n, nil
	case fmt.Stringer:
		return val.String(), nil
	}
	return nil, formatError("unsupported parameter type %T", v)
}

func (c *coercer) fromTime(t time.Time) any {
	switch c.format {
	case connstr.UnixEpoch:
		return t.Unix()
	case connstr.Ticks:
		return t.UnixNano()/100 + ticksAtUnixEpoch
	case connstr.JulianDay:
		return float64(t.UnixNano())/(86400*1e9) + julianDayAtUnixEpoch
	}
	return t.In(c.loc).Format(isoWriteLayout)
}
