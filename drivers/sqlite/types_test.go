package sqlite

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rediwo/redi-ado/connstr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclaredFieldType(t *testing.T) {
	tests := map[string]FieldType{
		"":                 FieldAny,
		"INTEGER":          FieldInt64,
		"int":              FieldInt64,
		"BIGINT":           FieldInt64,
		"REAL":             FieldFloat64,
		"double precision": FieldFloat64,
		"FLOAT":            FieldFloat64,
		"NUMERIC(10, 2)":   FieldFloat64,
		"decimal":          FieldFloat64,
		"TEXT":             FieldString,
		"VARCHAR(20)":      FieldString,
		"NCHAR(5)":         FieldString,
		"CLOB":             FieldString,
		"BLOB":             FieldBytes,
		"DATETIME":         FieldDateTime,
		"date":             FieldDateTime,
		"TIMESTAMP":        FieldDateTime,
		"TIME":             FieldDateTime,
		"guidblob":         FieldGUID,
		"UNIQUEIDENTIFIER": FieldGUID,
		"BOOLEAN":          FieldBool,
		"bit":              FieldBool,
		"WHATEVER":         FieldAny,
	}

	for decl, want := range tests {
		assert.Equal(t, want, declaredFieldType(decl), decl)
	}
}

func TestFieldType_GoType(t *testing.T) {
	assert.Equal(t, reflect.TypeOf(int64(0)), FieldInt64.GoType())
	assert.Equal(t, reflect.TypeOf(time.Time{}), FieldDateTime.GoType())
	assert.Equal(t, reflect.TypeOf(uuid.UUID{}), FieldGUID.GoType())
	assert.NotNil(t, FieldAny.GoType())
	assert.Equal(t, reflect.Interface, FieldAny.GoType().Kind())
}

func TestStorageFieldType(t *testing.T) {
	assert.Equal(t, FieldInt64, storageFieldType(int64(1)))
	assert.Equal(t, FieldFloat64, storageFieldType(1.5))
	assert.Equal(t, FieldString, storageFieldType("x"))
	assert.Equal(t, FieldBytes, storageFieldType([]byte{1}))
	assert.Equal(t, FieldAny, storageFieldType(nil))
}

func TestCoercer_ISO8601(t *testing.T) {
	c := newCoercer(connstr.Options{})
	want := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)

	for _, s := range []string{
		"2024-03-01 12:30:45",
		"2024-03-01T12:30:45",
		"2024-03-01 12:30:45+00:00",
		"2024-03-01T12:30:45Z",
		"2024-03-01 14:30:45+02:00",
	} {
		got, err := c.toTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
		assert.Equal(t, time.UTC, got.Location())
	}

	day, err := c.toTime("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = c.toTime(int64(124123))
	assert.ErrorIs(t, err, ErrFormat)
	_, err = c.toTime(1.5)
	assert.ErrorIs(t, err, ErrFormat)
	_, err = c.toTime("124123")
	assert.ErrorIs(t, err, ErrFormat)
	_, err = c.toTime("yesterday")
	assert.ErrorIs(t, err, ErrFormat)

	bound, err := c.bindValue(want)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 12:30:45+00:00", bound)
}

func TestCoercer_UnixEpoch(t *testing.T) {
	c := newCoercer(connstr.Options{DateTimeFormat: connstr.UnixEpoch})

	got, err := c.toTime(int64(124123))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(124123, 0).UTC(), got)

	got, err = c.toTime("124123")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(124123, 0).UTC(), got)

	// text in ISO form is still accepted
	_, err = c.toTime("2024-03-01 12:30:45")
	assert.NoError(t, err)

	bound, err := c.bindValue(time.Unix(124123, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(124123), bound)
}

func TestCoercer_Ticks(t *testing.T) {
	c := newCoercer(connstr.Options{DateTimeFormat: connstr.Ticks})

	got, err := c.toTime(int64(ticksAtUnixEpoch))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), got)

	when := time.Date(2021, 6, 15, 8, 0, 0, 123456700, time.UTC)
	bound, err := c.bindValue(when)
	require.NoError(t, err)
	assert.Equal(t, int64(637593408001234567), bound)

	back, err := c.toTime(bound)
	require.NoError(t, err)
	assert.Equal(t, when, back)
}

func TestCoercer_JulianDay(t *testing.T) {
	c := newCoercer(connstr.Options{DateTimeFormat: connstr.JulianDay})

	got, err := c.toTime(julianDayAtUnixEpoch)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(0, 0).UTC(), got)

	got, err = c.toTime(2451545.0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), got)

	when := time.Date(2021, 6, 15, 8, 0, 0, 0, time.UTC)
	bound, err := c.bindValue(when)
	require.NoError(t, err)
	back, err := c.toTime(bound)
	require.NoError(t, err)
	assert.WithinDuration(t, when, back, time.Millisecond)
}

func TestCoercer_DriverParsedTimes(t *testing.T) {
	c := newCoercer(connstr.Options{DateTimeFormat: connstr.UnixEpoch})
	c.driverTimes = true

	when := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	got, err := c.toTime(when)
	require.NoError(t, err)
	assert.Equal(t, when, got)

	// go-sqlite3 hands back the zero time for text it could not parse
	_, err = c.toTime(time.Time{})
	assert.ErrorIs(t, err, ErrFormat)

	plain := newCoercer(connstr.Options{DateTimeFormat: connstr.UnixEpoch})
	_, err = plain.toTime(time.Time{})
	assert.NoError(t, err)
}

func TestCoercer_LocalKind(t *testing.T) {
	c := newCoercer(connstr.Options{DateTimeFormat: connstr.UnixEpoch, DateTimeKind: connstr.Local})
	got, err := c.toTime(int64(0))
	require.NoError(t, err)
	assert.Equal(t, time.Local, got.Location())
}

func TestCoercer_GUID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	binary := newCoercer(connstr.Options{BinaryGUID: true})
	bound, err := binary.bindValue(id)
	require.NoError(t, err)
	assert.Equal(t, id[:], bound)

	text := newCoercer(connstr.Options{})
	bound, err = text.bindValue(id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), bound)

	for _, raw := range []any{id[:], id.String(), []byte(id.String())} {
		got, err := binary.toGUID(raw)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err = binary.toGUID("not-a-guid")
	assert.ErrorIs(t, err, ErrFormat)
	_, err = binary.toGUID(int64(1))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestCoercer_Value(t *testing.T) {
	c := newCoercer(connstr.Options{})

	v, err := c.value(int64(123), FieldFloat64)
	require.NoError(t, err)
	assert.Equal(t, 123.0, v)

	v, err = c.value(int64(1), FieldBool)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = c.value(int64(123), FieldString)
	require.NoError(t, err)
	assert.Equal(t, "123", v)

	_, err = c.value("abc", FieldInt64)
	assert.ErrorIs(t, err, ErrFormat)

	v, err = c.value("untyped", FieldAny)
	require.NoError(t, err)
	assert.Equal(t, "untyped", v)
}
