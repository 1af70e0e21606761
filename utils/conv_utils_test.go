package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int64
		wantErr  bool
	}{
		{"int64", int64(42), 42, false},
		{"int", 7, 7, false},
		{"uint8", uint8(3), 3, false},
		{"whole float", 123.0, 123, false},
		{"fractional float", 1.5, 0, true},
		{"bool true", true, 1, false},
		{"numeric string", " 99 ", 99, false},
		{"float string", "12.0", 12, false},
		{"bytes", []byte("5"), 5, false},
		{"garbage", "abc", 0, true},
		{"overflow uint64", uint64(math.MaxUint64), 0, true},
		{"nil", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt64(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConversion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToInt32(t *testing.T) {
	n, err := ToInt32(int64(12))
	require.NoError(t, err)
	assert.Equal(t, int32(12), n)

	_, err = ToInt32(int64(math.MaxInt32) + 1)
	assert.ErrorIs(t, err, ErrConversion)
}

func TestToFloat64(t *testing.T) {
	f, err := ToFloat64(int64(123))
	require.NoError(t, err)
	assert.Equal(t, 123.0, f)

	f, err = ToFloat64("0.25")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	_, err = ToFloat64("x")
	assert.ErrorIs(t, err, ErrConversion)

	_, err = ToFloat64(struct{}{})
	assert.ErrorIs(t, err, ErrConversion)
}

func TestToBool(t *testing.T) {
	tests := []struct {
		input    any
		expected bool
		wantErr  bool
	}{
		{true, true, false},
		{int64(0), false, false},
		{int64(2), true, false},
		{"YES", true, false},
		{"off", false, false},
		{"0.0", false, false},
		{[]byte("1"), true, false},
		{"maybe", false, true},
		{nil, false, true},
	}

	for _, tt := range tests {
		got, err := ToBool(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.input)
			continue
		}
		require.NoError(t, err, "%v", tt.input)
		assert.Equal(t, tt.expected, got, "%v", tt.input)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "abc", ToString([]byte("abc")))
	assert.Equal(t, "123", ToString(int64(123)))
	assert.Equal(t, "0.1", ToString(0.1))
	assert.Equal(t, "true", ToString(true))
}

func TestToBytes(t *testing.T) {
	b, err := ToBytes("hi")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), b)

	_, err = ToBytes(int64(1))
	assert.ErrorIs(t, err, ErrConversion)
}
