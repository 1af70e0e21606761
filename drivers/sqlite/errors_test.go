package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rediwo/redi-ado/connstr"
	"github.com/rediwo/redi-ado/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_KindsMatchSentinels(t *testing.T) {
	kinds := map[ErrorKind]error{
		KindConfiguration:    ErrConfiguration,
		KindState:            ErrState,
		KindResourceNotFound: ErrResourceNotFound,
		KindBinding:          ErrBinding,
		KindEngine:           ErrEngine,
		KindFormat:           ErrFormat,
		KindIndex:            ErrIndex,
		KindTimeout:          ErrTimeout,
	}

	for kind, sentinel := range kinds {
		err := newError(kind, "failed to test", nil, "")
		assert.ErrorIs(t, err, sentinel, kind.String())
		for other, otherSentinel := range kinds {
			if other != kind {
				assert.NotErrorIs(t, err, otherSentinel)
			}
		}
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := newError(KindEngine, "failed to execute command", cause, "statement %d", 2)
	assert.Equal(t, "failed to execute command: statement 2: disk I/O error", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))

	wrapped := fmt.Errorf("outer: %w", err)
	var e *Error
	require.ErrorAs(t, wrapped, &e)
	assert.Equal(t, KindEngine, e.Kind)
	assert.ErrorIs(t, wrapped, ErrEngine)
	assert.ErrorIs(t, wrapped, cause)
}

func TestEngineError_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	err := engineError(ctx, "failed to execute command", errors.New("interrupted"))
	assert.ErrorIs(t, err, ErrTimeout)

	err = engineError(context.Background(), "failed to execute command", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)

	err = engineError(context.Background(), "failed to execute command", errors.New("syntax error"))
	assert.ErrorIs(t, err, ErrEngine)

	// a step deadline cancels with DeadlineExceeded as the cause
	stepCtx, stepCancel := context.WithCancelCause(context.Background())
	stepCancel(context.DeadlineExceeded)
	err = engineError(stepCtx, "failed to read row", context.Canceled)
	assert.ErrorIs(t, err, ErrTimeout)

	plainCtx, plainCancel := context.WithCancel(context.Background())
	plainCancel()
	err = engineError(plainCtx, "failed to read row", context.Canceled)
	assert.ErrorIs(t, err, ErrEngine)
}

func TestEngines_Registered(t *testing.T) {
	modernc, err := registry.Get(connstr.EngineModernc)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", modernc.DriverName)
	assert.False(t, modernc.IntegerTimestamps)
	assert.True(t, modernc.FoldsDeclTypes)

	cgo, err := registry.Get(connstr.EngineCgo)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cgo.DriverName)
	assert.True(t, cgo.IntegerTimestamps)
	assert.False(t, cgo.FoldsDeclTypes)
}
