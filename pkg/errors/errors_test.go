package errors_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	pkgerrors "github.com/agentstation/usagesync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "session", ID: "sess-1"}
		assert.Equal(t, "session sess-1 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("artifact", "reconciled_sessions")
		wrapped := fmt.Errorf("loading: %w", base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Field: "windows", Message: "must be positive"}
		assert.Equal(t, "validation failed for field windows: must be positive", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("", nil, "invalid configuration")
		assert.Equal(t, "validation failed: invalid configuration", err.Error())
	})
}

func TestParseError(t *testing.T) {
	base := errors.New("unexpected end of JSON input")

	t.Run("matches corrupt", func(t *testing.T) {
		err := pkgerrors.WrapParse("json", "mac-1.json", base)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCorrupt(err))
		assert.ErrorIs(t, err, base)
		assert.Contains(t, err.Error(), "mac-1.json")
	})

	t.Run("offset in message", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "json", File: "a.json", Offset: 12, Message: "bad"}
		assert.Equal(t, "json decode error in a.json at offset 12: bad", err.Error())
	})

	t.Run("no file", func(t *testing.T) {
		err := pkgerrors.NewParseError("json", "", "bad", nil)
		assert.Equal(t, "json decode error: bad", err.Error())
	})
}

func TestIOError(t *testing.T) {
	err := pkgerrors.WrapIO("read", "/tmp/x.json", fs.ErrPermission)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.False(t, pkgerrors.IsCorrupt(err))
	assert.Contains(t, err.Error(), "read of /tmp/x.json")

	assert.NoError(t, pkgerrors.WrapIO("read", "x", nil))
}

func TestResourceError(t *testing.T) {
	err := pkgerrors.WrapResource("open", "ledger", "/tmp/ledger.db", fs.ErrNotExist)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, "failed to open ledger /tmp/ledger.db: file does not exist", err.Error())

	err = pkgerrors.NewResourceError("write", "artifact", "", errors.New("disk full"))
	assert.Equal(t, "failed to write artifact: disk full", err.Error())
}

func TestConfigError(t *testing.T) {
	inner := errors.New("unknown time zone Mars/Olympus")
	err := pkgerrors.NewConfigError("timezone", "cannot load location", inner)
	assert.Equal(t, "configuration error in timezone: cannot load location", err.Error())
	assert.ErrorIs(t, err, inner)

	var cfgErr *pkgerrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
