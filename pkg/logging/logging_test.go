package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/usagesync/pkg/logging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerFromConfig(t *testing.T) {
	t.Run("writes json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "usagesync.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
			Fields: map[string]any{"component": "test"},
		})
		logger.Info().Msg("test message")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "test message")
		assert.Contains(t, string(content), `"component":"test"`)
	})

	t.Run("respects level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := logging.NewLoggerFromConfig(&logging.Config{Level: "error", Format: "json", Output: "discard"})
		logger = logger.Output(buf)

		logger.Info().Msg("info")
		logger.Error().Msg("error")

		assert.NotContains(t, buf.String(), `"level":"info"`)
		assert.Contains(t, buf.String(), `"level":"error"`)
	})
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithMachine(ctx, "mac-1")
	ctx = logging.WithFile(ctx, "/sync/mac-1_usage.json")
	ctx = logging.WithRun(ctx, "run-42")

	logging.FromContext(ctx).Info().Msg("loaded")

	tl.AssertContains(t, `"machine_id":"mac-1"`)
	tl.AssertContains(t, `"file":"/sync/mac-1_usage.json"`)
	tl.AssertContains(t, `"run_id":"run-42"`)
	assert.Equal(t, 1, tl.CountLevel(zerolog.InfoLevel))
}

func TestFromContextWithoutLogger(t *testing.T) {
	logger := logging.FromContext(context.Background())
	require.NotNil(t, logger)
	// a nop logger must accept events without panicking
	logger.Info().Msg("discarded")

	//nolint:staticcheck // nil context is part of the contract
	assert.NotNil(t, logging.FromContext(nil))
}

func TestWithFields(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithFields(ctx, map[string]any{
		"sessions": 3,
		"dry_run":  true,
	})
	logging.FromContext(ctx).Warn().Msg("fields")

	out := tl.Output()
	assert.True(t, strings.Contains(out, `"sessions":3`))
	assert.True(t, strings.Contains(out, `"dry_run":true`))
	assert.Equal(t, 1, tl.Count())
}
