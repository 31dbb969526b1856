package logging_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reposcout/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")
	logging.Error().Msg("error message")

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warning message")
	assert.Contains(t, output, "error message")
}

func TestContextLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithRunID(ctx, "run-123")
	ctx = logging.WithRecord(ctx, "rec42", "0xabc")
	ctx = logging.WithOperation(ctx, "search")

	logging.FromContext(ctx).Info().Msg("searching")

	tl.AssertContains(t, `"run_id":"run-123"`)
	tl.AssertContains(t, `"record_id":"rec42"`)
	tl.AssertContains(t, `"address":"0xabc"`)
	tl.AssertContains(t, `"operation":"search"`)
	assert.Equal(t, "run-123", logging.RunID(ctx))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Equal(t, "", logging.RunID(context.Background()))
}

func TestWithFieldErrorValue(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)
	ctx = logging.WithField(ctx, "error", errors.New("boom"))

	logging.FromContext(ctx).Warn().Msg("failed")
	tl.AssertContains(t, `"error":"boom"`)
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	tests := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "debug level", level: "debug", wantDebug: true, wantInfo: true},
		{name: "error level only", level: "error", wantDebug: false, wantInfo: false},
		{name: "invalid falls back to info", level: "loud", wantDebug: false, wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: tt.level, Format: "json", Output: "discard"})
			logger = logger.Output(buf)

			logger.Debug().Msg("dbg")
			logger.Info().Msg("inf")

			output := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(output, `"message":"dbg"`))
			assert.Equal(t, tt.wantInfo, strings.Contains(output, `"message":"inf"`))
		})
	}
}

func TestNewLoggerFromConfigFileOutput(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(originalLevel)

	path := filepath.Join(t.TempDir(), "reposcout.log")
	logger := logging.NewLoggerFromConfig(&logging.Config{
		Level:  "info",
		Format: "auto",
		Output: path,
		Fields: map[string]any{"service": "reposcout"},
	})
	logger.Info().Msg("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"reposcout"`)
	assert.Contains(t, string(data), `"message":"to file"`)
}

func TestDefaultConfig(t *testing.T) {
	cfg := logging.DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.False(t, cfg.AddCaller)
}
