package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		suppressed string
		kept       string
	}{
		{"debug", "trace", "debug"},
		{"info", "debug", "info"},
		{"warn", "info", "warn"},
		{"error", "warn", "error"},
	}

	emit := func(logger zerolog.Logger, level, msg string) {
		switch level {
		case "trace":
			logger.Trace().Msg(msg)
		case "debug":
			logger.Debug().Msg(msg)
		case "info":
			logger.Info().Msg(msg)
		case "warn":
			logger.Warn().Msg(msg)
		case "error":
			logger.Error().Msg(msg)
		}
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			emit(logger, tt.suppressed, "below threshold")
			emit(logger, tt.kept, "at threshold")

			output := buf.String()
			assert.NotContains(t, output, "below threshold")
			assert.Contains(t, output, "at threshold")
		})
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "chatty", Output: &buf})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.Contains(t, output, "info message")
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Output: &buf}, "typereader")

	logger.Info().Msg("tagged message")

	output := buf.String()
	assert.Contains(t, output, "typereader")
	assert.Contains(t, output, "tagged message")
}

func TestNew_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Msg("pretty message")

	assert.True(t, strings.Contains(buf.String(), "pretty message"))
}

func TestNew_NilOutputDoesNotPanic(t *testing.T) {
	logger := New(Config{Level: "error"})
	logger.Error().Msg("goes to stderr")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.True(t, cfg.Pretty)
}
