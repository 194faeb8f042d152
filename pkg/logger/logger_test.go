package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	testCases := []struct {
		name          string
		level         string
		expectedLevel zerolog.Level
	}{
		{"trace", "trace", zerolog.TraceLevel},
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"error", "error", zerolog.ErrorLevel},
		{"mixed case", "DEBUG", zerolog.DebugLevel},
		{"padded", "  info  ", zerolog.InfoLevel},
		{"unknown defaults to info", "verbose", zerolog.InfoLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.expectedLevel, zerolog.GlobalLevel())
		})
	}
}

func TestNew_WritesStructuredOutput(t *testing.T) {
	log := New(Config{Level: "info"})

	var buf bytes.Buffer
	log = log.Output(&buf)
	log.Info().Str("component", "test").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"test"`)
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"time"`)
}

func TestNew_PrettyOutput(t *testing.T) {
	log := New(Config{Level: "info", Pretty: true})

	var buf bytes.Buffer
	log = log.Output(&buf)
	log.Info().Msg("pretty message")

	assert.Contains(t, buf.String(), "pretty message")
}
