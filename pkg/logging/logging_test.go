package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"critical", LevelError},
		{"WARNING", LevelWarn},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.name)
		require.NoError(t, err, "level %q", tc.name)
		assert.Equal(t, tc.want, got, "level %q", tc.name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelWarn, &buf)

	Debug("test", "debug message")
	Info("test", "info message")
	Warn("test", "warning message")
	Error("test", nil, "error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warning message")
	assert.Contains(t, out, "error message")
}

func TestSubsystemAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Info("problem configuration", "checking %d fields", 7)

	line := buf.String()
	assert.Contains(t, line, "checking 7 fields")
	assert.Contains(t, line, "subsystem=")
	assert.True(t, strings.Contains(line, "problem configuration") || strings.Contains(line, `"problem configuration"`))
}
