package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := New(&Config{Level: tt.level, Output: "stderr"})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(&Config{Level: "chatty"})
	assert.ErrorContains(t, err, `log level "chatty"`)

	_, err = New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	assert.Error(t, err)
}

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path, TimeFormat: "2006-01-02"})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("Order placed", zap.String("order_id", "o-1"))
	require.NoError(t, Sync(l))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Order placed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "o-1", entry["order_id"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, entry["time"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestNew_Console(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	l, err := New(&Config{Format: "Console", Output: path})
	require.NoError(t, err)
	l.Warn("Cart empty")
	require.NoError(t, Sync(l))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Cart empty")
	assert.False(t, json.Valid(raw))
}
