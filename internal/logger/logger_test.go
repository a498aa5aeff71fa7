package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, WARN)

	log.Debug("HOLD", "debug line")
	log.Info("HOLD", "info line")
	log.Warn("events", "publish failed")
	log.Error("DATABASE", "connection reset")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "WARN  [EVENTS    ] publish failed")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "logger_test.go:")
}

func TestSpecializedHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, DEBUG)

	log.LogHold("CREATED", 7, "3 seats for alice@example.com")
	log.LogAPI("POST", "/api/venue/holds", 201, 2*time.Millisecond)
	log.LogDatabase("CREATE", "venue", "schema ensured")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[HOLD      ] [CREATED] 7 - 3 seats for alice@example.com")
	assert.Contains(t, lines[1], "POST /api/venue/holds - 201 (2ms)")
	assert.Contains(t, lines[2], "[CREATE] venue - schema ensured")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" warning "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("chatty"))
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger("ms-seating", dir, INFO)
	require.NoError(t, err)
	log.out = &bytes.Buffer{}

	log.Warn("SWEEPER", "expired 2 holds")
	log.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "ms-seating-*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Category == "SWEEPER" {
			found = true
			assert.Equal(t, "WARN", entry.Level)
			assert.Equal(t, "expired 2 holds", entry.Message)
		}
	}
	assert.True(t, found)
}
