package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesTraceAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "marketplace", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "published", "producer", "prod0", "accepted", true)
	log.Debug(context.Background(), "dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "published", rec["msg"])
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "marketplace", rec["service"])
	assert.Equal(t, "abc123", rec["trace_id"])
	assert.Equal(t, "prod0", rec["producer"])
	assert.Equal(t, true, rec["accepted"])
}

func TestLoggerOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "marketplace", nil)
	log.Warn(context.Background(), "odd", "cart")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "!missing", rec["cart"])
	assert.NotContains(t, rec, "trace_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}
