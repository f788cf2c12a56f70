package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Options{Output: buf, Level: level}), buf
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_WritesJSONEntries(t *testing.T) {
	log, buf := newBufferedLogger(LevelDebug)

	log.Info("population published",
		PopulationSize(200),
		String("source", "synthetic"),
	)

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "population published", entries[0].Message)
	assert.Equal(t, float64(200), entries[0].Fields["population_size"])
	assert.Equal(t, "synthetic", entries[0].Fields["source"])
	assert.NotEmpty(t, entries[0].Timestamp)
}

func TestLogger_LevelFiltering(t *testing.T) {
	log, buf := newBufferedLogger(LevelWarn)

	log.Debug("drop me")
	log.Info("drop me too")
	log.Warn("keep")
	log.Error("keep as well")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "ERROR", entries[1].Level)
}

func TestLogger_With(t *testing.T) {
	log, buf := newBufferedLogger(LevelInfo)

	scoped := log.With(Component("scoring"), BatchID("batch-9"))
	scoped.Info("batch scored", Rejected(2))

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "scoring", entries[0].Fields["component"])
	assert.Equal(t, "batch-9", entries[0].Fields["batch_id"])
	assert.Equal(t, float64(2), entries[0].Fields["rejected"])

	// The parent logger keeps its own field set.
	buf.Reset()
	log.Info("plain")
	entries = decodeEntries(t, buf)
	assert.NotContains(t, entries[0].Fields, "component")
}

func TestLogger_WithLevel(t *testing.T) {
	log, buf := newBufferedLogger(LevelError)

	log.WithLevel(LevelDebug).Debug("now visible")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0].Level)
}

func TestLogger_Formatted(t *testing.T) {
	log, buf := newBufferedLogger(LevelInfo)

	log.Infof("scored %d students in %s", 150, "82ms")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "scored 150 students in 82ms", entries[0].Message)
}

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "f", Value: 1.5}, Float64("f", 1.5))
	assert.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Field{Key: "d", Value: "1m0s"}, Duration("d", time.Minute))

	ts := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, Field{Key: "t", Value: "2026-02-14T10:00:00Z"}, Time("t", ts))

	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "error", Value: nil}, Err(nil))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"fatal", LevelFatal},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestContextPropagation(t *testing.T) {
	log, buf := newBufferedLogger(LevelInfo)

	ctx := WithContext(context.Background(), log)
	FromContext(ctx).Info("from context")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "from context", entries[0].Message)

	// Missing logger falls back to a usable default.
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	log, buf := newBufferedLogger(LevelInfo)

	log.WithRequestID("req-7").Info("handled")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0].Fields[RequestIDKey])
}
