package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("component", "merge").Info("merged sources",
		"sources", 2,
		"file", "my export.json",
		"loadID", "0123456789abcdef",
		"durationMs", int64(12),
	)

	line := buf.String()
	assert.Contains(t, line, "[INFO]  ")
	assert.Contains(t, line, "merged sources | component=merge")
	assert.Contains(t, line, "sources=2")
	assert.Contains(t, line, `file="my export.json"`)
	assert.Contains(t, line, "load=01234567")
	assert.Contains(t, line, "duration=12ms")
}

func TestCompactHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN]  ")
}

func TestCompactHandlerGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, nil)).WithGroup("graph")

	log.Info("built", "nodes", 3)

	assert.Contains(t, buf.String(), "graph.nodes=3")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug", 0))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN", 2))
	assert.Equal(t, slog.LevelDebug, ParseLevel("", 1))
	assert.Equal(t, LevelTrace, ParseLevel("", 2))
	assert.Equal(t, slog.LevelInfo, ParseLevel("", 0))
}

func TestNewFollowsSetup(t *testing.T) {
	log := New("session")

	var buf bytes.Buffer
	Setup(&buf, "json", slog.LevelDebug)
	t.Cleanup(func() { SetLevel(slog.LevelInfo) })

	log.Debug("rebuilt", "nodes", 3)

	assert.Contains(t, buf.String(), `"component":"session"`)
	assert.Contains(t, buf.String(), `"nodes":3`)
}
