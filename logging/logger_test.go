package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// decodeLines parses every JSON log line written to buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestCallFinishedLine(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelDebug).WithComponent("bridge")

	logger.Debug("call finished",
		Method("getTransactions"),
		Port(7),
		Handle(1<<32|3),
		Status("transportError"),
		Duration(1500*time.Microsecond),
		Error(errors.New("connection refused")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	got := lines[0]
	require.Equal(t, "call finished", got["msg"])
	require.Equal(t, "bridge", got["component"])
	require.Equal(t, "getTransactions", got["method"])
	require.Equal(t, float64(7), got["port"])
	require.Equal(t, float64(1<<32|3), got["handle"])
	require.Equal(t, "transportError", got["status"])
	require.Equal(t, 1.5, got["duration_ms"])
	require.Equal(t, "connection refused", got["error"])
}

func TestQueryAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelInfo)

	logger.Info("transactions fetched",
		Address("0:2bd8"),
		LT(18446744073709551615),
		Count(16),
		Endpoint("http://127.0.0.1:8645"))

	out := buf.String()
	for _, want := range []string{
		"address=0:2bd8",
		"lt=18446744073709551615",
		"count=16",
		"endpoint=http://127.0.0.1:8645",
	} {
		require.Contains(t, out, want)
	}
}

func TestErrorAttribute_NilIsOmitted(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelInfo)

	logger.Info("call finished", Status("success"), Error(nil))

	got := decodeLines(t, buf)[0]
	require.Equal(t, "success", got["status"])
	require.NotContains(t, got, "error")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelWarn)

	logger.Debug("transport created", Handle(1))
	logger.Info("transport destroyed", Handle(1))
	logger.Warn("dropping outcome", Port(9))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	require.Equal(t, "dropping outcome", lines[0]["msg"])
}

func TestWith_DoesNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewJSONLogger(buf, slog.LevelInfo)
	scoped := base.WithComponent("ports").With(Port(3))

	scoped.Info("delivered")
	base.Info("unscoped")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	require.Equal(t, "ports", lines[0]["component"])
	require.Equal(t, float64(3), lines[0]["port"])
	require.NotContains(t, lines[1], "component")
	require.NotContains(t, lines[1], "port")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger().WithComponent("bridge")
	require.False(t, logger.Enabled(context.Background(), slog.LevelError))
	logger.Error("discarded", Port(1))
}

func TestProductionLogger(t *testing.T) {
	logger := NewProductionLogger()
	require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
