package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), "log line: %s", buf.String())
	return m
}

func TestSetup_JSONAddsServiceAndRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Setup("carpool-api", "json", slog.LevelInfo, &buf)

	var ctx context.Context
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ctx = r.Context()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	logger.InfoContext(ctx, "hello", "k", "v")
	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "carpool-api", line["service"])
	assert.Equal(t, "v", line["k"])
	assert.NotEmpty(t, line["request_id"])
}

func TestSetup_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Setup("svc", "text", slog.LevelWarn, &buf)
	logger.Info("dropped")
	assert.Empty(t, buf.String())
	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogError_OopsCodeAndContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Setup("svc", "json", slog.LevelDebug, &buf)

	err := oops.Code("TRIP_CREATE_FAILED").With("account_id", "u1").Wrap(errors.New("connection reset"))
	LogError(context.Background(), logger, "request failed", err)

	line := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "TRIP_CREATE_FAILED", line["code"])
	assert.Contains(t, line["error"], "connection reset")
	ctxAttr, ok := line["context"].(map[string]any)
	require.True(t, ok, "context attr: %v", line["context"])
	assert.Equal(t, "u1", ctxAttr["account_id"])
}

func TestLogError_PlainError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := Setup("svc", "json", slog.LevelDebug, &buf)
	LogError(context.Background(), logger, "boom", errors.New("plain"))

	line := decodeLine(t, &buf)
	assert.Equal(t, "plain", line["error"])
	assert.Nil(t, line["code"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
