package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathmaster/mathmaster-go/internal/middleware"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, nil)), buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggingRecordsRequest(t *testing.T) {
	logger, buf := captureLogger()

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/progress", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)

	entry := lastEntry(t, buf)
	assert.Equal(t, "gateway request", entry["msg"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/rest/v1/progress", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
	assert.Equal(t, float64(len(`{"id":"abc"}`)), entry["size"])
	assert.NotEmpty(t, entry["remote"])
}

func TestLoggingDefaultsToOK(t *testing.T) {
	logger, buf := captureLogger()

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	entry := lastEntry(t, buf)
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestRecoveryDelegatesToHandler(t *testing.T) {
	logger, buf := captureLogger()

	var handled any
	panicHandler := func(w http.ResponseWriter, _ *http.Request, err any) {
		handled = err
		w.WriteHeader(http.StatusInternalServerError)
	}

	handler := middleware.Recovery(logger, panicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("feed cursor out of range")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/activities", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "feed cursor out of range", handled)

	entry := lastEntry(t, buf)
	assert.Equal(t, "handler panicked", entry["msg"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, "/rest/v1/activities", entry["path"])
	assert.NotEmpty(t, entry["stack"])
}
