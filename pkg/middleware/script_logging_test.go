package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/logging"
)

func serveScript(t *testing.T, logger *zap.Logger, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("POST /api/scripts/{name}/run", ScriptRequestLogger(logger)(handler))

	req := httptest.NewRequest(http.MethodPost, "/api/scripts/sales.sql/run", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestScriptRequestLogger(t *testing.T) {
	t.Run("logs successful run", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true,"data":{"row_count":3}}`))
		})

		serveScript(t, logger, handler, `{"values":{"Region":"West","Top":10}}`)

		require.Equal(t, 2, logs.Len(), "Should log request and response")

		requestLog := logs.All()[0]
		assert.Equal(t, "Script request", requestLog.Message)
		assert.Equal(t, "sales.sql", requestLog.ContextMap()["script"])
		assert.NotNil(t, requestLog.ContextMap()["values"])

		responseLog := logs.All()[1]
		assert.Equal(t, "Script response success", responseLog.Message)
		assert.Equal(t, "sales.sql", responseLog.ContextMap()["script"])
	})

	t.Run("logs error envelope", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_parameters","message":"'Region' is required"}`))
		})

		serveScript(t, logger, handler, `{"values":{}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "Script response error", responseLog.Message)
		assert.Equal(t, "invalid_parameters", responseLog.ContextMap()["error"])
		assert.Equal(t, "'Region' is required", responseLog.ContextMap()["message"])
	})

	t.Run("redacts sensitive values", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success":true}`))
		})

		serveScript(t, logger, handler, `{"values":{"ApiKey":"sk_live_abc","Region":"West"}}`)

		values, ok := logs.All()[0].ContextMap()["values"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, logging.RedactedText, values["ApiKey"])
		assert.Equal(t, "West", values["Region"])
	})

	t.Run("handler still reads the body", func(t *testing.T) {
		var got string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			got = string(b)
		})

		body := `{"values":{"Region":"West"}}`
		serveScript(t, zap.NewNop(), handler, body)
		assert.Equal(t, body, got)
	})

	t.Run("invalid JSON is passed through", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core)

		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusBadRequest)
		})

		rec := serveScript(t, logger, handler, `not json`)
		assert.True(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.GreaterOrEqual(t, logs.Len(), 1)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		serveScript(t, nil, handler, `{}`)
		assert.True(t, called)
	})
}
