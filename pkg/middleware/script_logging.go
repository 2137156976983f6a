package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/logging"
)

// maxLoggedBody bounds how much of a request body is buffered for logging.
const maxLoggedBody = 1 << 20

// ScriptRequestLogger returns middleware for the script validate and run
// endpoints. It logs the script name with sanitized parameter values and
// the outcome read back from the JSON response envelope.
// Routes must declare the {name} path segment. Pass nil logger to disable logging.
func ScriptRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			script := r.PathValue("name")

			// Read and restore request body for parameter logging
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
			if err != nil {
				logger.Error("Failed to read script request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), r.Body))

			var req scriptRequest
			if len(bodyBytes) > 0 {
				decoder := json.NewDecoder(bytes.NewReader(bodyBytes))
				decoder.UseNumber()
				if err := decoder.Decode(&req); err != nil {
					logger.Debug("Failed to parse script request JSON", zap.Error(err))
				}
			}

			logger.Debug("Script request",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("script", script),
				zap.String("path", r.URL.Path),
				zap.Any("values", logging.SanitizeParameters(req.Values)),
			)

			recorder := &bodyRecorder{
				ResponseWriter: w,
				body:           &bytes.Buffer{},
			}
			start := time.Now()

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			var resp scriptResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &resp); err != nil {
				logger.Debug("Failed to parse script response JSON", zap.Error(err))
				return
			}

			if resp.Error != "" {
				logger.Debug("Script response error",
					zap.String("script", script),
					zap.String("error", resp.Error),
					zap.String("message", resp.Message),
					zap.Duration("duration", duration),
				)
			} else {
				logger.Debug("Script response success",
					zap.String("script", script),
					zap.Duration("duration", duration),
				)
			}
		})
	}
}

// scriptRequest is the body shared by the validate and run endpoints.
type scriptRequest struct {
	Values map[string]any `json:"values"`
}

// scriptResponse picks the error fields out of a response envelope.
type scriptResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// bodyRecorder is a response writer that captures the response body.
type bodyRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

// Write captures the response body and writes it to the underlying writer.
func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
