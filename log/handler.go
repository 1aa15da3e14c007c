package log

import (
	"net/http"

	"github.com/felixge/httpsnoop"
)

// NewLoggingHandler logs every request served by handler. Server errors are
// logged at error level, everything else at debug level.
func NewLoggingHandler(handler http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, r)
		keyAndValues := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"duration", m.Duration,
			"bytes", m.Written,
		}
		if m.Code >= http.StatusInternalServerError {
			logger.Error("request failed", keyAndValues...)
			return
		}
		logger.Debug("request served", keyAndValues...)
	})
}
