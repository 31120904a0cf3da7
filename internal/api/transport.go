package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// loggingTransport logs one line per request, mirroring the request-id
// the client stamps on every call.
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func newLoggingTransport(next http.RoundTripper, logger *zap.Logger) http.RoundTripper {
	return &loggingTransport{next: next, logger: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", req.Header.Get("X-Request-ID")),
		zap.Duration("duration", duration),
	}
	if err != nil {
		t.logger.Warn("Request failed", append(fields, zap.Error(err))...)
		return resp, err
	}

	fields = append(fields, zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 500 {
		t.logger.Warn("Request completed", fields...)
	} else {
		t.logger.Debug("Request completed", fields...)
	}
	return resp, nil
}
